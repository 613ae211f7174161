package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/angstwad/retro-rom-downloader/internal/config"
	"github.com/angstwad/retro-rom-downloader/internal/deps"
	"github.com/angstwad/retro-rom-downloader/internal/pipeline"
	"github.com/angstwad/retro-rom-downloader/internal/preflight"
	"github.com/angstwad/retro-rom-downloader/internal/scrape"
	"github.com/angstwad/retro-rom-downloader/internal/services"
	"github.com/angstwad/retro-rom-downloader/internal/services/aria2"
	"github.com/angstwad/retro-rom-downloader/internal/services/unzip"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var (
		gamesListFlag string
		urlFlag       string
		outputDirFlag string
		regionFlag    string
		linksFileFlag string
		thresholdFlag int
		noUnzipFlag   bool
		dryRunFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Scrape a listing page and download the requested games",
		Long: `Download scrapes a ROM listing page for archive links, fuzzy-matches them
against a games list, and hands the selected URLs to aria2c. Downloaded zip
archives are extracted in place unless extraction is disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyDownloadOverrides(cmd, cfg, outputDirFlag, regionFlag, linksFileFlag, thresholdFlag, noUnzipFlag); err != nil {
				return err
			}

			pageURL := strings.TrimSpace(urlFlag)
			if pageURL == "" {
				pageURL = cfg.Source.PageURL
			}
			if pageURL == "" {
				return fmt.Errorf("no listing page URL: pass --url or set source.page_url in the config")
			}

			gamesPath, err := config.ExpandPath(strings.TrimSpace(gamesListFlag))
			if err != nil {
				return fmt.Errorf("resolve games list path: %w", err)
			}

			if err := runDownloadPreflight(cmd, cfg, gamesPath); err != nil {
				return err
			}

			logger, err := ctx.buildLogger()
			if err != nil {
				return err
			}

			fetcher := scrape.New(time.Duration(cfg.Source.FetchTimeoutSeconds) * time.Second)
			downloader, err := aria2.New(cfg.Aria2cBinary(), cfg.Download.Connections, cfg.Download.Splits, cfg.Download.MinSplitSize)
			if err != nil {
				return err
			}
			extractor, err := unzip.New(cfg.UnzipBinary())
			if err != nil {
				return err
			}

			p, err := pipeline.New(cfg, logger, fetcher, downloader, extractor)
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			opts := pipeline.Options{
				PageURL:       pageURL,
				GamesListPath: gamesPath,
				DryRun:        dryRunFlag,
			}
			if !ctx.JSONMode() && shouldColorize(os.Stderr) {
				var matchBar *progressbar.ProgressBar
				opts.MatchProgress = func(done, total int) {
					if matchBar == nil {
						matchBar = progressbar.Default(int64(total), "Matching titles")
					}
					_ = matchBar.Set(done)
					if done == total {
						_ = matchBar.Finish()
					}
				}
				var extractBar *progressbar.ProgressBar
				opts.ExtractProgress = func(done, total int) {
					if extractBar == nil {
						extractBar = progressbar.Default(int64(total), "Extracting archives")
					}
					_ = extractBar.Set(done)
					if done == total {
						_ = extractBar.Finish()
					}
				}
			}

			report, err := p.Run(runCtx, opts)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			renderDownloadReport(cmd, report, cfg.Download.Unzip)
			return nil
		},
	}

	cmd.Flags().StringVarP(&gamesListFlag, "games-list", "g", "", "Path to the newline-delimited list of games to download")
	cmd.Flags().StringVarP(&urlFlag, "url", "u", "", "Listing page to scrape (defaults to source.page_url)")
	cmd.Flags().StringVarP(&outputDirFlag, "output-dir", "o", "", "Directory downloads land in (defaults to paths.output_dir)")
	cmd.Flags().StringVar(&regionFlag, "region", "", "Region tag that catalog entries must carry (defaults to source.region)")
	cmd.Flags().StringVar(&linksFileFlag, "aria2c-input-file", "", "Path for the aria2c input file (defaults to paths.links_file)")
	cmd.Flags().IntVar(&thresholdFlag, "threshold", 0, "Minimum fuzzy match score from 1 to 100 (defaults to matching.threshold)")
	cmd.Flags().BoolVar(&noUnzipFlag, "no-unzip", false, "Keep downloaded archives instead of extracting them")
	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Match and report without writing, downloading, or extracting")
	_ = cmd.MarkFlagRequired("games-list")

	return cmd
}

// applyDownloadOverrides folds command-line flags into the loaded config.
// Flags the user did not set leave the config untouched; the merged result is
// re-validated so bad flag values fail the same way bad config values do.
func applyDownloadOverrides(cmd *cobra.Command, cfg *config.Config, outputDir, region, linksFile string, threshold int, noUnzip bool) error {
	if cmd.Flags().Changed("output-dir") {
		expanded, err := config.ExpandPath(strings.TrimSpace(outputDir))
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Paths.OutputDir = expanded
	}
	if cmd.Flags().Changed("region") {
		cfg.Source.Region = strings.TrimSpace(region)
	}
	if cmd.Flags().Changed("aria2c-input-file") {
		expanded, err := config.ExpandPath(strings.TrimSpace(linksFile))
		if err != nil {
			return fmt.Errorf("resolve links file path: %w", err)
		}
		cfg.Paths.LinksFile = expanded
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Matching.Threshold = threshold
	}
	if noUnzip {
		cfg.Download.Unzip = false
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.EnsureDirectories()
}

// runDownloadPreflight verifies the directories, the games list, and the
// external tools before any work starts. Failures are printed together so
// the user can fix everything in one pass.
func runDownloadPreflight(cmd *cobra.Command, cfg *config.Config, gamesPath string) error {
	results := preflight.RunAll(cfg)
	results = append(results, preflight.CheckGamesList(gamesPath))
	failed := preflight.Failed(results)
	missing := deps.MissingRequired(preflight.CheckSystemDeps(cfg))
	if len(failed) == 0 && len(missing) == 0 {
		return nil
	}

	out := cmd.ErrOrStderr()
	colorize := shouldColorize(out)
	for _, result := range failed {
		fmt.Fprintln(out, renderStatusLine(result.Name, statusError, result.Detail, colorize))
	}
	for _, status := range missing {
		fmt.Fprintln(out, renderStatusLine(status.Name, statusError, status.Detail, colorize))
	}
	marker := services.ErrValidation
	if len(missing) > 0 {
		marker = services.ErrExternalTool
	}
	return services.Wrap(marker, "", "", "preflight failed: resolve the issues above and retry", nil)
}
