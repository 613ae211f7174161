package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/angstwad/retro-rom-downloader/internal/config"
	"github.com/angstwad/retro-rom-downloader/internal/renamer"
)

// renameReport is the JSON view of a rename pass.
type renameReport struct {
	Directory string          `json:"directory"`
	Scanned   int             `json:"scanned"`
	Renamed   int             `json:"renamed"`
	Failures  []renameFailure `json:"failures,omitempty"`
}

type renameFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func newRenameCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename [directory]",
		Short: "Clean release tags out of downloaded filenames",
		Long: `Rename strips parenthetical release tags such as "(USA)" or "(Rev 2)" from
every file under the directory and moves a trailing ", The" back to the front
of the name. Without an argument the configured output directory is cleaned.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			dir := cfg.Paths.OutputDir
			if len(args) == 1 {
				expanded, err := config.ExpandPath(strings.TrimSpace(args[0]))
				if err != nil {
					return fmt.Errorf("resolve directory: %w", err)
				}
				dir = expanded
			}

			logger, err := ctx.buildLogger()
			if err != nil {
				return err
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var onProgress func(done, total int)
			if !ctx.JSONMode() && shouldColorize(os.Stderr) {
				var bar *progressbar.ProgressBar
				onProgress = func(done, total int) {
					if bar == nil {
						bar = progressbar.Default(int64(total), "Renaming files")
					}
					_ = bar.Set(done)
					if done == total {
						_ = bar.Finish()
					}
				}
			}

			result, err := renamer.New(logger).Run(runCtx, dir, onProgress)
			if err != nil {
				return err
			}

			report := renameReport{
				Directory: dir,
				Scanned:   result.Scanned,
				Renamed:   result.Renamed,
			}
			for _, failure := range result.Failures {
				report.Failures = append(report.Failures, renameFailure{
					Path:  failure.Path,
					Error: failure.Err.Error(),
				})
			}

			if ctx.JSONMode() {
				return writeJSON(cmd.OutOrStdout(), report)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Directory: %s\n", report.Directory)
			fmt.Fprintf(out, "Files scanned: %d\n", report.Scanned)
			fmt.Fprintf(out, "Files renamed: %d\n", report.Renamed)
			if len(report.Failures) > 0 {
				fmt.Fprintln(out, renderStatusLine("Rename", statusWarn, fmt.Sprintf("%d files could not be renamed", len(report.Failures)), colorize))
				for _, failure := range report.Failures {
					fmt.Fprintf(out, "    %s: %s\n", failure.Path, failure.Error)
				}
			}
			return nil
		},
	}

	return cmd
}
