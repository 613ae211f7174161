package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/angstwad/retro-rom-downloader/internal/catalog"
	"github.com/angstwad/retro-rom-downloader/internal/config"
	"github.com/angstwad/retro-rom-downloader/internal/fileutil"
	"github.com/angstwad/retro-rom-downloader/internal/gamelist"
	"github.com/angstwad/retro-rom-downloader/internal/logging"
	"github.com/angstwad/retro-rom-downloader/internal/matching"
	"github.com/angstwad/retro-rom-downloader/internal/services"
	"github.com/angstwad/retro-rom-downloader/internal/variant"
)

// lockFileName guards the output directory against concurrent runs.
const lockFileName = ".romdl.lock"

// Fetcher discovers archive links on a listing page.
type Fetcher interface {
	FetchLinks(ctx context.Context, pageURL string) ([]catalog.Link, error)
}

// Downloader retrieves every URL listed in an input file into a directory.
type Downloader interface {
	Download(ctx context.Context, inputFile, destDir string) error
}

// Extractor unpacks a single archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// Options carries the per-invocation inputs for a run.
type Options struct {
	// PageURL is the listing page to scrape for archive links.
	PageURL string
	// GamesListPath points at the newline-delimited list of wanted titles.
	GamesListPath string
	// DryRun stops the run after matching, before anything is written.
	DryRun bool
	// MatchProgress, when set, is invoked after each requested title is
	// scored against the catalog.
	MatchProgress func(done, total int)
	// ExtractProgress, when set, is invoked after each archive is processed.
	ExtractProgress func(done, total int)
}

// Pipeline coordinates one download run end to end.
type Pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	fetcher    Fetcher
	matcher    *matching.Matcher
	downloader Downloader
	extractor  Extractor
}

// New wires a pipeline from its collaborators. The logger may be nil, in
// which case output is discarded.
func New(cfg *config.Config, logger *slog.Logger, fetcher Fetcher, downloader Downloader, extractor Extractor) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline requires configuration")
	}
	if fetcher == nil {
		return nil, errors.New("pipeline requires a fetcher")
	}
	if downloader == nil {
		return nil, errors.New("pipeline requires a downloader")
	}
	if extractor == nil {
		return nil, errors.New("pipeline requires an extractor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		fetcher:    fetcher,
		matcher:    matching.New(cfg.Matching.Threshold, cfg.Matching.Workers),
		downloader: downloader,
		extractor:  extractor,
	}, nil
}

// Run executes one download run and returns its report. Aborts before the
// download step (nothing scraped, nothing requested, nothing matched) and
// per-item failures afterwards are recorded on the report with a nil error;
// a non-nil error means the run could not proceed at all.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	pageURL := strings.TrimSpace(opts.PageURL)
	if pageURL == "" {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "validate options", "a listing page URL is required", nil)
	}
	gamesPath := strings.TrimSpace(opts.GamesListPath)
	if gamesPath == "" {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "validate options", "a games list path is required", nil)
	}

	lock := flock.New(filepath.Join(p.cfg.Paths.OutputDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "acquire run lock", "failed to acquire the run lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "acquire run lock",
			"another run is already downloading into "+p.cfg.Paths.OutputDir, nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)

	report := &Report{
		RunID:   runID,
		PageURL: pageURL,
		Region:  p.cfg.Source.Region,
		DryRun:  opts.DryRun,
	}
	start := time.Now()

	logger := logging.WithContext(ctx, p.logger)
	logger.Info("run started",
		logging.String("url", pageURL),
		logging.String("region", report.Region),
		logging.String("games_list", gamesPath))

	links := p.fetchLinks(ctx, pageURL, report)
	report.LinksFound = len(links)
	if len(links) == 0 {
		report.Aborted = AbortNoLinks
		logger.Warn("no links discovered, stopping", logging.String("url", pageURL))
		return report, nil
	}
	logger.Info("links discovered", logging.Int("count", len(links)))

	games, err := gamelist.Read(gamesPath)
	if err != nil {
		report.Aborted = AbortNoGames
		logger.Error("games list unreadable, stopping",
			logging.String("file", gamesPath),
			logging.Error(err))
		return report, nil
	}
	report.GamesRequested = len(games)
	if len(games) == 0 {
		report.Aborted = AbortNoGames
		logger.Warn("games list empty, stopping", logging.String("file", gamesPath))
		return report, nil
	}
	logger.Info("games list loaded",
		logging.Int("count", len(games)),
		logging.String("file", gamesPath))

	p.match(ctx, links, games, report, opts.MatchProgress)
	if len(report.Links) == 0 {
		report.Aborted = AbortNoMatches
		logger.Warn("no requested titles matched, stopping",
			logging.Int("requested", len(games)),
			logging.Int("catalog", report.LinksFound))
		return report, nil
	}

	if opts.DryRun {
		logger.Info("dry run, skipping download",
			logging.Int("links", len(report.Links)))
		return report, nil
	}

	report.LinksFile = p.cfg.Paths.LinksFile
	if err := fileutil.WriteLines(report.LinksFile, report.Links); err != nil {
		return report, services.Wrap(services.ErrTransient, "pipeline", "write links file", "failed to write the downloader input file", err)
	}
	logger.Info("links file written",
		logging.Int("count", len(report.Links)),
		logging.String("file", report.LinksFile))

	p.download(ctx, report)

	if p.cfg.Download.Unzip {
		if err := p.extract(ctx, report, opts.ExtractProgress); err != nil {
			return report, err
		}
	}

	logger.Info("run completed",
		logging.Int("matched", len(report.Matched)),
		logging.Int("unmatched", len(report.Unmatched)),
		logging.Int("extracted", report.Extracted),
		logging.Duration("elapsed", time.Since(start)))
	return report, nil
}

// fetchLinks scrapes the listing page. A scrape failure is reported and
// treated as an empty listing rather than ending the run with an error.
func (p *Pipeline) fetchLinks(ctx context.Context, pageURL string, report *Report) []catalog.Link {
	ctx = services.WithStep(ctx, "fetch")
	logger := logging.WithContext(ctx, p.logger)

	links, err := p.fetcher.FetchLinks(ctx, pageURL)
	if err != nil {
		report.FetchError = err.Error()
		logger.Error("link discovery failed",
			logging.String("url", pageURL),
			logging.Error(err))
		return nil
	}
	return links
}

// match scores every requested title against the region-filtered catalog and
// fills the report's matched, unmatched, and download link sets.
func (p *Pipeline) match(ctx context.Context, links []catalog.Link, games []string, report *Report, onProgress func(done, total int)) {
	ctx = services.WithStep(ctx, "match")
	logger := logging.WithContext(ctx, p.logger)

	cat := catalog.Build(links, p.cfg.Source.Region)
	logger.Debug("catalog built",
		logging.Int("titles", cat.Len()),
		logging.String("region", cat.Region()))

	results := p.matcher.MatchAll(games, cat.Titles(), func(done int) {
		if onProgress != nil {
			onProgress(done, len(games))
		}
	})

	matchedSeen := make(map[string]struct{})
	linkSeen := make(map[string]struct{})
	for _, res := range results {
		if !res.Matched {
			continue
		}
		best, ok := variant.Select(cat.Variants(res.Canonical))
		if !ok {
			continue
		}
		if _, dup := matchedSeen[res.Requested]; !dup {
			matchedSeen[res.Requested] = struct{}{}
			report.Matched = append(report.Matched, MatchedTitle{
				Requested: res.Requested,
				Canonical: res.Canonical,
				Score:     res.Score,
				Link:      string(best),
			})
			logger.Debug("title matched",
				logging.String("requested", res.Requested),
				logging.String("canonical", res.Canonical),
				logging.Int("score", res.Score))
		}
		if _, dup := linkSeen[string(best)]; !dup {
			linkSeen[string(best)] = struct{}{}
			report.Links = append(report.Links, string(best))
		}
	}

	unmatchedSeen := make(map[string]struct{})
	for _, res := range results {
		if _, ok := matchedSeen[res.Requested]; ok {
			continue
		}
		if _, dup := unmatchedSeen[res.Requested]; dup {
			continue
		}
		unmatchedSeen[res.Requested] = struct{}{}
		report.Unmatched = append(report.Unmatched, res.Requested)
	}
	sort.Strings(report.Unmatched)

	for _, title := range report.Unmatched {
		logger.Warn("no match found", logging.String("title", title))
	}
	logger.Info("matching complete",
		logging.Int("matched", len(report.Matched)),
		logging.Int("unmatched", len(report.Unmatched)),
		logging.Int("links", len(report.Links)))
}

// download invokes the external downloader. A failure is recorded on the
// report so extraction can still process whatever was downloaded before the
// failure.
func (p *Pipeline) download(ctx context.Context, report *Report) {
	ctx = services.WithStep(ctx, "download")
	logger := logging.WithContext(ctx, p.logger)

	logger.Info("download started",
		logging.Int("links", len(report.Links)),
		logging.String("output_dir", p.cfg.Paths.OutputDir))
	if err := p.downloader.Download(ctx, report.LinksFile, p.cfg.Paths.OutputDir); err != nil {
		report.DownloadError = err.Error()
		logger.Error("download failed, continuing to extraction", logging.Error(err))
		return
	}
	logger.Info("download complete", logging.Int("links", len(report.Links)))
}

// extract unpacks every zip archive sitting in the output directory. Each
// archive is removed only after its extraction succeeds; per-archive failures
// are recorded and the loop continues.
func (p *Pipeline) extract(ctx context.Context, report *Report, onProgress func(done, total int)) error {
	ctx = services.WithStep(ctx, "extract")
	logger := logging.WithContext(ctx, p.logger)

	archives, err := fileutil.ListZipArchives(p.cfg.Paths.OutputDir)
	if err != nil {
		return services.Wrap(services.ErrTransient, "extract", "list archives", "failed to scan the output directory for archives", err)
	}
	if len(archives) == 0 {
		logger.Info("no archives to extract", logging.String("output_dir", p.cfg.Paths.OutputDir))
		return nil
	}

	logger.Info("extraction started", logging.Int("archives", len(archives)))
	for i, archive := range archives {
		name := filepath.Base(archive)
		if err := p.extractor.Extract(ctx, archive, p.cfg.Paths.OutputDir); err != nil {
			report.ExtractionFailures = append(report.ExtractionFailures, ExtractionFailure{Archive: name, Error: err.Error()})
			logger.Warn("extraction failed, archive kept",
				logging.String("archive", name),
				logging.Error(err))
		} else if err := os.Remove(archive); err != nil {
			report.ExtractionFailures = append(report.ExtractionFailures, ExtractionFailure{Archive: name, Error: err.Error()})
			logger.Warn("failed to remove extracted archive",
				logging.String("archive", name),
				logging.Error(err))
		} else {
			report.Extracted++
			logger.Debug("archive extracted", logging.String("archive", name))
		}
		if onProgress != nil {
			onProgress(i+1, len(archives))
		}
	}
	logger.Info("extraction complete",
		logging.Int("extracted", report.Extracted),
		logging.Int("failed", len(report.ExtractionFailures)))
	return nil
}
