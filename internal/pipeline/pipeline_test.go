package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"github.com/angstwad/retro-rom-downloader/internal/catalog"
	"github.com/angstwad/retro-rom-downloader/internal/config"
	"github.com/angstwad/retro-rom-downloader/internal/logging"
	"github.com/angstwad/retro-rom-downloader/internal/pipeline"
	"github.com/angstwad/retro-rom-downloader/internal/services"
	"github.com/angstwad/retro-rom-downloader/internal/testsupport"
)

type fakeFetcher struct {
	links  []catalog.Link
	err    error
	gotURL string
}

func (f *fakeFetcher) FetchLinks(_ context.Context, pageURL string) ([]catalog.Link, error) {
	f.gotURL = pageURL
	return f.links, f.err
}

type stubDownloader struct {
	calls     int
	inputFile string
	destDir   string
	err       error
	onRun     func(destDir string)
}

func (d *stubDownloader) Download(_ context.Context, inputFile, destDir string) error {
	d.calls++
	d.inputFile = inputFile
	d.destDir = destDir
	if d.onRun != nil {
		d.onRun(destDir)
	}
	return d.err
}

type stubExtractor struct {
	extracted []string
	failFor   map[string]error
}

func (e *stubExtractor) Extract(_ context.Context, archivePath, _ string) error {
	if err := e.failFor[filepath.Base(archivePath)]; err != nil {
		return err
	}
	e.extracted = append(e.extracted, archivePath)
	return nil
}

func newTestPipeline(t *testing.T, cfg *config.Config, fetcher *fakeFetcher, dl *stubDownloader, ex *stubExtractor) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.New(cfg, logging.NewNop(), fetcher, dl, ex)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func preparedConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return cfg
}

func links(urls ...string) []catalog.Link {
	out := make([]catalog.Link, 0, len(urls))
	for _, u := range urls {
		out = append(out, catalog.Link(u))
	}
	return out
}

func TestRunSelectsRegionPreferredVariant(t *testing.T) {
	cfg := preparedConfig(t)
	fetcher := &fakeFetcher{links: links(
		"http://x/A (USA).zip",
		"http://x/A (Europe).zip",
		"http://x/A (USA) (Beta).zip",
	)}
	dl := &stubDownloader{onRun: func(destDir string) {
		testsupport.WriteArchive(t, filepath.Join(destDir, "A (USA).zip"))
	}}
	ex := &stubExtractor{}
	p := newTestPipeline(t, cfg, fetcher, dl, ex)

	report, err := p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: testsupport.WriteGamesList(t, t.TempDir(), "A"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if fetcher.gotURL != "http://x/roms/" {
		t.Fatalf("fetched URL = %q", fetcher.gotURL)
	}
	if report.Aborted != "" {
		t.Fatalf("unexpected abort: %q", report.Aborted)
	}
	if report.LinksFound != 3 || report.GamesRequested != 1 {
		t.Fatalf("counts = %d links, %d games", report.LinksFound, report.GamesRequested)
	}
	if len(report.Matched) != 1 {
		t.Fatalf("matched = %+v", report.Matched)
	}
	m := report.Matched[0]
	if m.Requested != "A" || m.Canonical != "A" || m.Score != 100 || m.Link != "http://x/A (USA).zip" {
		t.Fatalf("match = %+v", m)
	}
	if len(report.Unmatched) != 0 {
		t.Fatalf("unmatched = %v", report.Unmatched)
	}
	if len(report.Links) != 1 || report.Links[0] != "http://x/A (USA).zip" {
		t.Fatalf("links = %v", report.Links)
	}

	content, err := os.ReadFile(cfg.Paths.LinksFile)
	if err != nil {
		t.Fatalf("read links file: %v", err)
	}
	if string(content) != "http://x/A (USA).zip\n" {
		t.Fatalf("links file = %q", content)
	}
	if dl.calls != 1 || dl.inputFile != cfg.Paths.LinksFile || dl.destDir != cfg.Paths.OutputDir {
		t.Fatalf("downloader saw calls=%d input=%q dest=%q", dl.calls, dl.inputFile, dl.destDir)
	}

	if report.Extracted != 1 || len(report.ExtractionFailures) != 0 {
		t.Fatalf("extraction = %d ok, %v failures", report.Extracted, report.ExtractionFailures)
	}
	archive := filepath.Join(cfg.Paths.OutputDir, "A (USA).zip")
	if len(ex.extracted) != 1 || ex.extracted[0] != archive {
		t.Fatalf("extractor saw %v", ex.extracted)
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Fatalf("archive should be removed after extraction, stat err = %v", err)
	}
	if !report.Completed() {
		t.Fatal("report should count as completed")
	}
	if report.RunID == "" {
		t.Fatal("run ID missing")
	}
}

func TestRunAbortsWhenListingEmpty(t *testing.T) {
	cfg := preparedConfig(t)
	dl := &stubDownloader{}
	p := newTestPipeline(t, cfg, &fakeFetcher{}, dl, &stubExtractor{})

	report, err := p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: testsupport.WriteGamesList(t, t.TempDir(), "A"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Aborted != pipeline.AbortNoLinks {
		t.Fatalf("aborted = %q", report.Aborted)
	}
	if report.LinksFound != 0 || dl.calls != 0 {
		t.Fatalf("links=%d downloads=%d", report.LinksFound, dl.calls)
	}
	if report.Completed() {
		t.Fatal("aborted run must not count as completed")
	}
}

func TestRunAbortsOnFetchError(t *testing.T) {
	cfg := preparedConfig(t)
	dl := &stubDownloader{}
	fetcher := &fakeFetcher{err: errors.New("status 503")}
	p := newTestPipeline(t, cfg, fetcher, dl, &stubExtractor{})

	report, err := p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: testsupport.WriteGamesList(t, t.TempDir(), "A"),
	})
	if err != nil {
		t.Fatalf("fetch failures are soft, got error: %v", err)
	}
	if report.Aborted != pipeline.AbortNoLinks {
		t.Fatalf("aborted = %q", report.Aborted)
	}
	if !strings.Contains(report.FetchError, "status 503") {
		t.Fatalf("fetch error = %q", report.FetchError)
	}
	if dl.calls != 0 {
		t.Fatalf("downloader ran %d times", dl.calls)
	}
}

func TestRunAbortsWhenGamesListEmpty(t *testing.T) {
	cfg := preparedConfig(t)
	dl := &stubDownloader{}
	fetcher := &fakeFetcher{links: links("http://x/A (USA).zip")}
	p := newTestPipeline(t, cfg, fetcher, dl, &stubExtractor{})

	report, err := p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: testsupport.WriteGamesList(t, t.TempDir()),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Aborted != pipeline.AbortNoGames {
		t.Fatalf("aborted = %q", report.Aborted)
	}
	if report.GamesRequested != 0 || dl.calls != 0 {
		t.Fatalf("games=%d downloads=%d", report.GamesRequested, dl.calls)
	}
}

func TestRunAbortsWhenGamesListMissing(t *testing.T) {
	cfg := preparedConfig(t)
	dl := &stubDownloader{}
	fetcher := &fakeFetcher{links: links("http://x/A (USA).zip")}
	p := newTestPipeline(t, cfg, fetcher, dl, &stubExtractor{})

	report, err := p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: filepath.Join(t.TempDir(), "missing.txt"),
	})
	if err != nil {
		t.Fatalf("unreadable games list is a soft stop, got error: %v", err)
	}
	if report.Aborted != pipeline.AbortNoGames {
		t.Fatalf("aborted = %q", report.Aborted)
	}
	if dl.calls != 0 {
		t.Fatalf("downloader ran %d times", dl.calls)
	}
}

func TestRunAbortsWhenNothingMatches(t *testing.T) {
	cfg := preparedConfig(t)
	dl := &stubDownloader{}
	fetcher := &fakeFetcher{links: links("http://x/Chrono Trigger (USA).zip")}
	p := newTestPipeline(t, cfg, fetcher, dl, &stubExtractor{})

	report, err := p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: testsupport.WriteGamesList(t, t.TempDir(), "Zed Omega", "Alpha Beta"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Aborted != pipeline.AbortNoMatches {
		t.Fatalf("aborted = %q", report.Aborted)
	}
	if got := strings.Join(report.Unmatched, "|"); got != "Alpha Beta|Zed Omega" {
		t.Fatalf("unmatched = %q, want sorted order", got)
	}
	if dl.calls != 0 {
		t.Fatalf("downloader ran %d times", dl.calls)
	}
}

func TestRunDeduplicatesRepeatedTitles(t *testing.T) {
	cfg := preparedConfig(t)
	dl := &stubDownloader{}
	fetcher := &fakeFetcher{links: links("http://x/A (USA).zip")}
	p := newTestPipeline(t, cfg, fetcher, dl, &stubExtractor{})

	report, err := p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: testsupport.WriteGamesList(t, t.TempDir(), "A", "A"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.GamesRequested != 2 {
		t.Fatalf("games requested = %d", report.GamesRequested)
	}
	if len(report.Matched) != 1 || len(report.Links) != 1 {
		t.Fatalf("matched=%d links=%d, want one each", len(report.Matched), len(report.Links))
	}
	if len(report.Unmatched) != 0 {
		t.Fatalf("unmatched = %v", report.Unmatched)
	}
}

func TestRunDownloadFailureStillExtracts(t *testing.T) {
	cfg := preparedConfig(t)
	fetcher := &fakeFetcher{links: links("http://x/A (USA).zip")}
	dl := &stubDownloader{
		err: errors.New("exit status 1"),
		onRun: func(destDir string) {
			testsupport.WriteArchive(t, filepath.Join(destDir, "A (USA).zip"))
		},
	}
	ex := &stubExtractor{}
	p := newTestPipeline(t, cfg, fetcher, dl, ex)

	report, err := p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: testsupport.WriteGamesList(t, t.TempDir(), "A"),
	})
	if err != nil {
		t.Fatalf("download failures are soft, got error: %v", err)
	}
	if !strings.Contains(report.DownloadError, "exit status 1") {
		t.Fatalf("download error = %q", report.DownloadError)
	}
	if report.Extracted != 1 || len(ex.extracted) != 1 {
		t.Fatalf("extraction should still run, extracted=%d", report.Extracted)
	}
}

func TestRunExtractionFailureKeepsArchive(t *testing.T) {
	cfg := preparedConfig(t)
	fetcher := &fakeFetcher{links: links("http://x/A (USA).zip")}
	dl := &stubDownloader{onRun: func(destDir string) {
		testsupport.WriteArchive(t, filepath.Join(destDir, "A (USA).zip"))
	}}
	ex := &stubExtractor{failFor: map[string]error{
		"A (USA).zip": errors.New("corrupt archive"),
	}}
	p := newTestPipeline(t, cfg, fetcher, dl, ex)

	report, err := p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: testsupport.WriteGamesList(t, t.TempDir(), "A"),
	})
	if err != nil {
		t.Fatalf("extraction failures are soft, got error: %v", err)
	}
	if report.Extracted != 0 || len(report.ExtractionFailures) != 1 {
		t.Fatalf("extraction = %d ok, %v failures", report.Extracted, report.ExtractionFailures)
	}
	failure := report.ExtractionFailures[0]
	if failure.Archive != "A (USA).zip" || !strings.Contains(failure.Error, "corrupt archive") {
		t.Fatalf("failure = %+v", failure)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "A (USA).zip")); err != nil {
		t.Fatalf("failed archive must be kept: %v", err)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	cfg := preparedConfig(t)
	fetcher := &fakeFetcher{links: links("http://x/A (USA).zip")}
	dl := &stubDownloader{}
	ex := &stubExtractor{}
	p := newTestPipeline(t, cfg, fetcher, dl, ex)

	report, err := p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: testsupport.WriteGamesList(t, t.TempDir(), "A"),
		DryRun:        true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Aborted != "" {
		t.Fatalf("unexpected abort: %q", report.Aborted)
	}
	if len(report.Links) != 1 {
		t.Fatalf("links = %v", report.Links)
	}
	if report.LinksFile != "" {
		t.Fatalf("dry run should not name a links file, got %q", report.LinksFile)
	}
	if _, err := os.Stat(cfg.Paths.LinksFile); !os.IsNotExist(err) {
		t.Fatalf("dry run must not write the links file, stat err = %v", err)
	}
	if dl.calls != 0 || len(ex.extracted) != 0 {
		t.Fatalf("dry run invoked downloads=%d extracts=%d", dl.calls, len(ex.extracted))
	}
	if report.Completed() {
		t.Fatal("dry run must not count as completed")
	}
}

func TestRunSkipsExtractionWhenDisabled(t *testing.T) {
	cfg := preparedConfig(t, testsupport.WithUnzipDisabled())
	fetcher := &fakeFetcher{links: links("http://x/A (USA).zip")}
	dl := &stubDownloader{onRun: func(destDir string) {
		testsupport.WriteArchive(t, filepath.Join(destDir, "A (USA).zip"))
	}}
	ex := &stubExtractor{}
	p := newTestPipeline(t, cfg, fetcher, dl, ex)

	report, err := p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: testsupport.WriteGamesList(t, t.TempDir(), "A"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ex.extracted) != 0 || report.Extracted != 0 {
		t.Fatalf("extraction ran despite being disabled: %v", ex.extracted)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "A (USA).zip")); err != nil {
		t.Fatalf("archive should remain on disk: %v", err)
	}
}

func TestRunBlockedByConcurrentRun(t *testing.T) {
	cfg := preparedConfig(t)
	fetcher := &fakeFetcher{links: links("http://x/A (USA).zip")}
	p := newTestPipeline(t, cfg, fetcher, &stubDownloader{}, &stubExtractor{})

	held := flock.New(filepath.Join(cfg.Paths.OutputDir, ".romdl.lock"))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("prelock failed: locked=%v err=%v", locked, err)
	}
	defer func() { _ = held.Unlock() }()

	_, err = p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: testsupport.WriteGamesList(t, t.TempDir(), "A"),
	})
	if err == nil {
		t.Fatal("expected a lock conflict error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("error = %v, want transient marker", err)
	}
}

func TestRunReportsProgress(t *testing.T) {
	cfg := preparedConfig(t)
	fetcher := &fakeFetcher{links: links(
		"http://x/A (USA).zip",
		"http://x/B (USA).zip",
	)}
	dl := &stubDownloader{onRun: func(destDir string) {
		testsupport.WriteArchive(t, filepath.Join(destDir, "A (USA).zip"))
		testsupport.WriteArchive(t, filepath.Join(destDir, "B (USA).zip"))
	}}
	p := newTestPipeline(t, cfg, fetcher, dl, &stubExtractor{})

	var matchCalls, extractCalls int
	var lastMatchTotal, lastExtractTotal int
	report, err := p.Run(context.Background(), pipeline.Options{
		PageURL:       "http://x/roms/",
		GamesListPath: testsupport.WriteGamesList(t, t.TempDir(), "A", "B"),
		MatchProgress: func(done, total int) {
			matchCalls++
			lastMatchTotal = total
		},
		ExtractProgress: func(done, total int) {
			extractCalls++
			lastExtractTotal = total
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Aborted != "" {
		t.Fatalf("unexpected abort: %q", report.Aborted)
	}
	if matchCalls != 2 || lastMatchTotal != 2 {
		t.Fatalf("match progress calls=%d total=%d", matchCalls, lastMatchTotal)
	}
	if extractCalls != 2 || lastExtractTotal != 2 {
		t.Fatalf("extract progress calls=%d total=%d", extractCalls, lastExtractTotal)
	}
}

func TestRunValidatesOptions(t *testing.T) {
	cfg := preparedConfig(t)
	p := newTestPipeline(t, cfg, &fakeFetcher{}, &stubDownloader{}, &stubExtractor{})

	if _, err := p.Run(context.Background(), pipeline.Options{GamesListPath: "games.txt"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing URL error = %v", err)
	}
	if _, err := p.Run(context.Background(), pipeline.Options{PageURL: "http://x/"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing games list error = %v", err)
	}
}

func TestNewValidatesCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := &fakeFetcher{}
	dl := &stubDownloader{}
	ex := &stubExtractor{}

	if _, err := pipeline.New(nil, nil, fetcher, dl, ex); err == nil {
		t.Fatal("nil config accepted")
	}
	if _, err := pipeline.New(cfg, nil, nil, dl, ex); err == nil {
		t.Fatal("nil fetcher accepted")
	}
	if _, err := pipeline.New(cfg, nil, fetcher, nil, ex); err == nil {
		t.Fatal("nil downloader accepted")
	}
	if _, err := pipeline.New(cfg, nil, fetcher, dl, nil); err == nil {
		t.Fatal("nil extractor accepted")
	}
	if _, err := pipeline.New(cfg, nil, fetcher, dl, ex); err != nil {
		t.Fatalf("nil logger should be allowed: %v", err)
	}
}
