// Package renamer cleans downloaded filenames in place: parenthetical tags
// are stripped from the stem and a trailing ", The" moves to the front.
package renamer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/angstwad/retro-rom-downloader/internal/logging"
	"github.com/angstwad/retro-rom-downloader/internal/services"
)

var parenTags = regexp.MustCompile(`\s*\([^)]*\)`)

// CleanName derives the rename target for a filename. The extension is
// preserved; parenthetical tags are removed from the stem; a trailing
// ", The" becomes a leading "The ".
func CleanName(filename string) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	clean := parenTags.ReplaceAllString(stem, "")
	if strings.HasSuffix(clean, ", The") {
		clean = "The " + strings.TrimSuffix(clean, ", The")
	}
	return strings.TrimSpace(clean) + ext
}

// Failure records one file that could not be renamed.
type Failure struct {
	Path string
	Err  error
}

// Result summarizes a rename pass.
type Result struct {
	Scanned  int
	Renamed  int
	Failures []Failure
}

// Renamer walks a directory tree and renames files whose clean name differs
// from their current name.
type Renamer struct {
	logger *slog.Logger
}

// New returns a Renamer that logs through the provided logger.
func New(logger *slog.Logger) *Renamer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renamer{logger: logging.NewComponentLogger(logger, "renamer")}
}

// Run renames every file under dir whose cleaned name differs. The file list
// is collected before any rename so already-renamed entries are not
// revisited. Per-file failures are recorded and the pass continues; when two
// files clean to the same name the later rename replaces the earlier file.
func (r *Renamer) Run(ctx context.Context, dir string, onProgress func(done, total int)) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "rename", "check directory", fmt.Sprintf("Cannot access %q", dir), err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "rename", "check directory", fmt.Sprintf("%q is not a directory", dir), nil)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "rename", "walk directory", fmt.Sprintf("Failed to walk %q", dir), err)
	}

	logger := logging.WithContext(ctx, r.logger)
	logger.Info("scanning complete", logging.Int("files", len(files)))

	result := &Result{Scanned: len(files)}
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return result, services.Wrap(services.ErrTransient, "rename", "walk directory", "Rename pass interrupted", err)
		}

		name := filepath.Base(path)
		cleaned := CleanName(name)
		if cleaned != name {
			newPath := filepath.Join(filepath.Dir(path), cleaned)
			if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
				result.Failures = append(result.Failures, Failure{Path: path, Err: err})
				logger.Warn("rename failed", logging.String("file", name), logging.Error(err))
			} else if err := os.Rename(path, newPath); err != nil {
				result.Failures = append(result.Failures, Failure{Path: path, Err: err})
				logger.Warn("rename failed", logging.String("file", name), logging.Error(err))
			} else {
				result.Renamed++
				logger.Info("renamed file", logging.String("from", name), logging.String("to", cleaned))
			}
		}

		if onProgress != nil {
			onProgress(i+1, len(files))
		}
	}
	return result, nil
}
