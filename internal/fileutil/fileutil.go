package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WriteLines writes one value per line to path, creating parent directories
// as needed. An existing file is truncated. The output ends with a newline,
// the line-oriented format aria2c expects for its input file.
func WriteLines(path string, lines []string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

// ListZipArchives returns the .zip files directly under dir, sorted by name
// so extraction order is stable. Subdirectories are not descended into.
func ListZipArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %q: %w", dir, err)
	}

	var archives []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".zip") {
			archives = append(archives, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(archives)
	return archives, nil
}
