// Package gamelist loads the titles a user asked to download.
package gamelist

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/angstwad/retro-rom-downloader/internal/services"
)

// Read returns the trimmed, non-empty lines of the games list at path, in
// file order. Duplicates are preserved; later stages collapse repeats when
// they resolve to the same download. A missing file carries the not-found
// marker so callers can tell it apart from read failures.
func Read(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, fs.ErrNotExist) {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, "games list", "open", fmt.Sprintf("cannot open %q", path), err)
	}
	defer f.Close()

	var titles []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		titles = append(titles, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "games list", "read", fmt.Sprintf("cannot read %q", path), err)
	}
	return titles, nil
}
