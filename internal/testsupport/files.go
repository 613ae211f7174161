package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteGamesList writes one title per line into a games list file under dir
// and returns its path.
func WriteGamesList(t testing.TB, dir string, titles ...string) string {
	t.Helper()

	path := filepath.Join(dir, "games.txt")
	content := strings.Join(titles, "\n")
	if len(titles) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write games list: %v", err)
	}
	return path
}

// WriteArchive drops a placeholder archive file at path, creating parent
// directories as needed. The content is not a real zip; tests stub the
// extractor binary.
func WriteArchive(t testing.TB, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("PK\x03\x04 stub"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
