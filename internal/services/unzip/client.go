// Package unzip wraps the unzip CLI for archive extraction.
package unzip

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/angstwad/retro-rom-downloader/internal/services"
	"github.com/angstwad/retro-rom-downloader/internal/services/command"
)

// Extractor unpacks one archive into a destination directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec command.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client invokes the unzip binary.
type Client struct {
	binary string
	exec   command.Executor
}

// New constructs an unzip client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("unzip binary required")
	}
	client := &Client{
		binary: binary,
		exec:   command.New(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Extract unpacks archivePath into destDir, overwriting files that already
// exist. unzip's listing output is captured rather than shown; the tail of
// it is folded into the error when extraction fails.
func (c *Client) Extract(ctx context.Context, archivePath, destDir string) error {
	if strings.TrimSpace(archivePath) == "" {
		return errors.New("archive path required")
	}
	if strings.TrimSpace(destDir) == "" {
		return errors.New("destination directory required")
	}

	var tail []string
	err := c.exec.Run(ctx, c.binary, []string{"-o", archivePath, "-d", destDir}, func(line string) {
		tail = append(tail, line)
		if len(tail) > 5 {
			tail = tail[1:]
		}
	})
	if err != nil {
		msg := fmt.Sprintf("failed to extract %s", filepath.Base(archivePath))
		if len(tail) > 0 {
			msg += " (" + strings.Join(tail, "; ") + ")"
		}
		return services.Wrap(services.ErrExternalTool, "extract", "unzip", msg, err)
	}
	return nil
}
