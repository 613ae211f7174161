// Package aria2 wraps the aria2c downloader CLI.
package aria2

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/angstwad/retro-rom-downloader/internal/services"
	"github.com/angstwad/retro-rom-downloader/internal/services/command"
)

// Downloader fetches every URL listed in an input file into a destination
// directory.
type Downloader interface {
	Download(ctx context.Context, inputFile, destDir string) error
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

// Client invokes aria2c for segmented, multi-connection downloads.
type Client struct {
	binary       string
	connections  int
	splits       int
	minSplitSize string
	exec         command.Executor
}

// New constructs an aria2c client. connections and splits below one fall
// back to a single connection; minSplitSize keeps aria2c's piece size (for
// example "1M").
func New(binary string, connections, splits int, minSplitSize string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("aria2c binary required")
	}
	if connections < 1 {
		connections = 1
	}
	if splits < 1 {
		splits = 1
	}
	if strings.TrimSpace(minSplitSize) == "" {
		minSplitSize = "1M"
	}
	client := &Client{
		binary:       binary,
		connections:  connections,
		splits:       splits,
		minSplitSize: minSplitSize,
		exec:         command.New(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Download runs aria2c over the URLs in inputFile, writing files into
// destDir. aria2c's own console reporting is left visible so long transfers
// show progress; a non-zero exit comes back as an error.
func (c *Client) Download(ctx context.Context, inputFile, destDir string) error {
	if strings.TrimSpace(inputFile) == "" {
		return errors.New("input file required")
	}
	if strings.TrimSpace(destDir) == "" {
		return errors.New("destination directory required")
	}

	args := []string{
		"-i", inputFile,
		"-d", destDir,
		"--console-log-level=warn",
		"-x", strconv.Itoa(c.connections),
		"-s", strconv.Itoa(c.splits),
		"-k", c.minSplitSize,
	}
	if err := c.exec.Run(ctx, c.binary, args, nil); err != nil {
		return services.Wrap(services.ErrExternalTool, "download", "aria2c", "downloader exited with an error", err)
	}
	return nil
}
