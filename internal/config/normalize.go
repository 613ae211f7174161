package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSource()
	c.normalizeMatching()
	c.normalizeDownload()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LinksFile) == "" {
		c.Paths.LinksFile = defaultLinksFile
	}
	if c.Paths.LinksFile, err = expandPath(c.Paths.LinksFile); err != nil {
		return fmt.Errorf("paths.links_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeSource() {
	c.Source.PageURL = strings.TrimSpace(c.Source.PageURL)
	// Region stays case-sensitive: the filter looks for the literal tag as
	// published in the listing ("(USA)", not "(usa)").
	c.Source.Region = strings.TrimSpace(c.Source.Region)
	if c.Source.Region == "" {
		c.Source.Region = defaultRegion
	}
	if c.Source.FetchTimeoutSeconds <= 0 {
		c.Source.FetchTimeoutSeconds = defaultFetchTimeout
	}
}

func (c *Config) normalizeMatching() {
	if c.Matching.Threshold <= 0 {
		c.Matching.Threshold = defaultMatchThreshold
	}
	if c.Matching.Workers < 0 {
		c.Matching.Workers = 0
	}
}

func (c *Config) normalizeDownload() {
	if c.Download.Connections <= 0 {
		c.Download.Connections = defaultConnections
	}
	if c.Download.Splits <= 0 {
		c.Download.Splits = defaultSplits
	}
	c.Download.MinSplitSize = strings.TrimSpace(c.Download.MinSplitSize)
	if c.Download.MinSplitSize == "" {
		c.Download.MinSplitSize = defaultMinSplitSize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
