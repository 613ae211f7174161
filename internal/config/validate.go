package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// aria2c sizes: a bare byte count or K/M suffixed.
var sizePattern = regexp.MustCompile(`(?i)^[0-9]+[km]?$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.PageURL != "" {
		parsed, err := url.Parse(c.Source.PageURL)
		if err != nil {
			return fmt.Errorf("source.page_url: %w", err)
		}
		if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("source.page_url %q must be an absolute http(s) URL", c.Source.PageURL)
		}
	}
	if c.Source.Region == "" {
		return errors.New("source.region must be set")
	}
	if c.Source.FetchTimeoutSeconds <= 0 {
		return errors.New("source.fetch_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.Threshold < 1 || c.Matching.Threshold > 100 {
		return errors.New("matching.threshold must be between 1 and 100")
	}
	if c.Matching.Workers < 0 {
		return errors.New("matching.workers must be >= 0 (0 means one per CPU)")
	}
	return nil
}

func (c *Config) validateDownload() error {
	// aria2c rejects -x values above 16.
	if c.Download.Connections < 1 || c.Download.Connections > 16 {
		return errors.New("download.connections must be between 1 and 16")
	}
	if c.Download.Splits < 1 {
		return errors.New("download.splits must be positive")
	}
	if !sizePattern.MatchString(c.Download.MinSplitSize) {
		return fmt.Errorf("download.min_split_size %q is not a valid size (use a byte count, optionally suffixed K or M)", c.Download.MinSplitSize)
	}
	return nil
}
