package config

const (
	defaultOutputDir      = "downloads"
	defaultLogDir         = "~/.local/share/romdl/logs"
	defaultLinksFile      = "aria2c-input.txt"
	defaultRegion         = "USA"
	defaultFetchTimeout   = 60
	defaultMatchThreshold = 85
	defaultConnections    = 16
	defaultSplits         = 16
	defaultMinSplitSize   = "1M"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			LinksFile: defaultLinksFile,
		},
		Source: Source{
			Region:              defaultRegion,
			FetchTimeoutSeconds: defaultFetchTimeout,
		},
		Matching: Matching{
			Threshold: defaultMatchThreshold,
			// Workers zero means one worker per CPU.
		},
		Download: Download{
			Connections:  defaultConnections,
			Splits:       defaultSplits,
			MinSplitSize: defaultMinSplitSize,
			Unzip:        true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
