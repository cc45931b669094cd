package logger

import "fmt"

// Config holds logger configuration
type Config struct {
	Level            string     `mapstructure:"level"`  // debug | info | warn | error
	Format           string     `mapstructure:"format"` // json | console
	Output           string     `mapstructure:"output"` // console | file | both
	File             FileConfig `mapstructure:"file"`
	EnableCaller     bool       `mapstructure:"enable_caller"`
	EnableStacktrace bool       `mapstructure:"enable_stacktrace"`
}

// FileConfig holds log file rotation settings
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxAge     int    `mapstructure:"max_age"`  // days
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a console logger configuration suitable for development
func DefaultConfig() *Config {
	return &Config{
		Level:        "info",
		Format:       "console",
		Output:       "console",
		EnableCaller: true,
		File: FileConfig{
			Filename:   "logs/supportloop.log",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 10,
		},
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	switch c.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	switch c.Output {
	case "", "console", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %s", c.Output)
	}

	if (c.Output == "file" || c.Output == "both") && c.File.Filename == "" {
		return fmt.Errorf("log file output requires a filename")
	}

	return nil
}
