package config

import (
	"time"
)

// ReportSettings defines report file generation settings
type ReportSettings struct {
	Dir     string   `mapstructure:"dir"`
	Formats []string `mapstructure:"formats"`
}

// UploadSettings defines the optional remote upload mirror
type UploadSettings struct {
	Bucket      string `mapstructure:"bucket"`
	Prefix      string `mapstructure:"prefix"`
	Region      string `mapstructure:"region"`
	Profile     string `mapstructure:"profile"`
	Endpoint    string `mapstructure:"endpoint"`
	Concurrency int    `mapstructure:"concurrency"`
}

// Config represents the complete application configuration
type Config struct {
	// Input and output roots
	InputDir  string `mapstructure:"input-dir"`
	OutputDir string `mapstructure:"output-dir"`

	// Conversion options
	Quality    int  `mapstructure:"quality"`
	Lossless   bool `mapstructure:"lossless"`
	AppendName bool `mapstructure:"append-name"`

	// Processing options
	Concurrency  int      `mapstructure:"concurrency"`
	Extensions   []string `mapstructure:"extensions"`
	ProbeTimeout int      `mapstructure:"probe-timeout"`

	// Tool locations
	FfprobePath string `mapstructure:"ffprobe-path"`
	MagickPath  string `mapstructure:"magick-path"`

	// Logging options
	Verbose bool   `mapstructure:"verbose"`
	LogFile string `mapstructure:"log-file"`

	// Report settings
	Reports ReportSettings `mapstructure:"reports"`

	// Remote upload settings
	Upload UploadSettings `mapstructure:"upload"`
}

// ProbeTimeoutDuration returns the probe timeout as a duration
func (c *Config) ProbeTimeoutDuration() time.Duration {
	return time.Duration(c.ProbeTimeout) * time.Second
}

// DefaultExtensions returns the source extensions considered for conversion
func DefaultExtensions() []string {
	return []string{".avif", ".bmp", ".gif", ".jpeg", ".jpg", ".png", ".tiff", ".tif", ".webp"}
}
