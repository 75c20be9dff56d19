package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Default values
const (
	DefaultQuality           = 89
	DefaultConcurrency       = 8
	DefaultProbeTimeoutSecs  = 30
	DefaultUploadConcurrency = 10
	DefaultReportDir         = "./reports"
	DefaultFfprobeBinary     = "ffprobe"
	DefaultMagickBinary      = "magick"
)

// SetDefaults sets default values for the configuration
func SetDefaults() {
	// Conversion options
	viper.SetDefault("quality", DefaultQuality)
	viper.SetDefault("lossless", false)
	viper.SetDefault("append-name", true)

	// Processing options
	viper.SetDefault("concurrency", DefaultConcurrency)
	viper.SetDefault("extensions", DefaultExtensions())
	viper.SetDefault("probe-timeout", DefaultProbeTimeoutSecs)

	// Tool locations
	viper.SetDefault("ffprobe-path", DefaultFfprobeBinary)
	viper.SetDefault("magick-path", DefaultMagickBinary)

	// Logging options
	viper.SetDefault("verbose", false)
	viper.SetDefault("log-file", "")

	// Report settings
	viper.SetDefault("reports.dir", DefaultReportDir)
	viper.SetDefault("reports.formats", []string{"markdown", "json"})

	// Remote upload settings
	viper.SetDefault("upload.concurrency", DefaultUploadConcurrency)
}

// LoadConfig loads configuration from various sources
func LoadConfig() (*Config, error) {
	SetDefaults()

	// Set config name and paths
	viper.SetConfigName("webpmill")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.webpmill")
	viper.AddConfigPath("/etc/webpmill/")

	// Enable environment variable support
	viper.SetEnvPrefix("WEBPMILL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// Try to read config file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is okay, we'll use defaults and CLI flags
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(&config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	return &config, nil
}

// postProcessConfig performs validation and adjustments to the configuration
func postProcessConfig(config *Config) error {
	config.Extensions = normalizeExtensions(config.Extensions)
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultExtensions()
	}

	if config.Quality < 1 || config.Quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", config.Quality)
	}

	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}

	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = DefaultProbeTimeoutSecs
	}

	if config.FfprobePath == "" {
		config.FfprobePath = DefaultFfprobeBinary
	}
	if config.MagickPath == "" {
		config.MagickPath = DefaultMagickBinary
	}

	if config.Upload.Concurrency <= 0 {
		config.Upload.Concurrency = DefaultUploadConcurrency
	}

	return nil
}

// normalizeExtensions lowercases extensions and ensures each carries a dot
func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return normalized
}

// ValidateConfig performs comprehensive validation of the configuration
func ValidateConfig(config *Config) error {
	var errors []string

	if config.InputDir == "" {
		errors = append(errors, "input directory is required")
	} else if _, err := os.Stat(config.InputDir); os.IsNotExist(err) {
		errors = append(errors, fmt.Sprintf("input directory does not exist: %s", config.InputDir))
	}

	if config.OutputDir == "" {
		errors = append(errors, "output directory is required")
	}

	if config.Reports.Dir != "" {
		if err := os.MkdirAll(config.Reports.Dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create report directory %s: %v", config.Reports.Dir, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

// SetupLogging configures logging based on the configuration
func SetupLogging(verbose bool, logFile string) (*zap.Logger, error) {
	var config zap.Config

	if verbose {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Customize output format
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.CallerKey = "caller"
	config.EncoderConfig.MessageKey = "message"

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	if logFile != "" {
		config.OutputPaths = append(config.OutputPaths, logFile)
		config.ErrorOutputPaths = append(config.ErrorOutputPaths, logFile)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Logging initialized",
		zap.String("level", config.Level.String()),
		zap.String("log_file", logFile),
	)

	return logger, nil
}
