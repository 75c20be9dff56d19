package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"webpmill/internal/scheduler"
	"webpmill/pkg/config"
	"webpmill/pkg/magick"
	"webpmill/pkg/probe"
	"webpmill/pkg/reporting"
	"webpmill/pkg/storage"
)

// ErrConversionsFailed reports that at least one file failed to convert.
var ErrConversionsFailed = errors.New("some conversions failed")

// NewConvertCommand creates the convert command
func NewConvertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a directory tree of images to WebP",
		Long: `Recursively scan the input directory for images, classify each file with
ffprobe, and convert recognized images to WebP with ImageMagick. The output
directory mirrors the input layout. Animated PNGs keep their animation;
files with unrecognized codecs are reported and left untouched.`,
		RunE: runConvert,
	}

	addConvertFlags(cmd)
	return cmd
}

func addConvertFlags(cmd *cobra.Command) {
	// Required flags
	cmd.Flags().StringP("input-dir", "i", "", "Input directory to scan for images (required)")
	cmd.Flags().StringP("output-dir", "o", "", "Output directory for converted files (required)")

	// Optional flags
	cmd.Flags().IntP("quality", "q", config.DefaultQuality, "WebP quality (1-100)")
	cmd.Flags().Bool("lossless", false, "Use lossless WebP compression")
	cmd.Flags().Bool("append-name", true, "Rename colliding destinations with a numeric suffix instead of skipping them")
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency, "Maximum number of concurrent conversions")
	cmd.Flags().StringSlice("extensions", config.DefaultExtensions(), "Source extensions to consider")
	cmd.Flags().Int("probe-timeout", config.DefaultProbeTimeoutSecs, "ffprobe timeout in seconds")
	cmd.Flags().String("ffprobe-path", config.DefaultFfprobeBinary, "Path to the ffprobe binary")
	cmd.Flags().String("magick-path", config.DefaultMagickBinary, "Path to the magick binary")
	cmd.Flags().String("report-dir", config.DefaultReportDir, "Directory for run reports")
	cmd.Flags().StringSlice("report-formats", []string{"markdown", "json"}, "Report formats (markdown, json)")
	cmd.Flags().String("upload-bucket", "", "S3 bucket to mirror converted files into")
	cmd.Flags().String("upload-prefix", "", "Key prefix for uploaded files")
	cmd.Flags().String("upload-region", "", "AWS region for uploads")
	cmd.Flags().String("upload-profile", "", "AWS shared config profile for uploads")
	cmd.Flags().String("upload-endpoint", "", "Custom S3 endpoint (for S3-compatible services)")

	// Mark required flags
	cmd.MarkFlagRequired("input-dir")
	cmd.MarkFlagRequired("output-dir")

	// Bind flags to viper
	viper.BindPFlags(cmd.Flags())
	viper.BindPFlag("reports.dir", cmd.Flags().Lookup("report-dir"))
	viper.BindPFlag("reports.formats", cmd.Flags().Lookup("report-formats"))
	viper.BindPFlag("upload.bucket", cmd.Flags().Lookup("upload-bucket"))
	viper.BindPFlag("upload.prefix", cmd.Flags().Lookup("upload-prefix"))
	viper.BindPFlag("upload.region", cmd.Flags().Lookup("upload-region"))
	viper.BindPFlag("upload.profile", cmd.Flags().Lookup("upload-profile"))
	viper.BindPFlag("upload.endpoint", cmd.Flags().Lookup("upload-endpoint"))
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Get logger from context
	logger, ok := ctx.Value("logger").(*zap.Logger)
	if !ok {
		return fmt.Errorf("logger not found in context")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	logger.Info("Starting WebP conversion run",
		zap.String("input_dir", cfg.InputDir),
		zap.String("output_dir", cfg.OutputDir),
		zap.Int("quality", cfg.Quality),
		zap.Bool("lossless", cfg.Lossless),
		zap.Int("concurrency", cfg.Concurrency))

	return executeConvert(ctx, cfg, logger)
}

// executeConvert runs the conversion pipeline end to end
func executeConvert(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	prober := probe.NewProberWithPath(cfg.FfprobePath, cfg.ProbeTimeoutDuration(), logger)
	if err := prober.Available(); err != nil {
		return err
	}

	converter := magick.NewConverterWithPath(cfg.MagickPath, prober, logger)
	if err := converter.Available(); err != nil {
		return err
	}

	opts := scheduler.Options{
		InputRoot:   cfg.InputDir,
		OutputRoot:  cfg.OutputDir,
		Quality:     cfg.Quality,
		Lossless:    cfg.Lossless,
		AppendName:  cfg.AppendName,
		Concurrency: cfg.Concurrency,
		Extensions:  cfg.Extensions,
	}

	report, runErr := scheduler.New(opts, prober, converter, logger).Run(ctx)

	if report != nil {
		generator := reporting.NewGenerator(logger)
		generator.WriteSummary(os.Stdout, report)

		reportConfig := reporting.DefaultReportConfig()
		reportConfig.OutputDir = cfg.Reports.Dir
		reportConfig.Format = cfg.Reports.Formats
		if err := generator.WriteReports(report, reportConfig); err != nil {
			logger.Warn("Failed to write report files", zap.Error(err))
		}
	}

	if runErr != nil {
		return runErr
	}

	if cfg.Upload.Bucket != "" && report.Succeeded > 0 {
		if err := uploadOutputs(ctx, cfg, logger); err != nil {
			logger.Warn("Upload sync failed", zap.Error(err))
		}
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d file(s) failed: %w", report.Failed, ErrConversionsFailed)
	}

	return nil
}

// uploadOutputs mirrors the output tree into the configured bucket. Upload
// problems are reported but never change conversion outcomes.
func uploadOutputs(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	uploadConfig := storage.UploadConfig{
		Bucket:      cfg.Upload.Bucket,
		Prefix:      cfg.Upload.Prefix,
		AWSRegion:   cfg.Upload.Region,
		AWSProfile:  cfg.Upload.Profile,
		AWSEndpoint: cfg.Upload.Endpoint,
		Concurrency: cfg.Upload.Concurrency,
	}

	store, err := storage.NewObjectStore(ctx, uploadConfig, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := storage.NewSyncer(store, uploadConfig, logger).SyncDir(ctx, cfg.OutputDir)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		logger.Warn("Some uploads failed",
			zap.Int("uploaded", summary.Uploaded),
			zap.Int("failed", summary.Failed))
	}
	return nil
}
