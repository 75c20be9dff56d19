package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"webpmill/cmd/webpmill/commands"
	"webpmill/pkg/config"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		fmt.Println("\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	// Create root command
	rootCmd := &cobra.Command{
		Use:   "webpmill",
		Short: "Batch image to WebP converter",
		Long: `A batch conversion tool that mirrors a directory tree of images into
WebP, preserving the layout of the source tree. Files are classified with
ffprobe before conversion, converted concurrently with ImageMagick, and
accounted for in an end-of-run report.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logging before running any command
			verbose, _ := cmd.Flags().GetBool("verbose")
			logFile, _ := cmd.Flags().GetString("log-file")
			logger, err := config.SetupLogging(verbose, logFile)
			if err != nil {
				return fmt.Errorf("failed to setup logging: %w", err)
			}

			// Honor an explicit config file path
			if configPath, _ := cmd.Flags().GetString("config"); configPath != "" {
				viper.SetConfigFile(configPath)
			}

			// Store logger in context
			ctx = context.WithValue(ctx, "logger", logger)
			cmd.SetContext(ctx)

			return nil
		},
	}

	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this file")

	// Add commands
	rootCmd.AddCommand(commands.NewConvertCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))

	// Set context
	rootCmd.SetContext(ctx)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, commands.ErrConversionsFailed) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
