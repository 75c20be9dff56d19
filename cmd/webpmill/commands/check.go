package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"webpmill/pkg/config"
	"webpmill/pkg/magick"
	"webpmill/pkg/probe"
)

// NewCheckCommand creates the check command
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that the required external tools are installed",
		Long: `Check that ffprobe and magick can be found on PATH (or at the
configured locations) before starting a conversion run.`,
		RunE: runCheck,
	}

	cmd.Flags().String("ffprobe-path", config.DefaultFfprobeBinary, "Path to the ffprobe binary")
	cmd.Flags().String("magick-path", config.DefaultMagickBinary, "Path to the magick binary")
	viper.BindPFlags(cmd.Flags())

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logger, ok := ctx.Value("logger").(*zap.Logger)
	if !ok {
		return fmt.Errorf("logger not found in context")
	}

	ffprobePath := viper.GetString("ffprobe-path")
	magickPath := viper.GetString("magick-path")

	var problems []string

	prober := probe.NewProberWithPath(ffprobePath, config.DefaultProbeTimeoutSecs*time.Second, logger)
	if err := prober.Available(); err != nil {
		problems = append(problems, fmt.Sprintf("ffprobe: %v (install FFmpeg, https://ffmpeg.org)", err))
	} else {
		fmt.Printf("ffprobe: found (%s)\n", ffprobePath)
	}

	converter := magick.NewConverterWithPath(magickPath, prober, logger)
	if err := converter.Available(); err != nil {
		problems = append(problems, fmt.Sprintf("magick: %v (install ImageMagick 7, https://imagemagick.org)", err))
	} else {
		fmt.Printf("magick: found (%s)\n", magickPath)
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "\n"))
	}

	fmt.Println("All required tools are available.")
	return nil
}
