package probe

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"webpmill/pkg/utils"
)

// ErrFfprobeNotFound indicates the ffprobe binary could not be located on
// PATH. ffprobe ships with FFmpeg.
var ErrFfprobeNotFound = errors.New("ffprobe not found in PATH; install FFmpeg")

// Category identifies the classification bucket for a probed source file.
type Category int

const (
	// RecognizedStill is a supported still-image codec.
	RecognizedStill Category = iota
	// RecognizedAnimatedApng is an animated PNG, converted with special input handling.
	RecognizedAnimatedApng
	// Unrecognized is a codec outside the supported set.
	Unrecognized
	// ProbeFailed means the inspection itself failed; see Classification.Reason.
	ProbeFailed
)

// String returns the string representation of the category
func (c Category) String() string {
	switch c {
	case RecognizedStill:
		return "recognized_still"
	case RecognizedAnimatedApng:
		return "recognized_animated_apng"
	case Unrecognized:
		return "unrecognized"
	case ProbeFailed:
		return "probe_failed"
	default:
		return "unknown"
	}
}

// Classification is the result of probing one source file.
type Classification struct {
	Category Category
	Codec    string // codec tag as reported by the tool, empty if probing failed
	Reason   string // diagnostic text, set only for ProbeFailed
}

// Prober classifies source images by the codec of their primary video stream,
// using ffprobe as the inspection tool.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
	logger      *zap.Logger
}

// NewProber creates a prober that expects ffprobe on PATH
func NewProber(logger *zap.Logger) *Prober {
	return &Prober{
		ffprobePath: "ffprobe",
		timeout:     30 * time.Second,
		logger:      logger,
	}
}

// NewProberWithPath creates a prober with a custom ffprobe path and timeout
func NewProberWithPath(ffprobePath string, timeout time.Duration, logger *zap.Logger) *Prober {
	return &Prober{
		ffprobePath: ffprobePath,
		timeout:     timeout,
		logger:      logger,
	}
}

// Available reports whether the ffprobe binary can be located
func (p *Prober) Available() error {
	if _, err := exec.LookPath(p.ffprobePath); err != nil {
		return ErrFfprobeNotFound
	}
	return nil
}

// Probe runs ffprobe against sourcePath and maps the reported codec tag to a
// Classification. It never returns an error: every failure mode, including a
// missing file, folds into the ProbeFailed category with a diagnostic reason.
func (p *Prober) Probe(ctx context.Context, sourcePath string) Classification {
	p.logger.Debug("Probing source codec", zap.String("file", sourcePath))

	if _, err := os.Stat(sourcePath); err != nil {
		if utils.IsFileNotFoundError(err) {
			return Classification{Category: ProbeFailed, Reason: "not found"}
		}
		return Classification{Category: ProbeFailed, Reason: err.Error()}
	}

	// Create timeout context
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, p.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name",
		"-of", "default=noprint_wrappers=1:nokey=1",
		sourcePath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return Classification{
				Category: ProbeFailed,
				Reason:   utils.NewTimeoutError("ffprobe", p.timeout).Error(),
			}
		}
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return Classification{Category: ProbeFailed, Reason: reason}
	}

	classification := Classify(strings.TrimSpace(stdout.String()))
	p.logger.Debug("Probe complete",
		zap.String("file", sourcePath),
		zap.String("codec", classification.Codec),
		zap.String("category", classification.Category.String()))

	return classification
}

// Classify maps a raw codec tag to its Classification. Exported so the
// mapping can be exercised without an ffprobe binary.
func Classify(codec string) Classification {
	switch codec {
	case "":
		return Classification{Category: ProbeFailed, Reason: "no video stream detected"}
	case "apng":
		return Classification{Category: RecognizedAnimatedApng, Codec: codec}
	case "av1", "gif", "mjpeg", "png", "tiff", "webp":
		return Classification{Category: RecognizedStill, Codec: codec}
	default:
		return Classification{Category: Unrecognized, Codec: codec}
	}
}
