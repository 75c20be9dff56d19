package magick

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"webpmill/pkg/probe"
	"webpmill/pkg/utils"
)

// ErrMagickNotFound indicates the magick binary could not be located on PATH.
// magick ships with ImageMagick 7.
var ErrMagickNotFound = errors.New("magick not found in PATH; install ImageMagick")

// Verifier re-probes a produced file to confirm its codec. *probe.Prober
// satisfies it.
type Verifier interface {
	Probe(ctx context.Context, sourcePath string) probe.Classification
}

// Request describes a single conversion invocation.
type Request struct {
	SourcePath string `json:"source_path"`
	OutputPath string `json:"output_path"`
	Quality    int    `json:"quality"`
	Lossless   bool   `json:"lossless"`

	// AnimatedApng selects the explicit APNG decoder so magick keeps every
	// frame instead of flattening to the first one.
	AnimatedApng bool `json:"animated_apng"`
}

// Result contains the results of a successful conversion.
type Result struct {
	SourcePath string        `json:"source_path"`
	OutputPath string        `json:"output_path"`
	SourceSize int64         `json:"source_size"`
	OutputSize int64         `json:"output_size"`
	Command    string        `json:"command,omitempty"`
	Duration   time.Duration `json:"duration"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
}

// Converter handles image conversion to WebP using ImageMagick
type Converter struct {
	magickPath string
	verifier   Verifier
	logger     *zap.Logger
}

// NewConverter creates a converter that expects magick on PATH
func NewConverter(verifier Verifier, logger *zap.Logger) *Converter {
	return &Converter{
		magickPath: "magick",
		verifier:   verifier,
		logger:     logger,
	}
}

// NewConverterWithPath creates a converter with a custom magick path
func NewConverterWithPath(magickPath string, verifier Verifier, logger *zap.Logger) *Converter {
	return &Converter{
		magickPath: magickPath,
		verifier:   verifier,
		logger:     logger,
	}
}

// Available reports whether the magick binary can be located
func (c *Converter) Available() error {
	if _, err := exec.LookPath(c.magickPath); err != nil {
		return ErrMagickNotFound
	}
	return nil
}

// Convert runs a single magick invocation for req. The subprocess is bound to
// ctx, so cancellation terminates it and Run reaps its resources. A zero exit
// code is not trusted on its own: the destination is re-probed and must
// decode as WebP, otherwise the conversion counts as failed. On any failure
// the partial destination file is removed. No automatic retry.
func (c *Converter) Convert(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()

	result := &Result{
		SourcePath: req.SourcePath,
		OutputPath: req.OutputPath,
		StartTime:  startTime,
	}

	if size, err := utils.GetFileSize(req.SourcePath); err == nil {
		result.SourceSize = size
	}

	cmd := c.buildCommand(ctx, req)
	result.Command = strings.Join(cmd.Args, " ")

	c.logger.Debug("Executing magick command", zap.String("command", result.Command))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		c.removePartialOutput(req.OutputPath)
		return nil, fmt.Errorf("magick failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	// Verify the destination actually decodes as WebP.
	classification := c.verifier.Probe(ctx, req.OutputPath)
	if classification.Category == probe.ProbeFailed {
		c.removePartialOutput(req.OutputPath)
		return nil, fmt.Errorf("output verification failed: %s", classification.Reason)
	}
	if classification.Codec != "webp" {
		c.removePartialOutput(req.OutputPath)
		return nil, fmt.Errorf("unrecognized output codec: %s", classification.Codec)
	}

	if size, err := utils.GetFileSize(req.OutputPath); err == nil {
		result.OutputSize = size
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	c.logger.Debug("Conversion complete",
		zap.String("input", req.SourcePath),
		zap.String("output", req.OutputPath),
		zap.Int64("source_size", result.SourceSize),
		zap.Int64("output_size", result.OutputSize),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// buildCommand assembles the magick invocation: the fixed WebP encoding
// profile with the caller's quality and lossless settings layered on top.
func (c *Converter) buildCommand(ctx context.Context, req Request) *exec.Cmd {
	source := req.SourcePath
	if req.AnimatedApng {
		source = "apng:" + source
	}

	args := []string{
		source,
		"-auto-orient",
		"-coalesce",
		"-strip",
		"-quality", strconv.Itoa(req.Quality),
		"-define", "webp:alpha-compression=1",
		"-define", "webp:alpha-filtering=2",
		"-define", "webp:alpha-quality=100",
		"-define", "webp:auto-filter=true",
		"-define", "webp:filter-sharpness=4",
		"-define", "webp:filter-strength=50",
		"-define", "webp:filter-type=1",
		"-define", fmt.Sprintf("webp:lossless=%t", req.Lossless),
		"-define", "webp:method=6",
		"-define", "webp:preprocessing=1",
		"-define", "webp:partitions=3",
		"-define", "webp:partition-limit=0",
		"-define", "webp:pass=10",
		"-define", "webp:segment=4",
		"-define", "webp:sns-strength=80",
		"-define", "webp:thread-level=1",
		"-define", "webp:use-sharp-yuv=true",
		req.OutputPath,
	}

	return exec.CommandContext(ctx, c.magickPath, args...)
}

// removePartialOutput deletes whatever a failed invocation left behind so a
// corrupt destination never survives the run.
func (c *Converter) removePartialOutput(path string) {
	if !utils.FileExists(path) {
		return
	}
	if err := os.Remove(path); err != nil {
		c.logger.Warn("Failed to remove partial output",
			zap.String("file", path),
			zap.Error(err))
	}
}
