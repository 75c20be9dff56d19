package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webpmill/pkg/magick"
	"webpmill/pkg/probe"
	"webpmill/pkg/stats"
)

// MockProber is a mock implementation of Prober
type MockProber struct {
	mock.Mock
}

func (m *MockProber) Probe(ctx context.Context, sourcePath string) probe.Classification {
	args := m.Called(ctx, sourcePath)
	return args.Get(0).(probe.Classification)
}

// MockConverter is a mock implementation of Converter
type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, req magick.Request) (*magick.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*magick.Result), args.Error(1)
}

func stillPNG() probe.Classification {
	return probe.Classification{Category: probe.RecognizedStill, Codec: "png"}
}

func testOptions(inputRoot, outputRoot string) Options {
	return Options{
		InputRoot:   inputRoot,
		OutputRoot:  outputRoot,
		Quality:     89,
		AppendName:  true,
		Concurrency: 4,
		Extensions:  []string{".avif", ".bmp", ".gif", ".jpeg", ".jpg", ".png", ".tiff", ".tif", ".webp"},
	}
}

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, file := range files {
		path := filepath.Join(root, file)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("img"), 0644))
	}
}

// writeOutput makes the converter mock create the destination file, the way
// a real conversion would.
func writeOutput(args mock.Arguments) {
	req := args.Get(1).(magick.Request)
	_ = os.WriteFile(req.OutputPath, []byte("RIFF"), 0644)
}

func TestRunAllFilesAccountedExactlyOnce(t *testing.T) {
	inputRoot := t.TempDir()
	outputRoot := t.TempDir()
	writeTree(t, inputRoot,
		"photo.jpg",
		"nested/beach.png",
		"anim.gif",
		"broken.tiff",
		"notes.txt",    // not a candidate extension
		".hidden.png",  // dotfile
	)

	prober := new(MockProber)
	prober.On("Probe", mock.Anything, filepath.Join(inputRoot, "photo.jpg")).Return(probe.Classification{Category: probe.RecognizedStill, Codec: "mjpeg"})
	prober.On("Probe", mock.Anything, filepath.Join(inputRoot, "nested", "beach.png")).Return(stillPNG())
	prober.On("Probe", mock.Anything, filepath.Join(inputRoot, "anim.gif")).Return(probe.Classification{Category: probe.Unrecognized, Codec: "h264"})
	prober.On("Probe", mock.Anything, filepath.Join(inputRoot, "broken.tiff")).Return(probe.Classification{Category: probe.ProbeFailed, Reason: "corrupt header"})

	converter := new(MockConverter)
	converter.On("Convert", mock.Anything, mock.Anything).Run(writeOutput).Return(&magick.Result{SourceSize: 100, OutputSize: 40}, nil)

	report, err := New(testOptions(inputRoot, outputRoot), prober, converter, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), report.TotalTasks)
	assert.Equal(t, int64(2), report.Succeeded)
	assert.Equal(t, int64(1), report.Failed)
	assert.Equal(t, int64(1), report.Unrecognized)
	assert.Equal(t, int64(0), report.Skipped)

	// Union of the buckets covers every discovered file exactly once.
	seen := make(map[string]bool)
	for _, bucket := range [][]stats.Outcome{report.SucceededFiles, report.SkippedFiles, report.FailedFiles, report.UnrecognizedFiles} {
		for _, outcome := range bucket {
			assert.False(t, seen[outcome.SourcePath])
			seen[outcome.SourcePath] = true
		}
	}
	assert.Len(t, seen, 4)

	prober.AssertNumberOfCalls(t, "Probe", 4)
	converter.AssertNumberOfCalls(t, "Convert", 2)
}

func TestRunConvertsStillImage(t *testing.T) {
	inputRoot := t.TempDir()
	outputRoot := t.TempDir()
	writeTree(t, inputRoot, "photo.jpg")

	prober := new(MockProber)
	prober.On("Probe", mock.Anything, mock.Anything).Return(stillPNG())

	wantDest := filepath.Join(outputRoot, "photo.webp")
	converter := new(MockConverter)
	converter.On("Convert", mock.Anything, mock.MatchedBy(func(req magick.Request) bool {
		return req.OutputPath == wantDest && req.Quality == 90 && !req.Lossless && !req.AnimatedApng
	})).Run(writeOutput).Return(&magick.Result{SourceSize: 100, OutputSize: 40}, nil)

	opts := testOptions(inputRoot, outputRoot)
	opts.Quality = 90

	report, err := New(opts, prober, converter, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(1), report.Succeeded)
	assert.Equal(t, wantDest, report.SucceededFiles[0].OutputPath)
	converter.AssertNumberOfCalls(t, "Convert", 1)
}

func TestRunSkipBeforeProbe(t *testing.T) {
	inputRoot := t.TempDir()
	outputRoot := t.TempDir()
	writeTree(t, inputRoot, "photo.jpg")
	require.NoError(t, os.WriteFile(filepath.Join(outputRoot, "photo.webp"), []byte("old"), 0644))

	prober := new(MockProber)
	converter := new(MockConverter)

	opts := testOptions(inputRoot, outputRoot)
	opts.AppendName = false

	report, err := New(opts, prober, converter, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(1), report.Skipped)
	assert.Equal(t, "destination already exists", report.SkippedFiles[0].Reason)

	// The probe and the converter must never see a skipped file.
	prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
	converter.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything)
}

func TestRunCollisionRenamesDestination(t *testing.T) {
	inputRoot := t.TempDir()
	outputRoot := t.TempDir()
	writeTree(t, inputRoot, "photo.jpg")
	require.NoError(t, os.WriteFile(filepath.Join(outputRoot, "photo.webp"), []byte("old"), 0644))

	prober := new(MockProber)
	prober.On("Probe", mock.Anything, mock.Anything).Return(stillPNG())

	wantDest := filepath.Join(outputRoot, "photo (2).webp")
	converter := new(MockConverter)
	converter.On("Convert", mock.Anything, mock.MatchedBy(func(req magick.Request) bool {
		return req.OutputPath == wantDest
	})).Run(writeOutput).Return(&magick.Result{SourceSize: 100, OutputSize: 40}, nil)

	report, err := New(testOptions(inputRoot, outputRoot), prober, converter, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(1), report.Succeeded)
	assert.Equal(t, wantDest, report.SucceededFiles[0].OutputPath)
}

func TestRunUnrecognizedNeverConverts(t *testing.T) {
	inputRoot := t.TempDir()
	outputRoot := t.TempDir()
	writeTree(t, inputRoot, "anim.gif")

	prober := new(MockProber)
	prober.On("Probe", mock.Anything, mock.Anything).Return(probe.Classification{Category: probe.Unrecognized, Codec: "h264"})

	converter := new(MockConverter)

	report, err := New(testOptions(inputRoot, outputRoot), prober, converter, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(1), report.Unrecognized)
	assert.Equal(t, "h264", report.UnrecognizedFiles[0].Codec)
	converter.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything)
}

func TestRunFailureCarriesToolDiagnostics(t *testing.T) {
	inputRoot := t.TempDir()
	outputRoot := t.TempDir()
	writeTree(t, inputRoot, "photo.jpg")

	prober := new(MockProber)
	prober.On("Probe", mock.Anything, mock.Anything).Return(stillPNG())

	converter := new(MockConverter)
	converter.On("Convert", mock.Anything, mock.Anything).Return(nil, errors.New("magick failed: exit status 1, stderr: invalid argument"))

	report, err := New(testOptions(inputRoot, outputRoot), prober, converter, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, int64(1), report.Failed)
	assert.Contains(t, report.FailedFiles[0].Reason, "invalid argument")
}

func TestRunAnimatedApngFlagged(t *testing.T) {
	inputRoot := t.TempDir()
	outputRoot := t.TempDir()
	writeTree(t, inputRoot, "sticker.png")

	prober := new(MockProber)
	prober.On("Probe", mock.Anything, mock.Anything).Return(probe.Classification{Category: probe.RecognizedAnimatedApng, Codec: "apng"})

	converter := new(MockConverter)
	converter.On("Convert", mock.Anything, mock.MatchedBy(func(req magick.Request) bool {
		return req.AnimatedApng
	})).Run(writeOutput).Return(&magick.Result{SourceSize: 100, OutputSize: 80}, nil)

	report, err := New(testOptions(inputRoot, outputRoot), prober, converter, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Succeeded)
}

func TestRunIdempotentWithAppendDisabled(t *testing.T) {
	inputRoot := t.TempDir()
	outputRoot := t.TempDir()
	writeTree(t, inputRoot, "a.jpg", "gallery/b.png")

	opts := testOptions(inputRoot, outputRoot)
	opts.AppendName = false

	firstProber := new(MockProber)
	firstProber.On("Probe", mock.Anything, mock.Anything).Return(stillPNG())
	firstConverter := new(MockConverter)
	firstConverter.On("Convert", mock.Anything, mock.Anything).Run(writeOutput).Return(&magick.Result{SourceSize: 100, OutputSize: 40}, nil)

	first, err := New(opts, firstProber, firstConverter, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), first.Succeeded)

	// Second run over identical inputs: every destination already exists, so
	// everything skips and the destination set is unchanged.
	secondProber := new(MockProber)
	secondConverter := new(MockConverter)

	second, err := New(opts, secondProber, secondConverter, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Skipped)
	assert.Equal(t, int64(0), second.Succeeded)

	firstDests := map[string]bool{}
	for _, outcome := range first.SucceededFiles {
		firstDests[outcome.OutputPath] = true
	}
	for _, outcome := range second.SkippedFiles {
		assert.True(t, firstDests[outcome.OutputPath])
	}

	secondProber.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
	secondConverter.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything)
}

// concurrencyGauge tracks the peak number of simultaneous probe/convert
// calls across both collaborators.
type concurrencyGauge struct {
	inFlight int64
	peak     int64
}

func (g *concurrencyGauge) enter() {
	current := atomic.AddInt64(&g.inFlight, 1)
	for {
		observed := atomic.LoadInt64(&g.peak)
		if current <= observed || atomic.CompareAndSwapInt64(&g.peak, observed, current) {
			return
		}
	}
}

func (g *concurrencyGauge) exit() {
	atomic.AddInt64(&g.inFlight, -1)
}

type gaugedProber struct{ gauge *concurrencyGauge }

func (p gaugedProber) Probe(ctx context.Context, sourcePath string) probe.Classification {
	p.gauge.enter()
	defer p.gauge.exit()
	time.Sleep(2 * time.Millisecond)
	return stillPNG()
}

type gaugedConverter struct{ gauge *concurrencyGauge }

func (c gaugedConverter) Convert(ctx context.Context, req magick.Request) (*magick.Result, error) {
	c.gauge.enter()
	defer c.gauge.exit()
	time.Sleep(2 * time.Millisecond)
	_ = os.WriteFile(req.OutputPath, []byte("RIFF"), 0644)
	return &magick.Result{SourceSize: 100, OutputSize: 40}, nil
}

func TestRunRespectsConcurrencyCeiling(t *testing.T) {
	inputRoot := t.TempDir()
	outputRoot := t.TempDir()

	var files []string
	for i := 0; i < 16; i++ {
		files = append(files, filepath.Join("dir", string(rune('a'+i))+".png"))
	}
	writeTree(t, inputRoot, files...)

	gauge := &concurrencyGauge{}
	opts := testOptions(inputRoot, outputRoot)
	opts.Concurrency = 2

	report, err := New(opts, gaugedProber{gauge}, gaugedConverter{gauge}, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(16), report.Succeeded)
	assert.LessOrEqual(t, atomic.LoadInt64(&gauge.peak), int64(2))
	assert.Greater(t, atomic.LoadInt64(&gauge.peak), int64(0))
}

func TestRunMissingInputRoot(t *testing.T) {
	opts := testOptions(filepath.Join(t.TempDir(), "nope"), t.TempDir())

	_, err := New(opts, new(MockProber), new(MockConverter), zap.NewNop()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input root does not exist")
}
