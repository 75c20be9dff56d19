package reporting

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webpmill/pkg/stats"
)

func sampleReport() *stats.RunReport {
	return &stats.RunReport{
		RunID:        "0f2c7a1e",
		TotalTasks:   4,
		Succeeded:    2,
		Skipped:      1,
		Failed:       1,
		SourceBytes:  2048,
		OutputBytes:  1024,
		BytesSaved:   1024,
		SavedPercent: 50.0,
		SucceededFiles: []stats.Outcome{
			{SourcePath: "/in/a.jpg", Status: stats.StatusSucceeded, OutputPath: "/out/a.webp", SourceSize: 1024, OutputSize: 512, Duration: 120 * time.Millisecond},
			{SourcePath: "/in/b.png", Status: stats.StatusSucceeded, OutputPath: "/out/b.webp", SourceSize: 1024, OutputSize: 512, Duration: 80 * time.Millisecond},
		},
		SkippedFiles: []stats.Outcome{
			{SourcePath: "/in/c.png", Status: stats.StatusSkipped, Reason: "destination already exists"},
		},
		FailedFiles: []stats.Outcome{
			{SourcePath: "/in/d.tiff", Status: stats.StatusFailed, Reason: "magick failed: exit status 1, stderr: invalid argument"},
		},
		StartTime:   time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		EndTime:     time.Date(2025, 3, 14, 9, 30, 2, 0, time.UTC),
		ElapsedTime: "2s",
	}
}

func TestWriteReportsCreatesFiles(t *testing.T) {
	outputDir := t.TempDir()
	config := DefaultReportConfig()
	config.OutputDir = outputDir

	generator := NewGenerator(zap.NewNop())
	require.NoError(t, generator.WriteReports(sampleReport(), config))

	jsonPath := filepath.Join(outputDir, "webpmill-report-0f2c7a1e.json")
	mdPath := filepath.Join(outputDir, "webpmill-report-0f2c7a1e.md")
	require.FileExists(t, jsonPath)
	require.FileExists(t, mdPath)

	jsonData, err := os.ReadFile(jsonPath)
	require.NoError(t, err)

	var decoded stats.RunReport
	require.NoError(t, json.Unmarshal(jsonData, &decoded))
	assert.Equal(t, int64(4), decoded.TotalTasks)
	assert.Equal(t, int64(2), decoded.Succeeded)
	assert.Len(t, decoded.FailedFiles, 1)

	markdown, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(markdown), "/in/d.tiff")
	assert.Contains(t, string(markdown), "invalid argument")
	assert.Contains(t, string(markdown), "destination already exists")
	assert.Contains(t, string(markdown), "1.0 KiB")
}

func TestWriteReportsIgnoresUnknownFormat(t *testing.T) {
	outputDir := t.TempDir()
	config := DefaultReportConfig()
	config.OutputDir = outputDir
	config.Format = []string{"xml"}

	generator := NewGenerator(zap.NewNop())
	require.NoError(t, generator.WriteReports(sampleReport(), config))

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteSummaryListsProblems(t *testing.T) {
	var buf bytes.Buffer
	NewGenerator(zap.NewNop()).WriteSummary(&buf, sampleReport())

	out := buf.String()
	assert.Contains(t, out, "Succeeded:          2")
	assert.Contains(t, out, "Skipped:            1")
	assert.Contains(t, out, "/in/c.png: destination already exists")
	assert.Contains(t, out, "/in/d.tiff: magick failed")
	assert.NotContains(t, out, "All files were processed.")
}

func TestWriteSummaryAllProcessed(t *testing.T) {
	report := sampleReport()
	report.Failed = 0
	report.FailedFiles = nil

	var buf bytes.Buffer
	NewGenerator(zap.NewNop()).WriteSummary(&buf, report)

	out := buf.String()
	assert.Contains(t, out, "All files were processed.")
	assert.Contains(t, out, "Space saved:")
}
