package reporting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"webpmill/pkg/stats"
	"webpmill/pkg/utils"
)

// ReportConfig configures report file generation
type ReportConfig struct {
	OutputDir  string   `json:"output_dir"`
	ReportName string   `json:"report_name"`
	Format     []string `json:"format"` // markdown, json
}

// DefaultReportConfig returns sensible defaults
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		OutputDir:  "./reports",
		ReportName: "webpmill-report",
		Format:     []string{"markdown", "json"},
	}
}

// Generator renders run reports to the console and to report files
type Generator struct {
	logger *zap.Logger
}

// NewGenerator creates a new report generator
func NewGenerator(logger *zap.Logger) *Generator {
	return &Generator{
		logger: logger,
	}
}

// WriteReports writes the run report in every configured format. Files are
// named <report_name>-<run_id>.<ext> under the configured output directory.
func (g *Generator) WriteReports(report *stats.RunReport, config ReportConfig) error {
	g.logger.Info("Generating report",
		zap.String("name", config.ReportName),
		zap.Strings("formats", config.Format),
		zap.String("output_dir", config.OutputDir))

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	reportName := fmt.Sprintf("%s-%s", config.ReportName, report.RunID)

	for _, format := range config.Format {
		var err error
		switch strings.ToLower(format) {
		case "markdown", "md":
			err = g.writeMarkdown(report, config, reportName)
		case "json":
			err = g.writeJSON(report, config, reportName)
		default:
			g.logger.Warn("Unknown report format", zap.String("format", format))
			continue
		}

		if err != nil {
			g.logger.Error("Failed to generate report format",
				zap.String("format", format),
				zap.Error(err))
			return err
		}
	}

	g.logger.Info("Report generation completed",
		zap.String("name", reportName),
		zap.String("output_dir", config.OutputDir))

	return nil
}

// WriteSummary prints the human-readable end-of-run summary.
func (g *Generator) WriteSummary(w io.Writer, report *stats.RunReport) {
	fmt.Fprintf(w, "\nConversion finished in %s\n", report.ElapsedTime)
	fmt.Fprintf(w, "  Succeeded:          %d\n", report.Succeeded)
	fmt.Fprintf(w, "  Skipped:            %d\n", report.Skipped)
	fmt.Fprintf(w, "  Failed:             %d\n", report.Failed)
	fmt.Fprintf(w, "  Unrecognized codec: %d\n", report.Unrecognized)
	fmt.Fprintf(w, "  Total:              %d\n", report.TotalTasks)
	if report.Succeeded > 0 {
		fmt.Fprintf(w, "  Space saved:        %s (%.1f%%)\n",
			utils.FormatBytes(report.BytesSaved), report.SavedPercent)
	}

	if len(report.SkippedFiles) > 0 {
		fmt.Fprintf(w, "\nSkipped files:\n")
		for _, outcome := range report.SkippedFiles {
			fmt.Fprintf(w, "  %s: %s\n", outcome.SourcePath, outcome.Reason)
		}
	}

	if len(report.UnrecognizedFiles) > 0 {
		fmt.Fprintf(w, "\nFiles with unrecognized codecs:\n")
		for _, outcome := range report.UnrecognizedFiles {
			fmt.Fprintf(w, "  %s (codec: %s)\n", outcome.SourcePath, outcome.Codec)
		}
	}

	if len(report.FailedFiles) > 0 {
		fmt.Fprintf(w, "\nFailed files:\n")
		for _, outcome := range report.FailedFiles {
			fmt.Fprintf(w, "  %s: %s\n", outcome.SourcePath, outcome.Reason)
		}
	}

	if report.Failed == 0 && report.Unrecognized == 0 {
		fmt.Fprintf(w, "\nAll files were processed.\n")
	}
}

// writeMarkdown writes a Markdown report
func (g *Generator) writeMarkdown(report *stats.RunReport, config ReportConfig, reportName string) error {
	tmpl := `# WebP Conversion Report

**Run ID:** {{.RunID}}
**Started:** {{.StartTime.Format "2006-01-02 15:04:05 MST"}}
**Elapsed:** {{.ElapsedTime}}

## Summary

| Outcome | Files |
|---------|------:|
| Succeeded | {{.Succeeded}} |
| Skipped | {{.Skipped}} |
| Failed | {{.Failed}} |
| Unrecognized codec | {{.Unrecognized}} |
| **Total** | **{{.TotalTasks}}** |

## Size

- **Source bytes:** {{humanizeBytes .SourceBytes}}
- **Output bytes:** {{humanizeBytes .OutputBytes}}
- **Saved:** {{humanizeBytes .BytesSaved}} ({{printf "%.1f%%" .SavedPercent}})
{{if .SucceededFiles}}
## Converted Files

| Source | Output | Before | After | Duration |
|--------|--------|-------:|------:|---------:|
{{range .SucceededFiles}}| {{.SourcePath}} | {{.OutputPath}} | {{humanizeBytes .SourceSize}} | {{humanizeBytes .OutputSize}} | {{.Duration}} |
{{end}}{{end}}{{if .SkippedFiles}}
## Skipped Files
{{range .SkippedFiles}}
- {{.SourcePath}}: {{.Reason}}
{{end}}{{end}}{{if .UnrecognizedFiles}}
## Unrecognized Codecs
{{range .UnrecognizedFiles}}
- {{.SourcePath}} (codec: {{.Codec}})
{{end}}{{end}}{{if .FailedFiles}}
## Failed Files
{{range .FailedFiles}}
- {{.SourcePath}}: {{.Reason}}
{{end}}{{end}}
`

	t, err := template.New("markdown").Funcs(template.FuncMap{
		"humanizeBytes": utils.FormatBytes,
	}).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse markdown template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return fmt.Errorf("failed to execute markdown template: %w", err)
	}

	outputPath := filepath.Join(config.OutputDir, reportName+".md")
	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}

	g.logger.Debug("Generated markdown report", zap.String("path", outputPath))
	return nil
}

// writeJSON writes a JSON report
func (g *Generator) writeJSON(report *stats.RunReport, config ReportConfig, reportName string) error {
	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	outputPath := filepath.Join(config.OutputDir, reportName+".json")
	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	g.logger.Debug("Generated JSON report", zap.String("path", outputPath))
	return nil
}
