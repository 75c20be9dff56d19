package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates task outcomes during a conversion run. Record accepts
// outcomes from any goroutine in any order; each bucket preserves completion
// order.
type Collector struct {
	// Counters
	totalTasks   int64
	succeeded    int64
	skipped      int64
	failed       int64
	unrecognized int64

	// Size accounting across succeeded conversions
	sourceBytes int64
	outputBytes int64

	// Ordered outcome buckets
	bucketsMu            sync.RWMutex
	succeededOutcomes    []Outcome
	skippedOutcomes      []Outcome
	failedOutcomes       []Outcome
	unrecognizedOutcomes []Outcome

	startTime time.Time
}

// NewCollector creates a new outcome collector
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
	}
}

// Record folds one task outcome into the report under construction
func (c *Collector) Record(outcome Outcome) {
	atomic.AddInt64(&c.totalTasks, 1)

	c.bucketsMu.Lock()
	defer c.bucketsMu.Unlock()

	switch outcome.Status {
	case StatusSucceeded:
		atomic.AddInt64(&c.succeeded, 1)
		atomic.AddInt64(&c.sourceBytes, outcome.SourceSize)
		atomic.AddInt64(&c.outputBytes, outcome.OutputSize)
		c.succeededOutcomes = append(c.succeededOutcomes, outcome)
	case StatusSkipped:
		atomic.AddInt64(&c.skipped, 1)
		c.skippedOutcomes = append(c.skippedOutcomes, outcome)
	case StatusFailed:
		atomic.AddInt64(&c.failed, 1)
		c.failedOutcomes = append(c.failedOutcomes, outcome)
	case StatusUnrecognized:
		atomic.AddInt64(&c.unrecognized, 1)
		c.unrecognizedOutcomes = append(c.unrecognizedOutcomes, outcome)
	}
}

// TotalTasks returns the number of outcomes recorded so far
func (c *Collector) TotalTasks() int64 {
	return atomic.LoadInt64(&c.totalTasks)
}

// Succeeded returns the number of succeeded tasks
func (c *Collector) Succeeded() int64 {
	return atomic.LoadInt64(&c.succeeded)
}

// Skipped returns the number of skipped tasks
func (c *Collector) Skipped() int64 {
	return atomic.LoadInt64(&c.skipped)
}

// Failed returns the number of failed tasks
func (c *Collector) Failed() int64 {
	return atomic.LoadInt64(&c.failed)
}

// Unrecognized returns the number of unrecognized-codec tasks
func (c *Collector) Unrecognized() int64 {
	return atomic.LoadInt64(&c.unrecognized)
}

// RunReport is the finalized aggregate for one conversion run
type RunReport struct {
	RunID string `json:"run_id"`

	// Totals
	TotalTasks   int64 `json:"total_tasks"`
	Succeeded    int64 `json:"succeeded"`
	Skipped      int64 `json:"skipped"`
	Failed       int64 `json:"failed"`
	Unrecognized int64 `json:"unrecognized"`

	// Size accounting across succeeded conversions
	SourceBytes  int64   `json:"source_bytes"`
	OutputBytes  int64   `json:"output_bytes"`
	BytesSaved   int64   `json:"bytes_saved"`
	SavedPercent float64 `json:"saved_percent"`

	// Outcome buckets, completion order within each bucket
	SucceededFiles    []Outcome `json:"succeeded_files"`
	SkippedFiles      []Outcome `json:"skipped_files"`
	FailedFiles       []Outcome `json:"failed_files"`
	UnrecognizedFiles []Outcome `json:"unrecognized_files"`

	// Timing
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	ElapsedTime string    `json:"elapsed_time"`
}

// GetReport snapshots the collector into a finalized RunReport. Call it after
// every task has completed.
func (c *Collector) GetReport(runID string) *RunReport {
	c.bucketsMu.RLock()
	defer c.bucketsMu.RUnlock()

	endTime := time.Now()
	report := &RunReport{
		RunID:             runID,
		TotalTasks:        c.TotalTasks(),
		Succeeded:         c.Succeeded(),
		Skipped:           c.Skipped(),
		Failed:            c.Failed(),
		Unrecognized:      c.Unrecognized(),
		SourceBytes:       atomic.LoadInt64(&c.sourceBytes),
		OutputBytes:       atomic.LoadInt64(&c.outputBytes),
		SucceededFiles:    append([]Outcome(nil), c.succeededOutcomes...),
		SkippedFiles:      append([]Outcome(nil), c.skippedOutcomes...),
		FailedFiles:       append([]Outcome(nil), c.failedOutcomes...),
		UnrecognizedFiles: append([]Outcome(nil), c.unrecognizedOutcomes...),
		StartTime:         c.startTime,
		EndTime:           endTime,
		ElapsedTime:       endTime.Sub(c.startTime).Round(time.Millisecond).String(),
	}

	report.BytesSaved = report.SourceBytes - report.OutputBytes
	if report.SourceBytes > 0 {
		report.SavedPercent = float64(report.BytesSaved) / float64(report.SourceBytes) * 100
	}

	return report
}
