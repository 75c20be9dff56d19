package stats

import (
	"fmt"
	"time"
)

// Status is the terminal state of one conversion task
type Status int

const (
	StatusSucceeded Status = iota
	StatusSkipped
	StatusFailed
	StatusUnrecognized
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	case StatusUnrecognized:
		return "unrecognized_codec"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "succeeded":
		*s = StatusSucceeded
	case "skipped":
		*s = StatusSkipped
	case "failed":
		*s = StatusFailed
	case "unrecognized_codec":
		*s = StatusUnrecognized
	default:
		return fmt.Errorf("unknown status: %s", string(text))
	}
	return nil
}

// Outcome records the terminal state of one conversion task. Exactly one
// Outcome exists per discovered file; it is immutable once recorded.
type Outcome struct {
	SourcePath string        `json:"source_path"`
	Status     Status        `json:"status"`
	OutputPath string        `json:"output_path,omitempty"` // set for succeeded tasks
	Reason     string        `json:"reason,omitempty"`      // set for skipped and failed tasks
	Codec      string        `json:"codec,omitempty"`       // set for unrecognized tasks
	SourceSize int64         `json:"source_size,omitempty"`
	OutputSize int64         `json:"output_size,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}
