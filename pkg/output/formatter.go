package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/foldermirror/pkg/models"
)

// Progress event types
const (
	EventFileStart    = "file_start"
	EventFileProgress = "file_progress"
	EventFileComplete = "file_complete"
	EventFileError    = "file_error"
)

// ProgressUpdate represents a progress notification during a cycle
type ProgressUpdate struct {
	Type         string
	FilePath     string
	Action       models.Action
	BytesWritten int64
	TotalBytes   int64
	Error        error
}

// Formatter defines the interface for output formatting
// Implementations include human-readable, progress bar and JSON formatters
type Formatter interface {
	// Start is called when a cycle begins
	Start(report *models.CycleReport) error

	// Progress reports file copy progress
	Progress(update ProgressUpdate) error

	// Complete displays the finished cycle report
	Complete(report *models.CycleReport) error

	// Error reports an error that ended a cycle
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter registered under name, writing to w
func New(name string, w io.Writer) (Formatter, error) {
	switch name {
	case "", "human":
		return NewHumanFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "progress":
		return NewProgressFormatter(w), nil
	case "none", "quiet":
		return NullFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (valid: human, json, progress, none)", name)
	}
}

// NullFormatter prints nothing
type NullFormatter struct{}

func (NullFormatter) Start(*models.CycleReport) error    { return nil }
func (NullFormatter) Progress(ProgressUpdate) error      { return nil }
func (NullFormatter) Complete(*models.CycleReport) error { return nil }
func (NullFormatter) Error(error) error                  { return nil }
func (NullFormatter) Name() string                       { return "none" }
