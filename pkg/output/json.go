package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sdejongh/foldermirror/pkg/models"
)

// JSONFormatter writes one JSON document per cycle for automation and scripting
type JSONFormatter struct {
	mu     sync.Mutex
	writer io.Writer
}

// JSONReport is the serialized form of a cycle report
type JSONReport struct {
	CycleID    string        `json:"cycle_id"`
	Source     string        `json:"source"`
	Replica    string        `json:"replica"`
	DryRun     bool          `json:"dry_run"`
	Status     string        `json:"status"`
	StartedAt  string        `json:"started_at"`
	Duration   string        `json:"duration"`
	DurationMs int64         `json:"duration_ms"`
	Fatal      string        `json:"fatal,omitempty"`
	Stats      JSONStats     `json:"stats"`
	Outcomes   []JSONOutcome `json:"outcomes"`
}

// JSONStats represents statistics in JSON format
type JSONStats struct {
	FilesCopied      int   `json:"files_copied"`
	FilesUpdated     int   `json:"files_updated"`
	FilesDeleted     int   `json:"files_deleted"`
	FilesRetimed     int   `json:"files_retimed"`
	FilesIdentical   int   `json:"files_identical"`
	DirsVisited      int   `json:"dirs_visited"`
	DirsCreated      int   `json:"dirs_created"`
	DirsDeleted      int   `json:"dirs_deleted"`
	Errors           int   `json:"errors"`
	BytesTransferred int64 `json:"bytes_transferred"`
}

// JSONOutcome represents one attempted action
type JSONOutcome struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Action string `json:"action"`
	Bytes  int64  `json:"bytes,omitempty"`
	Error  string `json:"error,omitempty"`
	DryRun bool   `json:"dry_run,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &JSONFormatter{writer: w}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(report *models.CycleReport) error {
	return nil
}

// Progress is not streamed; the outcomes are part of the final document
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the cycle report
func (f *JSONFormatter) Complete(report *models.CycleReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return encodeJSON(f.writer, ToJSONReport(report))
}

// Error writes an error document
func (f *JSONFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return encodeJSON(f.writer, struct {
		Timestamp string `json:"timestamp"`
		Error     string `json:"error"`
	}{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error:     err.Error(),
	})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

// ToJSONReport converts a cycle report to its serialized form
func ToJSONReport(report *models.CycleReport) JSONReport {
	s := report.Stats
	out := JSONReport{
		CycleID:    report.CycleID,
		Source:     report.SourcePath,
		Replica:    report.ReplicaPath,
		DryRun:     report.DryRun,
		Status:     string(report.Status),
		StartedAt:  report.StartTime.UTC().Format(time.RFC3339),
		Duration:   report.Duration.Round(time.Millisecond).String(),
		DurationMs: report.Duration.Milliseconds(),
		Stats: JSONStats{
			FilesCopied:      s.FilesCopied,
			FilesUpdated:     s.FilesUpdated,
			FilesDeleted:     s.FilesDeleted,
			FilesRetimed:     s.FilesRetimed,
			FilesIdentical:   s.FilesIdentical,
			DirsVisited:      s.DirsVisited,
			DirsCreated:      s.DirsCreated,
			DirsDeleted:      s.DirsDeleted,
			Errors:           s.Errors,
			BytesTransferred: s.BytesTransferred,
		},
		Outcomes: make([]JSONOutcome, 0, len(report.Outcomes)),
	}

	if report.Fatal != nil {
		out.Fatal = report.Fatal.Error()
	}

	for _, o := range report.Outcomes {
		jo := JSONOutcome{
			Path:   displayPath(o.Path),
			Kind:   string(o.Kind),
			Action: string(o.Action),
			Bytes:  o.Bytes,
			DryRun: o.DryRun,
		}
		if o.Error != nil {
			jo.Error = o.Error.Error()
		}
		out.Outcomes = append(out.Outcomes, jo)
	}

	return out
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
