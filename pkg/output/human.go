package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/sdejongh/foldermirror/pkg/models"
)

// HumanFormatter prints a summary after each cycle.
// Per-file events are already written by the logger, so Progress is silent.
type HumanFormatter struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter(w io.Writer) *HumanFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &HumanFormatter{writer: w}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(report *models.CycleReport) error {
	return nil
}

// Progress reports progress during a cycle
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete displays the cycle summary
func (f *HumanFormatter) Complete(report *models.CycleReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeSummary(f.writer, report)
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, werr := fmt.Fprintf(f.writer, "%s %v\n", color.RedString("Error:"), err)
	return werr
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// writeSummary renders a cycle report for people
func writeSummary(w io.Writer, report *models.CycleReport) error {
	s := report.Stats

	title := "Cycle complete"
	if report.DryRun {
		title += " (dry run, nothing changed)"
	}

	fmt.Fprintf(w, "\n%s in %s\n", title, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Source:  %s\n", report.SourcePath)
	fmt.Fprintf(w, "  Replica: %s\n", report.ReplicaPath)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Files copied:     %d\n", s.FilesCopied)
	fmt.Fprintf(w, "  Files updated:    %d\n", s.FilesUpdated)
	fmt.Fprintf(w, "  Files deleted:    %d\n", s.FilesDeleted)
	if s.FilesRetimed > 0 {
		fmt.Fprintf(w, "  Files retimed:    %d\n", s.FilesRetimed)
	}
	fmt.Fprintf(w, "  Files identical:  %d\n", s.FilesIdentical)
	fmt.Fprintf(w, "  Dirs created:     %d\n", s.DirsCreated)
	fmt.Fprintf(w, "  Dirs deleted:     %d\n", s.DirsDeleted)
	fmt.Fprintf(w, "  Dirs visited:     %d\n", s.DirsVisited)
	fmt.Fprintf(w, "  Data transferred: %s", humanize.Bytes(uint64(s.BytesTransferred)))
	if secs := report.Duration.Seconds(); secs > 0 && s.BytesTransferred > 0 {
		fmt.Fprintf(w, " (%s/s)", humanize.Bytes(uint64(float64(s.BytesTransferred)/secs)))
	}
	fmt.Fprintf(w, "\n\n")

	fmt.Fprintf(w, "Status: %s\n", statusColor(report.Status).Sprint(report.Status))

	if report.Fatal != nil {
		fmt.Fprintf(w, "  %v\n", report.Fatal)
	}

	if failed := report.Errors(); len(failed) > 0 {
		fmt.Fprintf(w, "\nErrors (%d):\n", len(failed))
		for _, o := range failed {
			fmt.Fprintf(w, "  %s %s: %v\n", o.Action, displayPath(o.Path), o.Error)
		}
	}

	return nil
}

func statusColor(status models.CycleStatus) *color.Color {
	switch status {
	case models.StatusSuccess:
		return color.New(color.FgGreen, color.Bold)
	case models.StatusPartial, models.StatusCancelled:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// displayPath shows the root as "."
func displayPath(p string) string {
	if p == "" {
		return "."
	}
	return p
}
