package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/sdejongh/foldermirror/pkg/models"
)

const (
	// minBarSize is the smallest copy that gets its own bar
	minBarSize = 1 << 20

	barTemplate = `{{string . "action"}} {{string . "path"}} {{counters . }} {{bar . "[" "=" ">" " " "]"}} {{speed . }} {{rtime . "ETA %s"}}`
)

// ProgressFormatter shows a byte progress bar for each large file copy,
// then the human summary at the end of the cycle
type ProgressFormatter struct {
	mu        sync.Mutex
	writer    io.Writer
	termWidth int
	enabled   bool

	bar     *pb.ProgressBar
	barPath string
}

// NewProgressFormatter creates a new progress bar formatter.
// Bars are drawn only when w is a terminal.
func NewProgressFormatter(w io.Writer) *ProgressFormatter {
	if w == nil {
		w = os.Stdout
	}

	f := &ProgressFormatter{writer: w, termWidth: 120}

	if file, ok := w.(*os.File); ok {
		fd := file.Fd()
		f.enabled = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		if width, _, err := term.GetSize(int(fd)); err == nil && width > 0 {
			f.termWidth = width
		}
	}

	return f
}

// Start initializes the formatter
func (f *ProgressFormatter) Start(report *models.CycleReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishBar()
	return nil
}

// Progress updates the bar of the file being copied
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	if !f.enabled {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch update.Type {
	case EventFileStart:
		f.finishBar()
		if update.TotalBytes < minBarSize {
			return nil
		}
		f.bar = pb.New64(update.TotalBytes).
			SetTemplateString(barTemplate).
			Set(pb.Bytes, true).
			Set("action", string(update.Action)).
			Set("path", truncatePath(update.FilePath, f.termWidth/3)).
			SetWidth(f.termWidth).
			SetWriter(f.writer).
			Start()
		f.barPath = update.FilePath

	case EventFileProgress:
		if f.bar != nil && f.barPath == update.FilePath {
			f.bar.SetCurrent(update.BytesWritten)
		}

	case EventFileComplete, EventFileError:
		if f.bar != nil && f.barPath == update.FilePath {
			if update.Type == EventFileComplete {
				f.bar.SetCurrent(update.TotalBytes)
			}
			f.finishBar()
		}
	}

	return nil
}

// Complete displays the cycle summary
func (f *ProgressFormatter) Complete(report *models.CycleReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishBar()
	return writeSummary(f.writer, report)
}

// Error reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishBar()
	_, werr := fmt.Fprintf(f.writer, "Error: %v\n", err)
	return werr
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}

// finishBar must be called with f.mu held
func (f *ProgressFormatter) finishBar() {
	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
		f.barPath = ""
	}
}

// truncatePath shortens p from the left to fit max runes
func truncatePath(p string, max int) string {
	r := []rune(p)
	if max < 4 || len(r) <= max {
		return p
	}
	return "..." + string(r[len(r)-max+3:])
}
