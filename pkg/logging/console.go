package logging

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ConsoleLogger writes human-readable lines to a terminal or stream
type ConsoleLogger struct {
	out    *consoleSink
	level  Level
	fields Fields
}

type consoleSink struct {
	mu     sync.Mutex
	w      io.Writer
	colors map[Level]*color.Color
}

// NewConsoleLogger creates a logger writing to w.
// Levels are coloured only when w is a terminal.
func NewConsoleLogger(w io.Writer, level Level) *ConsoleLogger {
	sink := &consoleSink{w: w}

	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		sink.colors = map[Level]*color.Color{
			DebugLevel: color.New(color.FgHiBlack),
			InfoLevel:  color.New(color.FgGreen),
			WarnLevel:  color.New(color.FgYellow),
			ErrorLevel: color.New(color.FgRed, color.Bold),
		}
		for _, c := range sink.colors {
			c.EnableColor()
		}
	}

	return &ConsoleLogger{out: sink, level: level}
}

// Debug logs a debug message
func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(DebugLevel, msg, nil, fields)
}

// Info logs an info message
func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(InfoLevel, msg, nil, fields)
}

// Warn logs a warning message
func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(WarnLevel, msg, nil, fields)
}

// Error logs an error message
func (l *ConsoleLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.log(ErrorLevel, msg, err, fields)
}

// WithFields returns a logger with additional fields
func (l *ConsoleLogger) WithFields(fields Fields) Logger {
	return &ConsoleLogger{
		out:    l.out,
		level:  l.level,
		fields: mergeFields(l.fields, fields),
	}
}

// Close does nothing; the stream belongs to the caller
func (l *ConsoleLogger) Close() error {
	return nil
}

func (l *ConsoleLogger) log(level Level, msg string, err error, fields Fields) {
	if level < l.level {
		return
	}

	name := levelString(level)
	if c, ok := l.out.colors[level]; ok {
		name = c.Sprint(name)
	}

	line := textLine(time.Now(), name, msg, err, mergeFields(l.fields, fields)) + "\n"

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	io.WriteString(l.out.w, line)
}
