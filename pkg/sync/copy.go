package sync

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sdejongh/foldermirror/pkg/models"
	"github.com/sdejongh/foldermirror/pkg/output"
	"github.com/sdejongh/foldermirror/pkg/ratelimit"
	"github.com/sdejongh/foldermirror/pkg/storage"
)

// Progress reporting thresholds
const (
	progressReportInterval = 50 * time.Millisecond // Minimum time between progress reports
	progressReportBytes    = 64 * 1024             // Minimum bytes between reports (64KB)
)

// progressReader wraps an io.Reader to report progress
type progressReader struct {
	reader         io.Reader
	read           int64
	lastReported   int64
	lastReportTime time.Time
	onProgress     func(bytesRead int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)

		// Throttle callbacks by bytes and time, always report the last read
		if pr.onProgress != nil {
			if pr.read-pr.lastReported >= progressReportBytes ||
				time.Since(pr.lastReportTime) >= progressReportInterval ||
				err != nil {
				pr.onProgress(pr.read)
				pr.lastReported = pr.read
				pr.lastReportTime = time.Now()
			}
		}
	}
	return n, err
}

// copyFile copies (or overwrites) one file and records the outcome
func (c *cycle) copyFile(ctx context.Context, src storage.FileInfo, action models.Action, nested bool) {
	o := models.Outcome{
		Path:   src.RelativePath,
		Kind:   models.KindFile,
		Action: action,
		DryRun: c.dryRun,
	}

	if !c.dryRun {
		start := time.Now()
		o.Bytes, o.Error = c.transfer(ctx, src, action)
		o.Duration = time.Since(start)
	}

	if nested {
		c.recordNested(ctx, o)
	} else {
		c.record(ctx, o)
	}
}

// transfer streams a source file into the replica, preserving mtime and permissions
func (c *cycle) transfer(ctx context.Context, src storage.FileInfo, action models.Action) (int64, error) {
	e := c.engine

	rc, err := e.source.Read(ctx, src.RelativePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read source file: %w", err)
	}
	reader := ratelimit.NewReadCloser(ctx, rc, e.limiter)
	defer reader.Close()

	e.formatter.Progress(output.ProgressUpdate{
		Type:       output.EventFileStart,
		FilePath:   src.RelativePath,
		Action:     action,
		TotalBytes: src.Size,
	})

	pr := &progressReader{
		reader:         reader,
		lastReportTime: time.Now(),
		onProgress: func(bytesRead int64) {
			e.formatter.Progress(output.ProgressUpdate{
				Type:         output.EventFileProgress,
				FilePath:     src.RelativePath,
				Action:       action,
				BytesWritten: bytesRead,
				TotalBytes:   src.Size,
			})
		},
	}

	if err := e.replica.Write(ctx, src.RelativePath, pr, src.Size, &src); err != nil {
		e.formatter.Progress(output.ProgressUpdate{
			Type:     output.EventFileError,
			FilePath: src.RelativePath,
			Action:   action,
			Error:    err,
		})
		return pr.read, fmt.Errorf("failed to write replica file: %w", err)
	}

	e.formatter.Progress(output.ProgressUpdate{
		Type:         output.EventFileComplete,
		FilePath:     src.RelativePath,
		Action:       action,
		BytesWritten: pr.read,
		TotalBytes:   src.Size,
	})

	return pr.read, nil
}

// copyDir deep-copies a source-only directory. Every nested entry is
// attempted on its own; the directory itself is reported once.
func (c *cycle) copyDir(ctx context.Context, src storage.FileInfo) {
	start := time.Now()
	err := c.copyTree(ctx, src)

	c.record(ctx, models.Outcome{
		Path:     src.RelativePath,
		Kind:     models.KindDir,
		Action:   models.ActionCopy,
		Error:    err,
		Duration: time.Since(start),
		DryRun:   c.dryRun,
	})
}

// copyTree creates dir in the replica, copies its children and finally
// applies the source permissions and mtime. The returned error only covers
// dir itself; nested failures are recorded as their own outcomes.
func (c *cycle) copyTree(ctx context.Context, dir storage.FileInfo) error {
	e := c.engine

	if !c.dryRun {
		if err := e.replica.Mkdir(ctx, dir.RelativePath); err != nil {
			return err
		}
	}
	c.record(ctx, models.Outcome{
		Path:   dir.RelativePath,
		Kind:   models.KindDir,
		Action: models.ActionMkdir,
		DryRun: c.dryRun,
	})

	entries, err := e.source.ReadDir(ctx, dir.RelativePath)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.record(ctx, models.Outcome{Path: dir.RelativePath, Kind: models.KindDir, Action: models.ActionScan, Error: err})
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.excluder.Match(entry.RelativePath, entry.IsDir) {
			continue
		}

		switch {
		case entry.Err != nil:
			c.record(ctx, models.Outcome{Path: entry.RelativePath, Kind: models.KindFile, Action: models.ActionScan, Error: entry.Err})
		case entry.IsDir:
			if err := c.copyTree(ctx, entry); err != nil {
				c.record(ctx, models.Outcome{Path: entry.RelativePath, Kind: models.KindDir, Action: models.ActionCopy, Error: err})
			}
		default:
			c.copyFile(ctx, entry, models.ActionCopy, true)
		}
	}

	if c.dryRun {
		return nil
	}

	// Applied last so a read-only source directory can still be filled
	if err := e.replica.SetMetadata(ctx, dir.RelativePath, &dir); err != nil {
		return fmt.Errorf("failed to set directory metadata: %w", err)
	}
	return nil
}
