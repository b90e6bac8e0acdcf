package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/foldermirror/pkg/compare"
	"github.com/sdejongh/foldermirror/pkg/logging"
	"github.com/sdejongh/foldermirror/pkg/models"
	"github.com/sdejongh/foldermirror/pkg/output"
	"github.com/sdejongh/foldermirror/pkg/ratelimit"
	"github.com/sdejongh/foldermirror/pkg/storage"
)

// Engine mirrors a source tree onto a replica tree, one cycle per Run
type Engine struct {
	source     storage.Backend
	replica    storage.Backend
	comparator compare.Comparator
	formatter  output.Formatter
	logger     logging.Logger
	operation  *models.MirrorOperation
	excluder   *Excluder
	limiter    *ratelimit.Limiter
}

// NewEngine creates a new mirror engine.
// With a bandwidth limit, content checks run on a rate-limited copy of
// comparator; the comparator passed in is never modified.
func NewEngine(
	source, replica storage.Backend,
	comparator compare.Comparator,
	formatter output.Formatter,
	logger logging.Logger,
	operation *models.MirrorOperation,
) (*Engine, error) {
	excluder, err := NewExcluder(operation.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	if formatter == nil {
		formatter = output.NullFormatter{}
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	limiter := ratelimit.NewLimiter(operation.BandwidthLimit)

	// Content checks read both trees and share the copy bandwidth budget
	if w, ok := comparator.(readerWrapping); ok && limiter != nil {
		comparator = w.WithReaderWrapper(func(ctx context.Context, r io.Reader) io.Reader {
			return ratelimit.NewReader(ctx, r, limiter)
		})
	}

	return &Engine{
		source:     source,
		replica:    replica,
		comparator: comparator,
		formatter:  formatter,
		logger:     logger,
		operation:  operation,
		excluder:   excluder,
		limiter:    limiter,
	}, nil
}

type readerWrapping interface {
	WithReaderWrapper(compare.ReaderWrapper) compare.Comparator
}

// Run executes one reconciliation cycle.
// The returned error is non-nil only when the cycle as a whole failed or was
// cancelled; per-entry failures are reported in the CycleReport.
func (e *Engine) Run(ctx context.Context) (*models.CycleReport, error) {
	cycleID := uuid.NewString()
	report := models.NewCycleReport(cycleID, e.source.Root(), e.replica.Root(), e.operation.DryRun)

	c := &cycle{
		engine: e,
		log:    e.logger.WithFields(logging.Fields{"cycle": cycleID[:8]}),
		report: report,
		dryRun: e.operation.DryRun,
	}

	e.formatter.Start(report)

	err := c.run(ctx)

	switch {
	case err == nil:
		report.Finish(models.StatusSuccess)
	case ctx.Err() != nil:
		err = ctx.Err()
		report.Fatal = err
		report.Finish(models.StatusCancelled)
	default:
		report.Fatal = err
		report.Finish(models.StatusFailed)
	}

	c.log.Info(ctx, "Cycle finished", logging.Fields{
		"status":   string(report.Status),
		"actions":  report.Stats.Actions(),
		"errors":   report.Stats.Errors,
		"duration": report.Duration.Round(time.Millisecond).String(),
	})
	e.formatter.Complete(report)

	return report, err
}

// cycle holds the state of a single Run
type cycle struct {
	engine *Engine
	log    logging.Logger
	report *models.CycleReport
	dryRun bool
}

func (c *cycle) run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := c.engine
	c.log.Info(ctx, "Comparing directories", logging.Fields{
		"source":   e.source.Root(),
		"replica":  e.replica.Root(),
		"excludes": e.excluder.Len(),
	})

	if err := c.checkSource(ctx); err != nil {
		c.log.Error(ctx, "Source folder does not exist", err, logging.Fields{"source": e.source.Root()})
		return err
	}

	replicaAbsent, err := c.prepareReplica(ctx)
	if err != nil {
		c.log.Error(ctx, "Replica folder is not usable", err, logging.Fields{"replica": e.replica.Root()})
		return err
	}

	if err := c.reconcileDir(ctx, "", replicaAbsent); err != nil {
		if ctx.Err() == nil {
			c.log.Error(ctx, "Failed to compare directories", err, nil)
		}
		return err
	}

	// A comparison interrupted by cancellation is recorded as a failed entry,
	// so the level itself may have returned nil
	return ctx.Err()
}

// checkSource makes sure the source root is an existing directory
func (c *cycle) checkSource(ctx context.Context) error {
	root := c.engine.source.Root()

	info, err := c.engine.source.Stat(ctx, "")
	if err != nil {
		return &MissingSourceError{Path: root, Err: err}
	}
	if !info.IsDir {
		return &MissingSourceError{Path: root, Err: storage.ErrNotDirectory}
	}
	return nil
}

// prepareReplica creates a missing replica root. It reports whether the
// replica is still absent, which only happens in dry-run mode.
func (c *cycle) prepareReplica(ctx context.Context) (bool, error) {
	replica := c.engine.replica

	exists, err := replica.Exists(ctx, "")
	if err != nil {
		return false, fmt.Errorf("failed to check replica directory: %w", err)
	}

	if exists {
		info, err := replica.Stat(ctx, "")
		if err != nil {
			return false, fmt.Errorf("failed to stat replica directory: %w", err)
		}
		if !info.IsDir {
			return false, fmt.Errorf("%w: %s", ErrReplicaNotDir, replica.Root())
		}
		return false, nil
	}

	o := models.Outcome{Kind: models.KindDir, Action: models.ActionMkdir, DryRun: c.dryRun}
	if c.dryRun {
		c.record(ctx, o)
		return true, nil
	}

	start := time.Now()
	if err := replica.Mkdir(ctx, ""); err != nil {
		return false, fmt.Errorf("failed to create replica directory: %w", err)
	}
	o.Duration = time.Since(start)
	c.record(ctx, o)

	return false, nil
}

// reconcileDir brings one replica directory level in line with the source,
// then descends into the directories both sides share
func (c *cycle) reconcileDir(ctx context.Context, dir string, replicaAbsent bool) error {
	e := c.engine

	cls, err := compare.ClassifyDir(ctx, e.source, e.replica, dir, e.comparator, compare.ClassifyOptions{
		Exclude:       e.excluder.Match,
		ReplicaAbsent: replicaAbsent,
	})
	if err != nil {
		return err
	}

	c.report.Stats.DirsVisited++
	c.report.Stats.FilesIdentical += len(cls.Identical)

	// Deletions first, so a name whose kind changed is free for the copy
	for _, dst := range cls.ReplicaOnly {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.remove(ctx, dst)
	}

	for _, src := range cls.SourceOnly {
		if err := ctx.Err(); err != nil {
			return err
		}
		if src.IsDir {
			c.copyDir(ctx, src)
		} else {
			c.copyFile(ctx, src, models.ActionCopy, false)
		}
	}

	for _, changed := range cls.Changed {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.log.Debug(ctx, "File differs", logging.Fields{"path": changed.Source.RelativePath, "reason": changed.Reason})
		c.copyFile(ctx, changed.Source, models.ActionUpdate, false)
	}

	for _, stale := range cls.Retimed {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.retime(ctx, stale)
	}

	for _, failed := range cls.Failed {
		c.record(ctx, models.Outcome{
			Path:   failed.Entry.RelativePath,
			Kind:   models.KindOf(failed.Entry.IsDir),
			Action: models.ActionScan,
			Error:  failed.Err,
		})
	}

	for _, name := range cls.CommonDirs {
		if err := ctx.Err(); err != nil {
			return err
		}

		sub := filepath.Join(dir, name)
		c.log.Debug(ctx, "Entering subdirectory", logging.Fields{"path": sub})

		if err := c.reconcileDir(ctx, sub, false); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.record(ctx, models.Outcome{Path: sub, Kind: models.KindDir, Action: models.ActionScan, Error: err})
		}
	}

	return nil
}

// remove deletes a replica-only entry. A symlink is unlinked, never followed.
func (c *cycle) remove(ctx context.Context, dst storage.FileInfo) {
	isDir := dst.IsDir && !dst.Symlink
	o := models.Outcome{
		Path:   dst.RelativePath,
		Kind:   models.KindOf(isDir),
		Action: models.ActionDelete,
		DryRun: c.dryRun,
	}

	if !c.dryRun {
		start := time.Now()
		if isDir {
			o.Error = c.engine.replica.RemoveAll(ctx, dst.RelativePath)
		} else {
			o.Error = c.engine.replica.Remove(ctx, dst.RelativePath)
		}
		o.Duration = time.Since(start)
	}

	c.record(ctx, o)
}

// retime copies the source mtime and permissions onto a replica file whose
// content already matches
func (c *cycle) retime(ctx context.Context, stale compare.ChangedFile) {
	src := stale.Source
	o := models.Outcome{
		Path:   src.RelativePath,
		Kind:   models.KindFile,
		Action: models.ActionRetime,
		DryRun: c.dryRun,
	}

	if !c.dryRun {
		start := time.Now()
		o.Error = c.engine.replica.SetMetadata(ctx, src.RelativePath, &src)
		o.Duration = time.Since(start)
	}

	c.record(ctx, o)
}

// record adds an outcome to the report and logs it
func (c *cycle) record(ctx context.Context, o models.Outcome) {
	c.recordAt(ctx, o, false)
}

// recordNested logs successes at debug level; used for entries inside a
// directory copy, which is reported once as a whole
func (c *cycle) recordNested(ctx context.Context, o models.Outcome) {
	c.recordAt(ctx, o, true)
}

func (c *cycle) recordAt(ctx context.Context, o models.Outcome, nested bool) {
	c.report.Record(o)

	path := o.Path
	if path == "" {
		path = "."
	}
	fields := logging.Fields{"path": path}

	if o.Failed() {
		c.log.Error(ctx, failureMessage(o), o.Error, fields)
		return
	}

	msg := successMessage(o)
	if msg == "" {
		return
	}
	if o.Bytes > 0 {
		fields["bytes"] = o.Bytes
	}
	if o.DryRun {
		fields["dry_run"] = true
	}

	if nested {
		c.log.Debug(ctx, msg, fields)
		return
	}
	c.log.Info(ctx, msg, fields)
}

func successMessage(o models.Outcome) string {
	switch {
	case o.Action == models.ActionCopy && o.Kind == models.KindFile:
		return "File copied"
	case o.Action == models.ActionCopy && o.Kind == models.KindDir:
		return "Directory copied"
	case o.Action == models.ActionUpdate:
		return "File updated"
	case o.Action == models.ActionRetime:
		return "File metadata restored"
	case o.Action == models.ActionDelete && o.Kind == models.KindDir:
		return "Directory removed"
	case o.Action == models.ActionDelete:
		return "File removed"
	case o.Action == models.ActionMkdir:
		return "Created directory"
	}
	return ""
}

func failureMessage(o models.Outcome) string {
	switch {
	case o.Action == models.ActionCopy && o.Kind == models.KindDir:
		return "Failed to copy directory"
	case o.Action == models.ActionCopy:
		return "Failed to copy file"
	case o.Action == models.ActionUpdate:
		return "Failed to update file"
	case o.Action == models.ActionRetime:
		return "Failed to restore file metadata"
	case o.Action == models.ActionDelete && o.Kind == models.KindDir:
		return "Failed to remove directory"
	case o.Action == models.ActionDelete:
		return "Failed to remove file"
	case o.Action == models.ActionMkdir:
		return "Failed to create directory"
	case o.Kind == models.KindDir:
		return "Failed to scan directory"
	}
	return "Failed to inspect entry"
}

// IsFatal reports whether err ended a whole cycle rather than one entry
func IsFatal(err error) bool {
	var missing *MissingSourceError
	return errors.As(err, &missing) || errors.Is(err, ErrReplicaNotDir)
}
