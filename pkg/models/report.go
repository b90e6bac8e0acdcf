package models

import (
	"time"
)

// CycleReport represents the results of one reconciliation cycle
type CycleReport struct {
	CycleID     string
	SourcePath  string
	ReplicaPath string
	DryRun      bool

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Stats Statistics

	// Outcomes lists every attempted action in the order it was applied
	Outcomes []Outcome

	// Fatal is set when the cycle was aborted as a whole
	Fatal error

	Status CycleStatus
}

// NewCycleReport creates an empty report for a starting cycle
func NewCycleReport(cycleID, source, replica string, dryRun bool) *CycleReport {
	return &CycleReport{
		CycleID:     cycleID,
		SourcePath:  source,
		ReplicaPath: replica,
		DryRun:      dryRun,
		StartTime:   time.Now(),
		Status:      StatusSuccess,
	}
}

// Statistics holds cycle metrics
type Statistics struct {
	FilesCopied    int
	FilesUpdated   int
	FilesDeleted   int
	FilesRetimed   int
	FilesIdentical int

	DirsVisited int
	DirsCreated int
	DirsDeleted int

	Errors int

	BytesTransferred int64
}

// Actions returns the number of mutations performed (or planned, in dry-run)
func (s Statistics) Actions() int {
	return s.FilesCopied + s.FilesUpdated + s.FilesDeleted + s.FilesRetimed + s.DirsCreated + s.DirsDeleted
}

// Record appends an outcome and updates the statistics
func (r *CycleReport) Record(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)

	if o.Failed() {
		r.Stats.Errors++
		return
	}

	switch {
	case o.Action == ActionCopy && o.Kind == KindFile:
		r.Stats.FilesCopied++
		r.Stats.BytesTransferred += o.Bytes
	case o.Action == ActionUpdate:
		r.Stats.FilesUpdated++
		r.Stats.BytesTransferred += o.Bytes
	case o.Action == ActionRetime:
		r.Stats.FilesRetimed++
	case o.Action == ActionDelete && o.Kind == KindFile:
		r.Stats.FilesDeleted++
	case o.Action == ActionDelete && o.Kind == KindDir:
		r.Stats.DirsDeleted++
	case o.Action == ActionMkdir:
		r.Stats.DirsCreated++
	}
}

// Errors returns the failed outcomes
func (r *CycleReport) Errors() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Finish stamps the end time and derives the final status
func (r *CycleReport) Finish(status CycleStatus) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)

	if status != StatusSuccess {
		r.Status = status
		return
	}
	if r.Stats.Errors > 0 {
		r.Status = StatusPartial
		return
	}
	r.Status = StatusSuccess
}

// CycleStatus represents the overall result
type CycleStatus string

const (
	// StatusSuccess indicates all actions completed successfully
	StatusSuccess CycleStatus = "success"
	// StatusPartial indicates some per-entry actions failed
	StatusPartial CycleStatus = "partial"
	// StatusFailed indicates the cycle was aborted
	StatusFailed CycleStatus = "failed"
	// StatusCancelled indicates the cycle was interrupted
	StatusCancelled CycleStatus = "cancelled"
)

// ExitCode returns the appropriate exit code for the cycle status
func (s CycleStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}
