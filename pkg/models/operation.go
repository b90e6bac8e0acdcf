package models

import (
	"time"
)

// ComparisonMethod defines how two same-named files are compared
type ComparisonMethod string

const (
	// CompareShallow trusts matching size and mtime, and checks content
	// when only the mtime differs
	CompareShallow ComparisonMethod = "shallow"
	// CompareMetadata compares size and modification time only
	CompareMetadata ComparisonMethod = "metadata"
	// CompareSize compares size only
	CompareSize ComparisonMethod = "size"
	// CompareContent compares byte-by-byte
	CompareContent ComparisonMethod = "content"
)

// ParseComparisonMethod validates a comparison method name
func ParseComparisonMethod(s string) (ComparisonMethod, error) {
	switch m := ComparisonMethod(s); m {
	case CompareShallow, CompareMetadata, CompareSize, CompareContent:
		return m, nil
	default:
		return "", &ValidationError{
			Field:   "comparison",
			Message: "unsupported method " + s + " (valid: shallow, metadata, size, content)",
		}
	}
}

// MirrorOperation describes one source/replica pair and how to mirror it
type MirrorOperation struct {
	SourcePath       string
	ReplicaPath      string
	ComparisonMethod ComparisonMethod
	ModTimeWindow    time.Duration
	ExcludePatterns  []string
	DryRun           bool
	BandwidthLimit   int64 // bytes per second, 0 = unlimited
	BufferSize       int
	Interval         time.Duration
}

// Validate checks if the operation configuration is valid
func (op *MirrorOperation) Validate() error {
	if op.SourcePath == "" {
		return &ValidationError{Field: "SourcePath", Message: "source path is required"}
	}
	if op.ReplicaPath == "" {
		return &ValidationError{Field: "ReplicaPath", Message: "replica path is required"}
	}
	if _, err := ParseComparisonMethod(string(op.ComparisonMethod)); err != nil {
		return err
	}
	if op.ModTimeWindow < 0 {
		return &ValidationError{Field: "ModTimeWindow", Message: "must not be negative"}
	}
	if op.BufferSize < 1024 {
		return &ValidationError{Field: "BufferSize", Message: "buffer size must be at least 1024 bytes"}
	}
	if op.BandwidthLimit < 0 {
		return &ValidationError{Field: "BandwidthLimit", Message: "must not be negative"}
	}
	if op.Interval < 0 {
		return &ValidationError{Field: "Interval", Message: "must not be negative"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
