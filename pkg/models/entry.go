package models

import (
	"time"
)

// EntryKind tells files and directories apart
type EntryKind string

const (
	// KindFile is a regular file (or anything that is not a directory)
	KindFile EntryKind = "file"
	// KindDir is a directory
	KindDir EntryKind = "dir"
)

// KindOf returns the entry kind for an IsDir flag
func KindOf(isDir bool) EntryKind {
	if isDir {
		return KindDir
	}
	return KindFile
}

// Action represents what was done to a replica entry
type Action string

const (
	// ActionCopy copies an entry that exists only in the source
	ActionCopy Action = "copy"
	// ActionUpdate overwrites a replica file that differs from the source
	ActionUpdate Action = "update"
	// ActionDelete removes an entry that exists only in the replica
	ActionDelete Action = "delete"
	// ActionMkdir creates a replica directory
	ActionMkdir Action = "mkdir"
	// ActionRetime restores the metadata of a replica file whose content matches
	ActionRetime Action = "retime"
	// ActionScan inspects a directory level or an entry
	ActionScan Action = "scan"
)

// Outcome records a single attempted action and its result
type Outcome struct {
	// Path is relative to the mirror roots
	Path string

	Kind   EntryKind
	Action Action

	// Error is nil when the action succeeded
	Error error

	// Bytes is the number of bytes written for file copies
	Bytes    int64
	Duration time.Duration

	// DryRun marks planned actions that were not applied
	DryRun bool
}

// Failed returns true if the action did not succeed
func (o Outcome) Failed() bool {
	return o.Error != nil
}
