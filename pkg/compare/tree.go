package compare

import (
	"context"
	"fmt"

	"github.com/sdejongh/foldermirror/pkg/storage"
)

// ChangedFile is a file present on both sides whose comparison said different
type ChangedFile struct {
	Source  storage.FileInfo
	Replica storage.FileInfo
	Reason  string
}

// EntryError is a source entry that could not be inspected or compared
type EntryError struct {
	Entry storage.FileInfo
	Err   error
}

// Classification partitions the names of one directory level.
// Every visible name lands in exactly one category, except a name whose kind
// differs between the two sides: it is both in ReplicaOnly (to be removed)
// and in SourceOnly (to be recreated). All slices are ordered by name.
type Classification struct {
	// Dir is the directory relative to both roots
	Dir string

	SourceOnly  []storage.FileInfo
	ReplicaOnly []storage.FileInfo
	Changed     []ChangedFile
	Identical   []string
	CommonDirs  []string
	Failed      []EntryError

	// Retimed files have matching content but a stale replica mtime
	Retimed []ChangedFile
}

// Empty reports whether the level needs no action and has no subdirectories
func (c *Classification) Empty() bool {
	return len(c.SourceOnly) == 0 && len(c.ReplicaOnly) == 0 &&
		len(c.Changed) == 0 && len(c.Retimed) == 0 && len(c.Failed) == 0 &&
		len(c.CommonDirs) == 0
}

// ClassifyOptions tunes ClassifyDir
type ClassifyOptions struct {
	// Exclude hides entries on both sides when it returns true
	Exclude func(relPath string, isDir bool) bool

	// ReplicaAbsent treats the replica directory as empty instead of listing it
	ReplicaAbsent bool
}

// ClassifyDir compares one directory level of source and replica.
// It only inspects; an error is returned when a listing fails.
func ClassifyDir(ctx context.Context, source, replica storage.Backend, dir string, cmp Comparator, opts ClassifyOptions) (*Classification, error) {
	srcEntries, err := source.ReadDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list source directory: %w", err)
	}

	var dstEntries []storage.FileInfo
	if !opts.ReplicaAbsent {
		dstEntries, err = replica.ReadDir(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to list replica directory: %w", err)
		}
	}

	srcEntries = filterExcluded(srcEntries, opts.Exclude)
	dstEntries = filterExcluded(dstEntries, opts.Exclude)

	cls := &Classification{Dir: dir}

	// Both listings are sorted by name, so a single merge pass keeps every
	// category in lexicographic order.
	i, j := 0, 0
	for i < len(srcEntries) || j < len(dstEntries) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch {
		case j >= len(dstEntries) || (i < len(srcEntries) && srcEntries[i].Name < dstEntries[j].Name):
			cls.addSourceOnly(srcEntries[i])
			i++

		case i >= len(srcEntries) || dstEntries[j].Name < srcEntries[i].Name:
			cls.ReplicaOnly = append(cls.ReplicaOnly, dstEntries[j])
			j++

		default:
			cls.addCommon(ctx, source, replica, cmp, srcEntries[i], dstEntries[j])
			i++
			j++
		}
	}

	return cls, nil
}

func (c *Classification) addSourceOnly(src storage.FileInfo) {
	if src.Err != nil {
		c.Failed = append(c.Failed, EntryError{Entry: src, Err: src.Err})
		return
	}
	c.SourceOnly = append(c.SourceOnly, src)
}

func (c *Classification) addCommon(ctx context.Context, source, replica storage.Backend, cmp Comparator, src, dst storage.FileInfo) {
	// An unreadable source entry leaves its replica counterpart alone
	if src.Err != nil {
		c.Failed = append(c.Failed, EntryError{Entry: src, Err: src.Err})
		return
	}

	// A replica entry that cannot be resolved is removed as a file, and so is
	// a replica symlink: descending into it would write outside the replica
	if src.IsDir != dst.IsDir || dst.Err != nil || dst.Symlink {
		c.ReplicaOnly = append(c.ReplicaOnly, dst)
		c.SourceOnly = append(c.SourceOnly, src)
		return
	}

	if src.IsDir {
		c.CommonDirs = append(c.CommonDirs, src.Name)
		return
	}

	result, err := cmp.Compare(ctx, source, replica, &src, &dst)
	if err != nil {
		c.Failed = append(c.Failed, EntryError{Entry: src, Err: fmt.Errorf("failed to compare: %w", err)})
		return
	}

	switch result.Result {
	case Same:
		c.Identical = append(c.Identical, src.Name)
		return
	case MetadataDiffers:
		c.Retimed = append(c.Retimed, ChangedFile{Source: src, Replica: dst, Reason: result.Reason})
		return
	}

	c.Changed = append(c.Changed, ChangedFile{Source: src, Replica: dst, Reason: result.Reason})
}

func filterExcluded(entries []storage.FileInfo, exclude func(string, bool) bool) []storage.FileInfo {
	if exclude == nil {
		return entries
	}

	kept := entries[:0:0]
	for _, e := range entries {
		if exclude(e.RelativePath, e.IsDir) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
