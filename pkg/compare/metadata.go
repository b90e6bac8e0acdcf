package compare

import (
	"context"
	"fmt"
	"time"

	"github.com/sdejongh/foldermirror/pkg/storage"
)

// MetadataComparator compares files by size and modification time.
// Unlike a "newer wins" check, any mtime mismatch beyond the window counts:
// the replica must carry the source's timestamp.
type MetadataComparator struct {
	window time.Duration
}

// NewMetadataComparator creates a new size+mtime comparator
func NewMetadataComparator(window time.Duration) *MetadataComparator {
	return &MetadataComparator{window: window}
}

// Compare compares two files by size and modification time
func (c *MetadataComparator) Compare(ctx context.Context, source, replica storage.Backend, src, dst *storage.FileInfo) (*Comparison, error) {
	if src.Size != dst.Size {
		return different(src.RelativePath, fmt.Sprintf("file sizes differ (source: %d, replica: %d)", src.Size, dst.Size)), nil
	}

	if !modTimeEqual(src.ModTime, dst.ModTime, c.window) {
		return different(src.RelativePath, fmt.Sprintf("modification times differ (source: %s, replica: %s)",
			src.ModTime.Format("2006-01-02 15:04:05"), dst.ModTime.Format("2006-01-02 15:04:05"))), nil
	}

	return same(src.RelativePath, "size and modification time match"), nil
}

// Name returns the comparator name
func (c *MetadataComparator) Name() string {
	return "metadata"
}
