package compare

import (
	"context"
	"fmt"

	"github.com/sdejongh/foldermirror/pkg/storage"
)

// SizeComparator compares files by size only
type SizeComparator struct{}

// NewSizeComparator creates a new size comparator
func NewSizeComparator() *SizeComparator {
	return &SizeComparator{}
}

// Compare compares two files by size
func (c *SizeComparator) Compare(ctx context.Context, source, replica storage.Backend, src, dst *storage.FileInfo) (*Comparison, error) {
	if src.Size != dst.Size {
		return different(src.RelativePath, fmt.Sprintf("file sizes differ (source: %d, replica: %d)", src.Size, dst.Size)), nil
	}

	return same(src.RelativePath, "sizes match"), nil
}

// Name returns the comparator name
func (c *SizeComparator) Name() string {
	return "size"
}
