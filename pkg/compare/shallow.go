package compare

import (
	"context"
	"time"

	"github.com/sdejongh/foldermirror/pkg/storage"
)

// ShallowComparator performs the classic two-stage shallow comparison.
// Stage 1: identical size and mtime means same, different size means different.
// Stage 2: same size with a different mtime falls back to a content check;
// matching content is then reported as MetadataDiffers so the caller can fix
// the replica timestamp and keep later cycles on stage 1.
type ShallowComparator struct {
	window  time.Duration
	content *ContentComparator
}

// NewShallowComparator creates the default comparator
func NewShallowComparator(window time.Duration, bufferSize int) *ShallowComparator {
	return &ShallowComparator{
		window:  window,
		content: NewContentComparator(bufferSize),
	}
}

// Compare performs the shallow comparison
func (c *ShallowComparator) Compare(ctx context.Context, source, replica storage.Backend, src, dst *storage.FileInfo) (*Comparison, error) {
	if src.Size != dst.Size {
		return different(src.RelativePath, "file sizes differ"), nil
	}

	if modTimeEqual(src.ModTime, dst.ModTime, c.window) {
		return same(src.RelativePath, "size and modification time match"), nil
	}

	result, err := c.content.Compare(ctx, source, replica, src, dst)
	if err != nil || result.Result != Same {
		return result, err
	}
	return &Comparison{Path: src.RelativePath, Result: MetadataDiffers, Reason: "content matches, modification time differs"}, nil
}

// WithReaderWrapper returns a copy of c whose content stage wraps the
// readers it opens
func (c *ShallowComparator) WithReaderWrapper(wrapper ReaderWrapper) Comparator {
	cp := *c
	cp.content = c.content.withReaderWrapper(wrapper)
	return &cp
}

// Name returns the comparator name
func (c *ShallowComparator) Name() string {
	return "shallow"
}
