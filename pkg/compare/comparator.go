package compare

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sdejongh/foldermirror/pkg/models"
	"github.com/sdejongh/foldermirror/pkg/storage"
)

// Result represents the outcome of comparing two files
type Result string

const (
	// Same indicates files are identical
	Same Result = "same"
	// Different indicates files differ
	Different Result = "different"
	// MetadataDiffers indicates matching content under a different
	// modification time
	MetadataDiffers Result = "metadata-differs"
)

// Comparison holds the result of comparing two same-named files
type Comparison struct {
	Path   string
	Result Result
	Reason string
}

// ReaderWrapper wraps readers opened during comparison (e.g., for rate limiting).
// ctx is the context of the Compare call.
type ReaderWrapper func(ctx context.Context, r io.Reader) io.Reader

// Comparator defines the interface for file comparison algorithms.
// Both entries are known to be files present on both sides.
type Comparator interface {
	// Compare compares two files and returns the result
	Compare(ctx context.Context, source, replica storage.Backend, src, dst *storage.FileInfo) (*Comparison, error)

	// Name returns the name of the comparison method
	Name() string
}

// Options tunes the comparators
type Options struct {
	// ModTimeWindow is the largest mtime difference still treated as equal
	ModTimeWindow time.Duration
	BufferSize    int
}

// New returns the comparator for a comparison method
func New(method models.ComparisonMethod, opts Options) (Comparator, error) {
	switch method {
	case models.CompareShallow, "":
		return NewShallowComparator(opts.ModTimeWindow, opts.BufferSize), nil
	case models.CompareMetadata:
		return NewMetadataComparator(opts.ModTimeWindow), nil
	case models.CompareSize:
		return NewSizeComparator(), nil
	case models.CompareContent:
		return NewContentComparator(opts.BufferSize), nil
	default:
		return nil, fmt.Errorf("unsupported comparison method: %s (use: shallow, metadata, size, content)", method)
	}
}

func same(path, reason string) *Comparison {
	return &Comparison{Path: path, Result: Same, Reason: reason}
}

func different(path, reason string) *Comparison {
	return &Comparison{Path: path, Result: Different, Reason: reason}
}

// modTimeEqual reports whether two mtimes agree within window
func modTimeEqual(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= window
}
