package compare

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sdejongh/foldermirror/pkg/models"
	"github.com/sdejongh/foldermirror/pkg/storage"
)

// TestHelper provides utilities for comparator tests
type TestHelper struct {
	t          *testing.T
	sourceDir  string
	replicaDir string
	source     *storage.Local
	replica    *storage.Local
}

// NewTestHelper creates a new test helper with temporary directories
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	tempDir := t.TempDir()
	sourceDir := filepath.Join(tempDir, "source")
	replicaDir := filepath.Join(tempDir, "replica")

	for _, dir := range []string{sourceDir, replicaDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
	}

	source, err := storage.NewLocal(sourceDir)
	if err != nil {
		t.Fatalf("failed to create source backend: %v", err)
	}
	replica, err := storage.NewLocal(replicaDir)
	if err != nil {
		t.Fatalf("failed to create replica backend: %v", err)
	}

	return &TestHelper{t: t, sourceDir: sourceDir, replicaDir: replicaDir, source: source, replica: replica}
}

// CreateSourceFile creates a file in the source directory
func (h *TestHelper) CreateSourceFile(name string, content []byte) {
	h.t.Helper()
	h.createFile(h.sourceDir, name, content)
}

// CreateReplicaFile creates a file in the replica directory
func (h *TestHelper) CreateReplicaFile(name string, content []byte) {
	h.t.Helper()
	h.createFile(h.replicaDir, name, content)
}

func (h *TestHelper) createFile(root, name string, content []byte) {
	h.t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		h.t.Fatalf("failed to create parent dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		h.t.Fatalf("failed to create file: %v", err)
	}
}

// SetModTime sets the modification time for a file on one side
func (h *TestHelper) SetModTime(isSource bool, name string, modTime time.Time) {
	h.t.Helper()
	root := h.replicaDir
	if isSource {
		root = h.sourceDir
	}
	if err := os.Chtimes(filepath.Join(root, name), modTime, modTime); err != nil {
		h.t.Fatalf("failed to set mod time: %v", err)
	}
}

// Stats returns both sides' metadata for a file
func (h *TestHelper) Stats(name string) (*storage.FileInfo, *storage.FileInfo) {
	h.t.Helper()
	ctx := context.Background()
	src, err := h.source.Stat(ctx, name)
	if err != nil {
		h.t.Fatalf("failed to stat source: %v", err)
	}
	dst, err := h.replica.Stat(ctx, name)
	if err != nil {
		h.t.Fatalf("failed to stat replica: %v", err)
	}
	return src, dst
}

func (h *TestHelper) compare(c Comparator, name string) *Comparison {
	h.t.Helper()
	src, dst := h.Stats(name)
	result, err := c.Compare(context.Background(), h.source, h.replica, src, dst)
	if err != nil {
		h.t.Fatalf("Compare() error = %v", err)
	}
	return result
}

func TestNew(t *testing.T) {
	tests := []struct {
		method models.ComparisonMethod
		name   string
	}{
		{models.CompareShallow, "shallow"},
		{"", "shallow"},
		{models.CompareMetadata, "metadata"},
		{models.CompareSize, "size"},
		{models.CompareContent, "content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.method, Options{BufferSize: 4096})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if c.Name() != tt.name {
				t.Errorf("Name() = %s, want %s", c.Name(), tt.name)
			}
		})
	}

	t.Run("Unsupported", func(t *testing.T) {
		if _, err := New("md5", Options{}); err == nil {
			t.Error("New() should reject unknown methods")
		}
	})
}

func TestSizeComparator(t *testing.T) {
	h := NewTestHelper(t)
	comparator := NewSizeComparator()

	t.Run("DifferentSizes", func(t *testing.T) {
		h.CreateSourceFile("diff_size.txt", []byte("short"))
		h.CreateReplicaFile("diff_size.txt", []byte("much longer content"))

		if result := h.compare(comparator, "diff_size.txt"); result.Result != Different {
			t.Errorf("Result = %s, want %s", result.Result, Different)
		}
	})

	t.Run("SameSizeDifferentContent", func(t *testing.T) {
		// size only, content is never read
		h.CreateSourceFile("same_size.txt", []byte("content1"))
		h.CreateReplicaFile("same_size.txt", []byte("content2"))

		if result := h.compare(comparator, "same_size.txt"); result.Result != Same {
			t.Errorf("Result = %s, want %s", result.Result, Same)
		}
	})
}

func TestMetadataComparator(t *testing.T) {
	h := NewTestHelper(t)
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	t.Run("SameSizeAndTime", func(t *testing.T) {
		h.CreateSourceFile("same.txt", []byte("aaa"))
		h.CreateReplicaFile("same.txt", []byte("bbb"))
		h.SetModTime(true, "same.txt", base)
		h.SetModTime(false, "same.txt", base)

		if result := h.compare(NewMetadataComparator(0), "same.txt"); result.Result != Same {
			t.Errorf("Result = %s, want %s", result.Result, Same)
		}
	})

	t.Run("ReplicaNewer", func(t *testing.T) {
		h.CreateSourceFile("newer.txt", []byte("aaa"))
		h.CreateReplicaFile("newer.txt", []byte("aaa"))
		h.SetModTime(true, "newer.txt", base)
		h.SetModTime(false, "newer.txt", base.Add(10*time.Second))

		if result := h.compare(NewMetadataComparator(0), "newer.txt"); result.Result != Different {
			t.Errorf("Result = %s, want %s (any mtime mismatch counts)", result.Result, Different)
		}
	})

	t.Run("WithinWindow", func(t *testing.T) {
		h.CreateSourceFile("window.txt", []byte("aaa"))
		h.CreateReplicaFile("window.txt", []byte("aaa"))
		h.SetModTime(true, "window.txt", base)
		h.SetModTime(false, "window.txt", base.Add(time.Second))

		if result := h.compare(NewMetadataComparator(2*time.Second), "window.txt"); result.Result != Same {
			t.Errorf("Result = %s, want %s", result.Result, Same)
		}
	})
}

func TestContentComparator(t *testing.T) {
	h := NewTestHelper(t)
	comparator := NewContentComparator(4096)

	t.Run("Identical", func(t *testing.T) {
		content := make([]byte, 10000)
		for i := range content {
			content[i] = byte(i % 251)
		}
		h.CreateSourceFile("big.bin", content)
		h.CreateReplicaFile("big.bin", content)

		if result := h.compare(comparator, "big.bin"); result.Result != Same {
			t.Errorf("Result = %s, want %s (%s)", result.Result, Same, result.Reason)
		}
	})

	t.Run("ExactBufferMultiple", func(t *testing.T) {
		content := make([]byte, 8192)
		h.CreateSourceFile("exact.bin", content)
		h.CreateReplicaFile("exact.bin", content)

		if result := h.compare(comparator, "exact.bin"); result.Result != Same {
			t.Errorf("Result = %s, want %s", result.Result, Same)
		}
	})

	t.Run("DifferentContentSameSize", func(t *testing.T) {
		h.CreateSourceFile("diff.txt", []byte("hello world"))
		h.CreateReplicaFile("diff.txt", []byte("hello wOrld"))

		result := h.compare(comparator, "diff.txt")
		if result.Result != Different {
			t.Fatalf("Result = %s, want %s", result.Result, Different)
		}
		if result.Reason != "content differs at byte offset 7" {
			t.Errorf("Reason = %q", result.Reason)
		}
	})

	t.Run("EmptyFiles", func(t *testing.T) {
		h.CreateSourceFile("empty.txt", nil)
		h.CreateReplicaFile("empty.txt", nil)

		if result := h.compare(comparator, "empty.txt"); result.Result != Same {
			t.Errorf("Result = %s, want %s", result.Result, Same)
		}
	})
}

func TestShallowComparator(t *testing.T) {
	h := NewTestHelper(t)
	comparator := NewShallowComparator(0, 4096)
	base := time.Now().Add(-time.Hour).Truncate(time.Second)

	t.Run("SignatureMatchSkipsContent", func(t *testing.T) {
		// Same size and mtime is trusted even if the bytes differ
		h.CreateSourceFile("sig.txt", []byte("aaaa"))
		h.CreateReplicaFile("sig.txt", []byte("bbbb"))
		h.SetModTime(true, "sig.txt", base)
		h.SetModTime(false, "sig.txt", base)

		if result := h.compare(comparator, "sig.txt"); result.Result != Same {
			t.Errorf("Result = %s, want %s", result.Result, Same)
		}
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		h.CreateSourceFile("size.txt", []byte("a"))
		h.CreateReplicaFile("size.txt", []byte("ab"))

		if result := h.compare(comparator, "size.txt"); result.Result != Different {
			t.Errorf("Result = %s, want %s", result.Result, Different)
		}
	})

	t.Run("MtimeMismatchSameContent", func(t *testing.T) {
		h.CreateSourceFile("touched.txt", []byte("same"))
		h.CreateReplicaFile("touched.txt", []byte("same"))
		h.SetModTime(true, "touched.txt", base)
		h.SetModTime(false, "touched.txt", base.Add(time.Minute))

		// Matching bytes under a new mtime only need the timestamp fixed
		if result := h.compare(comparator, "touched.txt"); result.Result != MetadataDiffers {
			t.Errorf("Result = %s, want %s", result.Result, MetadataDiffers)
		}
	})

	t.Run("MtimeMismatchDifferentContent", func(t *testing.T) {
		h.CreateSourceFile("edited.txt", []byte("new!"))
		h.CreateReplicaFile("edited.txt", []byte("old!"))
		h.SetModTime(true, "edited.txt", base.Add(time.Minute))
		h.SetModTime(false, "edited.txt", base)

		if result := h.compare(comparator, "edited.txt"); result.Result != Different {
			t.Errorf("Result = %s, want %s", result.Result, Different)
		}
	})
}

type ctxKey struct{}

func TestWithReaderWrapper(t *testing.T) {
	h := NewTestHelper(t)
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	h.CreateSourceFile("f.txt", []byte("data"))
	h.CreateReplicaFile("f.txt", []byte("data"))
	h.SetModTime(true, "f.txt", base)
	h.SetModTime(false, "f.txt", base.Add(time.Minute))
	src, dst := h.Stats("f.txt")

	var seen []any
	wrapper := func(ctx context.Context, r io.Reader) io.Reader {
		seen = append(seen, ctx.Value(ctxKey{}))
		return r
	}
	ctx := context.WithValue(context.Background(), ctxKey{}, "cycle")

	for _, original := range []interface {
		Comparator
		WithReaderWrapper(ReaderWrapper) Comparator
	}{
		NewContentComparator(4096),
		NewShallowComparator(0, 4096),
	} {
		t.Run(original.Name(), func(t *testing.T) {
			seen = nil

			wrapped := original.WithReaderWrapper(wrapper)
			if _, err := wrapped.Compare(ctx, h.source, h.replica, src, dst); err != nil {
				t.Fatalf("Compare() error = %v", err)
			}
			if len(seen) != 2 || seen[0] != "cycle" || seen[1] != "cycle" {
				t.Errorf("wrapper saw contexts %v, want the Compare context twice", seen)
			}

			// The original comparator is left unwrapped
			seen = nil
			if _, err := original.Compare(ctx, h.source, h.replica, src, dst); err != nil {
				t.Fatalf("Compare() error = %v", err)
			}
			if len(seen) != 0 {
				t.Errorf("original comparator used the wrapper %d times", len(seen))
			}
		})
	}
}
