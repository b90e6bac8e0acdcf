package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotDirectory is returned when a directory operation hits a file
var ErrNotDirectory = errors.New("not a directory")

// FileInfo represents metadata about a directory entry
type FileInfo struct {
	// Name is the base name of the entry
	Name string

	// RelativePath is the path relative to the backend root
	RelativePath string

	Size        int64
	ModTime     time.Time
	IsDir       bool
	Permissions uint32

	// Symlink is set by ReadDir when the entry itself is a symbolic link;
	// the other fields then describe its target
	Symlink bool

	// Err is set when the entry was listed but its kind could not be
	// determined (for example a symlink whose target is gone)
	Err error
}

// Backend defines the filesystem operations the mirror needs.
// All paths are relative to the backend root; "" is the root itself.
// Symlinks are followed; ReadDir flags them with FileInfo.Symlink.
type Backend interface {
	// ReadDir returns the immediate children of a directory, sorted by name
	ReadDir(ctx context.Context, path string) ([]FileInfo, error)

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or replaces a file with the given content.
	// If metadata is provided, modification time and permissions are preserved.
	Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

	// Mkdir creates a directory and all necessary parents
	Mkdir(ctx context.Context, path string) error

	// SetMetadata applies modification time and permissions from metadata
	SetMetadata(ctx context.Context, path string, metadata *FileInfo) error

	// Remove deletes a single file (or an empty directory)
	Remove(ctx context.Context, path string) error

	// RemoveAll deletes a directory tree
	RemoveAll(ctx context.Context, path string) error

	// Root returns a printable location of the backend root
	Root() string

	// Close releases any resources held by the backend
	Close() error
}

// tempName returns the sibling name used while a file is being written.
// It does not embed the target name, which may already be at NAME_MAX.
func tempName(id string) string {
	return ".fm-" + id + ".tmp"
}
