package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Local is a filesystem-based storage backend
type Local struct {
	rootPath string
}

// NewLocal creates a new local filesystem backend.
// The root does not have to exist yet; the mirror engine decides what to do
// about a missing root.
func NewLocal(rootPath string) (*Local, error) {
	if rootPath == "" {
		return nil, fmt.Errorf("root path is empty")
	}

	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	return &Local{rootPath: absPath}, nil
}

func (l *Local) full(path string) string {
	return filepath.Join(l.rootPath, path)
}

// ReadDir returns the immediate children of a directory
func (l *Local) ReadDir(ctx context.Context, path string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath := l.full(path)
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, d := range entries {
		relPath := filepath.Join(path, d.Name())

		// Follow symlinks so that a link to a directory mirrors as a directory
		isLink := d.Type()&fs.ModeSymlink != 0
		info, err := os.Stat(filepath.Join(fullPath, d.Name()))
		if err != nil {
			fi := FileInfo{Name: d.Name(), RelativePath: relPath, Symlink: isLink, Err: err}
			if linfo, lerr := d.Info(); lerr == nil {
				fi.Size = linfo.Size()
				fi.ModTime = linfo.ModTime()
				fi.Permissions = uint32(linfo.Mode().Perm())
			}
			files = append(files, fi)
			continue
		}

		fi := toFileInfo(d.Name(), relPath, info)
		fi.Symlink = isLink
		files = append(files, fi)
	}

	return files, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(l.full(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Write creates or replaces a file.
// Content goes to a temporary sibling first, which is renamed over the target
// once content and metadata are in place.
func (l *Local) Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := l.full(path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := filepath.Join(dir, tempName(uuid.NewString()))
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if written != size {
		os.Remove(tmpPath)
		return fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}

	if err := applyMetadata(tmpPath, metadata, 0644); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace file: %w", err)
	}

	return nil
}

// Mkdir creates a directory and all necessary parents
func (l *Local) Mkdir(ctx context.Context, path string) error {
	if err := os.MkdirAll(l.full(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// SetMetadata applies modification time and permissions
func (l *Local) SetMetadata(ctx context.Context, path string, metadata *FileInfo) error {
	return applyMetadata(l.full(path), metadata, 0)
}

// Remove deletes a single file
func (l *Local) Remove(ctx context.Context, path string) error {
	if err := os.Remove(l.full(path)); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	return nil
}

// RemoveAll deletes a directory tree
func (l *Local) RemoveAll(ctx context.Context, path string) error {
	fullPath := l.full(path)
	if path == "" {
		return fmt.Errorf("refusing to delete backend root %s", fullPath)
	}

	if err := os.RemoveAll(fullPath); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	return nil
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(l.full(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	info, err := os.Stat(l.full(path))
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fi := toFileInfo(filepath.Base(l.full(path)), path, info)
	return &fi, nil
}

// Root returns the absolute root path
func (l *Local) Root() string {
	return l.rootPath
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}

func toFileInfo(name, relPath string, info fs.FileInfo) FileInfo {
	return FileInfo{
		Name:         name,
		RelativePath: relPath,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
		Permissions:  uint32(info.Mode().Perm()),
	}
}

// applyMetadata sets permissions (falling back to defaultPerm when metadata
// carries none) and then the modification time
func applyMetadata(fullPath string, metadata *FileInfo, defaultPerm os.FileMode) error {
	perm := defaultPerm
	if metadata != nil && metadata.Permissions != 0 {
		perm = os.FileMode(metadata.Permissions)
	}
	if perm != 0 {
		if err := os.Chmod(fullPath, perm); err != nil {
			return fmt.Errorf("failed to set permissions: %w", err)
		}
	}

	if metadata != nil && !metadata.ModTime.IsZero() {
		if err := os.Chtimes(fullPath, metadata.ModTime, metadata.ModTime); err != nil {
			return fmt.Errorf("failed to set modification time: %w", err)
		}
	}

	return nil
}
