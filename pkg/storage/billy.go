package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
)

// Billy adapts a go-billy filesystem (osfs, memfs, chroots of either) to the
// Backend interface.
// Modification times and permissions are only preserved when the filesystem
// implements billy.Change.
type Billy struct {
	fs billy.Filesystem
}

// NewBilly wraps a billy filesystem
func NewBilly(fsys billy.Filesystem) *Billy {
	return &Billy{fs: fsys}
}

func (b *Billy) name(p string) string {
	if p == "" {
		return "."
	}
	return p
}

// ReadDir returns the immediate children of a directory, sorted by name
func (b *Billy) ReadDir(ctx context.Context, dir string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := b.fs.ReadDir(b.name(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		relPath := b.fs.Join(dir, e.Name())

		info := e
		isLink := e.Mode()&os.ModeSymlink != 0
		if isLink {
			target, err := b.fs.Stat(relPath)
			if err != nil {
				files = append(files, FileInfo{
					Name:         e.Name(),
					RelativePath: relPath,
					Size:         e.Size(),
					ModTime:      e.ModTime(),
					Symlink:      true,
					Err:          err,
				})
				continue
			}
			info = target
		}

		fi := toFileInfo(e.Name(), relPath, info)
		fi.Symlink = isLink
		files = append(files, fi)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Read opens a file for reading
func (b *Billy) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	file, err := b.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Write creates or replaces a file through a temporary sibling
func (b *Billy) Write(ctx context.Context, p string, reader io.Reader, size int64, metadata *FileInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, _ := filepath.Split(p)
	if dir != "" {
		if err := b.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	perm := os.FileMode(0644)
	if metadata != nil && metadata.Permissions != 0 {
		perm = os.FileMode(metadata.Permissions)
	}

	tmpPath := b.fs.Join(dir, tempName(uuid.NewString()))
	file, err := b.fs.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		b.fs.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if written != size {
		b.fs.Remove(tmpPath)
		return fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}

	if err := b.SetMetadata(ctx, tmpPath, metadata); err != nil {
		b.fs.Remove(tmpPath)
		return err
	}

	if err := b.fs.Rename(tmpPath, p); err != nil {
		b.fs.Remove(tmpPath)
		return fmt.Errorf("failed to replace file: %w", err)
	}

	return nil
}

// Mkdir creates a directory and all necessary parents
func (b *Billy) Mkdir(ctx context.Context, p string) error {
	if err := b.fs.MkdirAll(b.name(p), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// SetMetadata applies permissions and modification time when supported
func (b *Billy) SetMetadata(ctx context.Context, p string, metadata *FileInfo) error {
	if metadata == nil {
		return nil
	}

	change, ok := b.fs.(billy.Change)
	if !ok {
		return nil
	}

	if metadata.Permissions != 0 {
		err := change.Chmod(b.name(p), os.FileMode(metadata.Permissions))
		if err != nil && !errors.Is(err, billy.ErrNotSupported) {
			return fmt.Errorf("failed to set permissions: %w", err)
		}
	}

	if !metadata.ModTime.IsZero() {
		err := change.Chtimes(b.name(p), metadata.ModTime, metadata.ModTime)
		if err != nil && !errors.Is(err, billy.ErrNotSupported) {
			return fmt.Errorf("failed to set modification time: %w", err)
		}
	}

	return nil
}

// Remove deletes a single file
func (b *Billy) Remove(ctx context.Context, p string) error {
	if err := b.fs.Remove(p); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// RemoveAll deletes a directory tree
func (b *Billy) RemoveAll(ctx context.Context, p string) error {
	if p == "" {
		return fmt.Errorf("refusing to delete backend root %s", b.fs.Root())
	}
	if err := util.RemoveAll(b.fs, p); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// Exists checks if a file or directory exists
func (b *Billy) Exists(ctx context.Context, p string) (bool, error) {
	_, err := b.fs.Stat(b.name(p))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Stat returns file metadata
func (b *Billy) Stat(ctx context.Context, p string) (*FileInfo, error) {
	info, err := b.fs.Stat(b.name(p))
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fi := toFileInfo(info.Name(), p, info)
	return &fi, nil
}

// Root returns the billy root
func (b *Billy) Root() string {
	return b.fs.Root()
}

// Close releases resources (no-op)
func (b *Billy) Close() error {
	return nil
}
