package platform

import (
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath returns the absolute, cleaned form of path
func NormalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &PathError{Path: path, Message: err.Error()}
	}

	normalized := filepath.Clean(abs)

	// On Windows, ensure UNC paths are preserved
	if runtime.GOOS == "windows" && IsUNCPath(path) && !strings.HasPrefix(normalized, `\\`) {
		normalized = `\\` + strings.TrimLeft(normalized, `\`)
	}

	return normalized, nil
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(path string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, "//")
}

// samePathFold reports whether the platform compares paths case-insensitively
func samePathFold() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

func equalPath(a, b string) bool {
	if samePathFold() {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// IsWithin reports whether child lies strictly below parent.
// Both paths must already be normalized.
func IsWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	if samePathFold() {
		// Rel is case-sensitive, redo the prefix check by hand
		prefix := strings.TrimSuffix(parent, string(filepath.Separator)) + string(filepath.Separator)
		return len(child) > len(prefix) && strings.EqualFold(child[:len(prefix)], prefix)
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidatePath checks if a path is usable as a mirror root
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}

	// Check for invalid characters based on OS
	if runtime.GOOS == "windows" {
		rest := path
		if vol := filepath.VolumeName(path); vol != "" {
			rest = path[len(vol):]
		}
		for _, char := range []string{"<", ">", ":", "\"", "|", "?", "*"} {
			if strings.Contains(rest, char) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// ValidatePair checks a source/replica pair and returns both paths normalized.
// The paths must differ and neither may contain the other. Neither has to exist.
func ValidatePair(source, replica string) (string, string, error) {
	if err := ValidatePath(source); err != nil {
		return "", "", err
	}
	if err := ValidatePath(replica); err != nil {
		return "", "", err
	}

	src, err := NormalizePath(source)
	if err != nil {
		return "", "", err
	}
	dst, err := NormalizePath(replica)
	if err != nil {
		return "", "", err
	}

	switch {
	case equalPath(src, dst):
		return "", "", &PathError{Path: replica, Message: "source and replica cannot be the same"}
	case IsWithin(src, dst):
		return "", "", &PathError{Path: replica, Message: "replica cannot be inside the source folder"}
	case IsWithin(dst, src):
		return "", "", &PathError{Path: source, Message: "source cannot be inside the replica folder"}
	}

	return src, dst, nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
