package sync

import (
	"errors"
	"fmt"
)

// ErrReplicaNotDir is returned when the replica root exists but is a file
var ErrReplicaNotDir = errors.New("replica path exists but is not a directory")

// MissingSourceError is returned when the source root cannot be used.
// No replica entry is touched in a cycle that fails this way.
type MissingSourceError struct {
	Path string
	Err  error
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("source folder %s does not exist or is not a directory: %v", e.Path, e.Err)
}

func (e *MissingSourceError) Unwrap() error {
	return e.Err
}
