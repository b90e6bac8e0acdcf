package compare

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sdejongh/foldermirror/pkg/storage"
)

// ContentComparator compares files byte-by-byte.
// This is the most thorough comparison but also the slowest.
type ContentComparator struct {
	bufferSize    int
	bufferPool    *sync.Pool
	readerWrapper ReaderWrapper
}

// NewContentComparator creates a new byte-by-byte comparator
func NewContentComparator(bufferSize int) *ContentComparator {
	if bufferSize < 4096 {
		bufferSize = 4096
	}
	return &ContentComparator{
		bufferSize: bufferSize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// WithReaderWrapper returns a copy of c that wraps the readers it opens.
// c itself is left untouched and both may be used concurrently.
func (c *ContentComparator) WithReaderWrapper(wrapper ReaderWrapper) Comparator {
	return c.withReaderWrapper(wrapper)
}

func (c *ContentComparator) withReaderWrapper(wrapper ReaderWrapper) *ContentComparator {
	cp := *c
	cp.readerWrapper = wrapper
	return &cp
}

// Compare compares two files byte-by-byte
func (c *ContentComparator) Compare(ctx context.Context, source, replica storage.Backend, src, dst *storage.FileInfo) (*Comparison, error) {
	if src.Size != dst.Size {
		return different(src.RelativePath, fmt.Sprintf("size mismatch: source=%d, replica=%d", src.Size, dst.Size)), nil
	}

	sourceReader, err := source.Read(ctx, src.RelativePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceReader.Close()

	replicaReader, err := replica.Read(ctx, dst.RelativePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open replica file: %w", err)
	}
	defer replicaReader.Close()

	var sr io.Reader = sourceReader
	var rr io.Reader = replicaReader
	if c.readerWrapper != nil {
		sr = c.readerWrapper(ctx, sr)
		rr = c.readerWrapper(ctx, rr)
	}

	sourceBufPtr := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(sourceBufPtr)
	sourceBuf := *sourceBufPtr

	replicaBufPtr := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(replicaBufPtr)
	replicaBuf := *replicaBufPtr

	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// ReadFull keeps both sides aligned even when a reader returns short reads
		sn, sErr := io.ReadFull(sr, sourceBuf)
		rn, rErr := io.ReadFull(rr, replicaBuf)

		if sErr != nil && sErr != io.EOF && sErr != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("failed to read source: %w", sErr)
		}
		if rErr != nil && rErr != io.EOF && rErr != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("failed to read replica: %w", rErr)
		}

		n := sn
		if rn < n {
			n = rn
		}
		if !bytes.Equal(sourceBuf[:n], replicaBuf[:n]) {
			for i := 0; i < n; i++ {
				if sourceBuf[i] != replicaBuf[i] {
					return different(src.RelativePath, fmt.Sprintf("content differs at byte offset %d", offset+int64(i))), nil
				}
			}
		}
		if sn != rn {
			return different(src.RelativePath, fmt.Sprintf("content length differs after byte offset %d", offset+int64(n))), nil
		}

		offset += int64(n)

		// A short (or empty) read means both readers hit EOF at the same point
		if sErr != nil {
			break
		}
	}

	return same(src.RelativePath, fmt.Sprintf("content matches (%d bytes)", offset)), nil
}

// Name returns the comparator name
func (c *ContentComparator) Name() string {
	return "content"
}
