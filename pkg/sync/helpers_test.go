package sync

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sdejongh/foldermirror/pkg/compare"
	"github.com/sdejongh/foldermirror/pkg/logging"
	"github.com/sdejongh/foldermirror/pkg/models"
	"github.com/sdejongh/foldermirror/pkg/storage"
)

// tree describes a directory: file path -> content, or dirMarker for an empty dir
type tree map[string]string

const dirMarker = "<dir>"

// writeTree creates the entries of tr under root
func writeTree(t *testing.T, root string, tr tree) {
	t.Helper()
	require.NoError(t, os.MkdirAll(root, 0755))
	for rel, content := range tr {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if content == dirMarker {
			require.NoError(t, os.MkdirAll(full, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

// snapshot reads a directory back into a tree.
// Directories that have children are implied by their files.
func snapshot(t *testing.T, root string) tree {
	t.Helper()
	out := tree{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel := filepath.ToSlash(must(filepath.Rel(root, p)))
		if d.IsDir() {
			entries, err := os.ReadDir(p)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				out[rel] = dirMarker
			}
			return nil
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[rel] = string(content)
		return nil
	})
	require.NoError(t, err)
	return out
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// testPair is a source/replica pair on the local filesystem
type testPair struct {
	t          *testing.T
	sourceDir  string
	replicaDir string
	source     storage.Backend
	replica    storage.Backend
	logger     *recordingLogger
	operation  *models.MirrorOperation
}

func newTestPair(t *testing.T, src, dst tree) *testPair {
	t.Helper()
	base := t.TempDir()
	p := &testPair{
		t:          t,
		sourceDir:  filepath.Join(base, "source"),
		replicaDir: filepath.Join(base, "replica"),
		logger:     &recordingLogger{},
		operation: &models.MirrorOperation{
			ComparisonMethod: models.CompareShallow,
			BufferSize:       4096,
		},
	}
	if src != nil {
		writeTree(t, p.sourceDir, src)
	}
	if dst != nil {
		writeTree(t, p.replicaDir, dst)
	}

	p.source = must(storage.NewLocal(p.sourceDir))
	p.replica = must(storage.NewLocal(p.replicaDir))
	p.operation.SourcePath = p.sourceDir
	p.operation.ReplicaPath = p.replicaDir
	return p
}

func (p *testPair) engine() *Engine {
	p.t.Helper()
	cmp, err := compare.New(p.operation.ComparisonMethod, compare.Options{
		ModTimeWindow: p.operation.ModTimeWindow,
		BufferSize:    p.operation.BufferSize,
	})
	require.NoError(p.t, err)

	e, err := NewEngine(p.source, p.replica, cmp, nil, p.logger, p.operation)
	require.NoError(p.t, err)
	return e
}

func (p *testPair) run(ctx context.Context) (*models.CycleReport, error) {
	p.t.Helper()
	return p.engine().Run(ctx)
}

// faultyBackend fails selected operations on selected paths
type faultyBackend struct {
	storage.Backend
	failWrite   map[string]bool
	failRemove  map[string]bool
	failReadDir map[string]bool
}

var errInjected = errors.New("injected failure")

func (f *faultyBackend) Write(ctx context.Context, path string, r io.Reader, size int64, meta *storage.FileInfo) error {
	if f.failWrite[filepath.ToSlash(path)] {
		return errInjected
	}
	return f.Backend.Write(ctx, path, r, size, meta)
}

func (f *faultyBackend) Remove(ctx context.Context, path string) error {
	if f.failRemove[filepath.ToSlash(path)] {
		return errInjected
	}
	return f.Backend.Remove(ctx, path)
}

func (f *faultyBackend) RemoveAll(ctx context.Context, path string) error {
	if f.failRemove[filepath.ToSlash(path)] {
		return errInjected
	}
	return f.Backend.RemoveAll(ctx, path)
}

func (f *faultyBackend) ReadDir(ctx context.Context, path string) ([]storage.FileInfo, error) {
	if f.failReadDir[filepath.ToSlash(path)] {
		return nil, errInjected
	}
	return f.Backend.ReadDir(ctx, path)
}

// countingBackend counts the files opened for reading
type countingBackend struct {
	storage.Backend
	mu    gosync.Mutex
	reads int
}

func (c *countingBackend) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.Backend.Read(ctx, path)
}

func (c *countingBackend) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// recordingLogger keeps every message for assertions
type recordingLogger struct {
	mu      gosync.Mutex
	entries []logEntry
}

type logEntry struct {
	level  logging.Level
	msg    string
	err    error
	fields logging.Fields
}

func (l *recordingLogger) add(level logging.Level, msg string, err error, fields logging.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, err: err, fields: fields})
}

func (l *recordingLogger) Debug(ctx context.Context, msg string, fields logging.Fields) {
	l.add(logging.DebugLevel, msg, nil, fields)
}

func (l *recordingLogger) Info(ctx context.Context, msg string, fields logging.Fields) {
	l.add(logging.InfoLevel, msg, nil, fields)
}

func (l *recordingLogger) Warn(ctx context.Context, msg string, fields logging.Fields) {
	l.add(logging.WarnLevel, msg, nil, fields)
}

func (l *recordingLogger) Error(ctx context.Context, msg string, err error, fields logging.Fields) {
	l.add(logging.ErrorLevel, msg, err, fields)
}

func (l *recordingLogger) WithFields(fields logging.Fields) logging.Logger { return l }

func (l *recordingLogger) Close() error { return nil }

// fields returns the fields of the first entry logged with msg
func (l *recordingLogger) fields(msg string) logging.Fields {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.msg == msg {
			return e.fields
		}
	}
	return nil
}

// messages returns "msg path" for every entry at level
func (l *recordingLogger) messages(level logging.Level) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level != level {
			continue
		}
		if p, ok := e.fields["path"]; ok {
			out = append(out, e.msg+" "+filepath.ToSlash(p.(string)))
		} else {
			out = append(out, e.msg)
		}
	}
	return out
}

// actions summarises outcomes as "action kind path"
func actions(report *models.CycleReport) []string {
	var out []string
	for _, o := range report.Outcomes {
		path := filepath.ToSlash(o.Path)
		if path == "" {
			path = "."
		}
		out = append(out, string(o.Action)+" "+string(o.Kind)+" "+path)
	}
	return out
}
