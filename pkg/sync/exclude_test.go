package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcluder(t *testing.T) {
	ex, err := NewExcluder([]string{"*.tmp", "node_modules/", "/build/*", "docs/**/*.md", "  ", ".git/"})
	require.NoError(t, err)
	assert.Equal(t, 5, ex.Len(), "blank patterns are ignored")

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"a.tmp", false, true},
		{"deep/nested/b.tmp", false, true},
		{"a.txt", false, false},
		{"node_modules", true, true},
		{"web/node_modules", true, true},
		{"node_modules", false, false},
		{"build/out.bin", false, true},
		{"src/build/out.bin", false, false},
		{"docs/guide/intro.md", false, true},
		{"docs/intro.md", false, true},
		{"README.md", false, false},
		{".git", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ex.Match(tt.path, tt.isDir))
		})
	}
}

func TestExcluderEmpty(t *testing.T) {
	ex, err := NewExcluder(nil)
	require.NoError(t, err)
	assert.False(t, ex.Match("anything", false))

	var nilEx *Excluder
	assert.False(t, nilEx.Match("anything", true))
	assert.Equal(t, 0, nilEx.Len())
}

func TestExcluderInvalid(t *testing.T) {
	for _, p := range []string{"[abc", "/"} {
		_, err := NewExcluder([]string{p})
		assert.Error(t, err, p)
	}
}
