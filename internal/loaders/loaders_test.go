package loaders

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexRebuildsAfterResetAll(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, filepath.Join(dir, "voice_map.json"), dir)

	idx1 := l.Index()
	idx2 := l.Index()
	require.Same(t, idx1, idx2, "same generation must return the cached index")

	l.ResetAll()
	idx3 := l.Index()
	require.NotSame(t, idx1, idx3, "reset must force a rebuild on next access")
}

func TestImagesCacheSurvivesWithinGeneration(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, filepath.Join(dir, "voice_map.json"), dir)

	h1 := l.Images()
	h2 := l.Images()
	require.Same(t, h1.ic, h2.ic)

	l.ResetAll()
	h3 := l.Images()
	require.NotSame(t, h1.ic, h3.ic)
}
