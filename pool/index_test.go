package pool

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexCachesSizeAndLabel(t *testing.T) {
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.CacheSize("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", 5))
	size, ok, err := idx.CachedSize("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 5, size)

	require.NoError(t, idx.CacheLabel("latest", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"))
	ref, ok, err := idx.CachedLabel("latest")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", ref)
}

func TestRebuildRepopulatesIndexFromFilesystem(t *testing.T) {
	p := newTestPool(t)
	ref, _, _, err := p.Ingest(strings.NewReader("hello"))
	require.NoError(t, err)
	require.NoError(t, p.SetLabel("latest", ref, false))

	indexPath := filepath.Join(t.TempDir(), "index.db")
	idx, err := Rebuild(p, indexPath)
	require.NoError(t, err)
	defer idx.Close()

	size, ok, err := idx.CachedSize(ref)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 5, size)

	cachedRef, ok, err := idx.CachedLabel("latest")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ref, cachedRef)
}
