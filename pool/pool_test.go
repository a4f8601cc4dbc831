package pool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kesh-io/satchel/object"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p, err := Open(t.TempDir())
	require.NoError(t, err)
	return p
}

func TestIngestDeduplicatesIdenticalContent(t *testing.T) {
	p := newTestPool(t)

	ref1, size1, stored1, err := p.Ingest(strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, object.Ref("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"), ref1)
	assert.EqualValues(t, 5, size1)
	assert.EqualValues(t, 5, stored1)

	ref2, size2, stored2, err := p.Ingest(strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2)
	assert.EqualValues(t, 5, size2)
	assert.Zero(t, stored2, "second ingest of identical content must not write new storage")

	assert.True(t, p.Exists(ref1))
}

func TestIngestFanoutLayout(t *testing.T) {
	p := newTestPool(t)
	ref, _, _, err := p.Ingest(strings.NewReader("hello"))
	require.NoError(t, err)

	expected := p.Location() + "/pool/a/a/f/" + string(ref)
	_, err = p.Open(ref)
	require.NoError(t, err)
	assert.FileExists(t, expected)
}

func TestOpenMissingRefReturnsErrNotFound(t *testing.T) {
	p := newTestPool(t)
	_, err := p.Open("0000000000000000000000000000000000000a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListEnumeratesIngestedObjects(t *testing.T) {
	p := newTestPool(t)
	ref1, _, _, err := p.Ingest(strings.NewReader("alpha"))
	require.NoError(t, err)
	ref2, _, _, err := p.Ingest(strings.NewReader("beta"))
	require.NoError(t, err)

	ch, err := p.List()
	require.NoError(t, err)
	seen := make(map[object.Ref]bool)
	for ref := range ch {
		seen[ref] = true
	}
	assert.True(t, seen[ref1])
	assert.True(t, seen[ref2])
}

func TestDeleteRemovesObject(t *testing.T) {
	p := newTestPool(t)
	ref, _, _, err := p.Ingest(strings.NewReader("gone-soon"))
	require.NoError(t, err)

	require.NoError(t, p.Delete(ref))
	assert.False(t, p.Exists(ref))

	err = p.Delete(ref)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIngestTreeAndGetTreeRoundTrip(t *testing.T) {
	p := newTestPool(t)
	tr := object.NewTree()
	tr.Add("file.txt", object.Item{"type": "blob", "ref": "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"})

	ref, _, _, err := p.IngestTree(tr)
	require.NoError(t, err)

	got, err := p.GetTree(ref)
	require.NoError(t, err)
	assert.Equal(t, tr.Names(), got.Names())
}

func TestGetTreeFollowsBackupConvenienceRule(t *testing.T) {
	p := newTestPool(t)
	tr := object.NewTree()
	tr.Add("file.txt", object.Item{"type": "blob", "ref": "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"})
	treeRef, _, _, err := p.IngestTree(tr)
	require.NoError(t, err)

	backup := object.NewBackup("")
	backup.Root = treeRef
	backupRef, _, _, err := p.IngestBackup(backup)
	require.NoError(t, err)

	got, err := p.GetTree(backupRef)
	require.NoError(t, err)
	assert.Equal(t, tr.Names(), got.Names())
}
