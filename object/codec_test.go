package object

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeRoundTrip(t *testing.T) {
	tr := NewTree()
	tr.Add("f", Item{"type": "blob", "ref": "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", "mode": int64(0644), "mtime": int64(1)})
	tr.Add("sub", Item{"type": "tree", "ref": "0000000000000000000000000000000000000a"})

	encoded, err := EncodeTree(tr)
	require.NoError(t, err)

	decoded, err := DecodeTree(encoded)
	require.NoError(t, err)

	reencoded, err := EncodeTree(decoded)
	require.NoError(t, err)

	assert.Equal(t, encoded, reencoded, "canonical form must be a fixed point")
	assert.Equal(t, tr.Names(), decoded.Names())

	item, ok := decoded.Get("f")
	require.True(t, ok)
	assert.Equal(t, "blob", item.Type())
	assert.Equal(t, Ref("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"), item.Ref())
	assert.EqualValues(t, 0644, item.Mode())
}

// entrySummary projects the fields of a NamedItem that carry semantic
// meaning, sidestepping msgpack's habit of picking the smallest integer
// type that fits a value on decode (so a plain cmp.Diff against raw
// Items() would flag int64 vs int8 as a spurious structural change).
type entrySummary struct {
	Name string
	Type string
	Ref  Ref
	Mode int64
}

func summarize(items []NamedItem) []entrySummary {
	out := make([]entrySummary, len(items))
	for i, it := range items {
		out[i] = entrySummary{Name: it.Name, Type: it.Item.Type(), Ref: it.Item.Ref(), Mode: it.Item.Mode()}
	}
	return out
}

func TestTreeRoundTripPreservesItemsStructurally(t *testing.T) {
	tr := NewTree()
	tr.Add("f", Item{"type": "blob", "ref": "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", "mode": int64(0644)})
	tr.Add("sub", Item{"type": "tree", "ref": "0000000000000000000000000000000000000a"})

	encoded, err := EncodeTree(tr)
	require.NoError(t, err)
	decoded, err := DecodeTree(encoded)
	require.NoError(t, err)

	if diff := cmp.Diff(summarize(tr.Items()), summarize(decoded.Items())); diff != "" {
		t.Errorf("round trip changed tree structure (-want +got):\n%s", diff)
	}
}

func TestTreeCanonicalOrderIndependentOfInsertion(t *testing.T) {
	a := NewTree()
	a.Add("b", Item{"type": "blob", "ref": "0000000000000000000000000000000000000a"})
	a.Add("a", Item{"type": "blob", "ref": "0000000000000000000000000000000000000b"})

	b := NewTree()
	b.Add("a", Item{"type": "blob", "ref": "0000000000000000000000000000000000000b"})
	b.Add("b", Item{"type": "blob", "ref": "0000000000000000000000000000000000000a"})

	encA, err := EncodeTree(a)
	require.NoError(t, err)
	encB, err := EncodeTree(b)
	require.NoError(t, err)

	assert.Equal(t, encA, encB)
	assert.Equal(t, ComputeRef(encA), ComputeRef(encB))
}

func TestBackupRoundTrip(t *testing.T) {
	b := NewBackup("")
	b.Root = "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"
	b.Stats["new-blob"] = 1
	b.Errors["/some/file"] = "permission denied"
	b.Start = Now()
	b.End = Now()

	encoded, err := EncodeBackup(b)
	require.NoError(t, err)

	decoded, err := DecodeBackup(encoded)
	require.NoError(t, err)

	assert.Equal(t, b.Root, decoded.Root)
	assert.Equal(t, Ref(""), decoded.Parent)
	assert.Equal(t, b.Stats, decoded.Stats)
	assert.Equal(t, b.Errors, decoded.Errors)
}

func TestBackupWithParent(t *testing.T) {
	b := NewBackup("bbf4c61ddcc5e8a2dabede0f3b482cd9aea9434d")
	b.Root = "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"

	encoded, err := EncodeBackup(b)
	require.NoError(t, err)
	decoded, err := DecodeBackup(encoded)
	require.NoError(t, err)
	assert.Equal(t, b.Parent, decoded.Parent)
}

func TestComputeRefMatchesHashIdentity(t *testing.T) {
	ref := ComputeRef([]byte("hello"))
	assert.Equal(t, Ref("aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"), ref)
	assert.True(t, ref.Valid())
}

func TestTimestampParsesLegacyFormat(t *testing.T) {
	var ts Timestamp
	require.NoError(t, ts.UnmarshalBinary([]byte("20200102T03:04:05.123456")))
	assert.Equal(t, 2020, ts.Time.Year())
}
