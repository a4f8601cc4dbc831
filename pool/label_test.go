package pool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndReadLabel(t *testing.T) {
	p := newTestPool(t)
	ref, _, _, err := p.Ingest(strings.NewReader("hello"))
	require.NoError(t, err)

	require.NoError(t, p.SetLabel("latest", ref, false))

	got, err := p.ReadLabel("latest")
	require.NoError(t, err)
	assert.Equal(t, ref, got)
}

func TestSetLabelRefusesOverwriteWithoutFlag(t *testing.T) {
	p := newTestPool(t)
	ref, _, _, err := p.Ingest(strings.NewReader("hello"))
	require.NoError(t, err)

	require.NoError(t, p.SetLabel("latest", ref, false))
	err = p.SetLabel("latest", ref, false)
	assert.ErrorIs(t, err, ErrPolicyViolation)

	require.NoError(t, p.SetLabel("latest", ref, true))
}

func TestReadLabelMissingReturnsErrNotFound(t *testing.T) {
	p := newTestPool(t)
	_, err := p.ReadLabel("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLabelNameAllowsDots(t *testing.T) {
	p := newTestPool(t)
	ref, _, _, err := p.Ingest(strings.NewReader("hello"))
	require.NoError(t, err)

	require.NoError(t, p.SetLabel("backup.weekly", ref, false))
	got, err := p.ReadLabel("backup.weekly")
	require.NoError(t, err)
	assert.Equal(t, ref, got)
}

func TestLabelNameRejectsPathTraversal(t *testing.T) {
	assert.ErrorIs(t, CheckLabel("../escape"), ErrPolicyViolation)
	assert.ErrorIs(t, CheckLabel(""), ErrPolicyViolation)
}

func TestDeleteLabel(t *testing.T) {
	p := newTestPool(t)
	ref, _, _, err := p.Ingest(strings.NewReader("hello"))
	require.NoError(t, err)
	require.NoError(t, p.SetLabel("latest", ref, false))

	require.NoError(t, p.DeleteLabel("latest"))
	_, err = p.ReadLabel("latest")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListLabels(t *testing.T) {
	p := newTestPool(t)
	ref, _, _, err := p.Ingest(strings.NewReader("hello"))
	require.NoError(t, err)
	require.NoError(t, p.SetLabel("host-a/latest", ref, false))
	require.NoError(t, p.SetLabel("host-b/latest", ref, false))

	ch, err := p.ListLabels()
	require.NoError(t, err)
	var names []string
	for name := range ch {
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"host-a/latest", "host-b/latest"}, names)
}
