package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kesh-io/satchel/object"
	"github.com/kesh-io/satchel/pool"
	"github.com/kesh-io/satchel/remote"
)

// instantRemote is a trivial remote with a single empty directory tree,
// enough to exercise the scheduler's due/label logic without pulling in
// the backup package's own fakes.
type instantRemote struct {
	policy *remote.Policy
}

func newInstantRemote() *instantRemote { return &instantRemote{policy: remote.NewPolicy(nil, nil)} }

func (r *instantRemote) Initialize() error                  { return nil }
func (r *instantRemote) Shutdown() error                    { return nil }
func (r *instantRemote) Policy() *remote.Policy              { return r.policy }
func (r *instantRemote) Tree(string) (*object.Tree, error)  { return object.NewTree(), nil }
func (r *instantRemote) Blob(string) (io.ReadCloser, error) { return nil, nil }
func (r *instantRemote) Checksum(string) (string, bool, error) { return "", false, nil }
func (r *instantRemote) Newer(a, b object.Item) bool         { return false }
func (r *instantRemote) PutTree(*object.Tree, string) error  { return nil }
func (r *instantRemote) PutBlob(io.Reader, string) error     { return nil }

func newTestPool(t *testing.T) *pool.Pool {
	t.Helper()
	p, err := pool.Open(t.TempDir())
	require.NoError(t, err)
	return p
}

func TestSchedulerRunsDueRemoteAndLabelsResult(t *testing.T) {
	defer leaktest.Check(t)()
	p := newTestPool(t)
	r := Remote{Name: "r", Method: newInstantRemote(), IntervalMinutes: 1440}
	s := New(p, []Remote{r}, 1, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	ref, err := p.ReadLabel("r/latest")
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
}

func TestSchedulerDueCheckHonorsInterval(t *testing.T) {
	p := newTestPool(t)
	r := Remote{Name: "r", Method: newInstantRemote(), IntervalMinutes: 1440}
	s := New(p, []Remote{r}, 1, time.Second)

	due, parent, err := s.isDue(r)
	require.NoError(t, err)
	assert.True(t, due, "a remote with no prior backup is always due")
	assert.Empty(t, parent)

	require.NoError(t, s.runTask(r, ""))

	due, _, err = s.isDue(r)
	require.NoError(t, err)
	assert.False(t, due, "a remote just backed up with a long interval is not due again")
}

func TestSchedulerNonOverlap(t *testing.T) {
	p := newTestPool(t)
	r := Remote{Name: "r", Method: newInstantRemote(), IntervalMinutes: 1440}
	s := New(p, []Remote{r}, 1, time.Second)

	s.setRunning("r", true)
	due, _, err := s.isDue(r)
	require.NoError(t, err)
	assert.True(t, due)
	assert.True(t, s.isRunning("r"), "marked-running remotes must be skipped by the dispatch loop")
}
