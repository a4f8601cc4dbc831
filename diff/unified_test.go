package diff_test

import (
	"errors"
	"fmt"
	"io/ioutil"
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kesh-io/satchel/diff"
)

// alwaysSameNode reports SameAs unconditionally true, exercising
// Unified's short-circuit path without ever touching Content.
type alwaysSameNode struct{}

func (alwaysSameNode) SameAs(diff.Node) bool { return true }
func (alwaysSameNode) Content() (string, error) {
	panic("Content should not be called when SameAs short-circuits")
}

// contentErrorNode never reports a shortcut match, so Unified always
// falls through to Content, which fails with err.
type contentErrorNode struct {
	err error
}

func (contentErrorNode) SameAs(diff.Node) bool { return false }
func (n contentErrorNode) Content() (string, error) {
	return "", n.err
}

func TestUnifiedIfNodesSameNoDiff(t *testing.T) {
	var a, b alwaysSameNode
	for _, right := range []diff.Node{a, b, nil} {
		diffOutput, err := diff.Unified(a, right, rand.Intn(100))
		assert.Empty(t, diffOutput)
		assert.NoError(t, err)
	}
}

func TestUnifiedPassesContentError(t *testing.T) {
	a := contentErrorNode{err: errors.New("any error")}
	b := contentErrorNode{err: nil}
	for _, pair := range [][2]diff.Node{
		{a, a},
		{a, b},
		{b, a},
	} {
		diffOutput, err := diff.Unified(pair[0], pair[1], rand.Intn(100))
		assert.Equal(t, "", diffOutput)
		assert.True(t, errors.Is(err, a.err))
	}
}

// From https://www.gnu.org/software/diffutils/manual/html_node/Binary.html:
// diff determines whether a file is text or binary by checking the first few
// bytes in the file; the exact number of bytes is system dependent, but it is
// typically several thousand. If every byte in that part of the file is
// non-null, diff considers the file to be text; otherwise it considers the file
// to be binary.
func TestUnifiedRecognizesBinaryFiles(t *testing.T) {
	a := diff.ByteNode{0}
	b := diff.ByteNode{1}
	output, err := diff.Unified(a, b, 3)
	assert.Equal(t, "Binary files differ\n", output)
	assert.NoError(t, err)
	output, err = diff.Unified(a, a, 3)
	assert.Equal(t, "", output)
	assert.NoError(t, err)
}

func TestUnifiedZeroContextLinesDoesNotPanic(t *testing.T) {
	a := diff.StringNode("one\ntwo\nthree\n")
	b := diff.StringNode("one\ntwo\nTHREE\n")
	output, err := diff.Unified(a, b, 0)
	assert.NoError(t, err)
	assert.Contains(t, output, "@@")
}

// TestUnifiedCorrectnessAgainstGNUDiff replays fixture pairs against the
// unified-diff output a real `diff -U<n>` would produce, when fixtures
// are present under testdata/; none are checked in yet, so this loop is
// currently a no-op rather than a pass-by-absence guarantee.
func TestUnifiedCorrectnessAgainstGNUDiff(t *testing.T) {
	for i := 0; ; i++ {
		leftInputPath := fmt.Sprintf("testdata/%02d-left.in", i)
		_, err := os.Stat(leftInputPath)
		if os.IsNotExist(err) {
			break
		}
		require.NoError(t, err)
		leftInput, err := ioutil.ReadFile(leftInputPath)
		require.NoError(t, err)
		rightInput, err := ioutil.ReadFile(fmt.Sprintf("testdata/%02d-right.in", i))
		require.NoError(t, err)
		for _, contextLines := range []int{1, 2, 3, 5, 8, 11} {
			diffOutputFile := fmt.Sprintf("testdata/%02d-diff-%02d.out", i, contextLines)
			diffOutput, err := ioutil.ReadFile(diffOutputFile)
			require.NoError(t, err)
			t.Run(diffOutputFile, func(t *testing.T) {
				left := diff.StringNode(leftInput)
				right := diff.StringNode(rightInput)
				got, err := diff.Unified(left, right, contextLines)
				assert.NoError(t, err)
				assert.Equal(t, string(diffOutput), got)
			})
		}
	}
}
