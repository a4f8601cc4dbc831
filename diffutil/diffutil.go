// Package diffutil produces unified diffs between two resolved trees in
// the pool, reusing this codebase's own diff engine (package diff)
// rather than shelling out to the system diff.
package diffutil

import (
	"fmt"
	"io"
	"io/ioutil"
	"path"
	"sort"

	"github.com/kesh-io/satchel/diff"
	"github.com/kesh-io/satchel/object"
	"github.com/kesh-io/satchel/pool"
)

const defaultMaxSize = 256 * 1024

type options struct {
	contextLines int
	namesOnly    bool
	maxSize      int
	output       io.Writer
}

// Option configures Trees, following the functional-options pattern this
// codebase already uses for its tree differ.
type Option func(*options)

// ContextLines sets the number of unified-diff context lines.
func ContextLines(n int) Option { return func(o *options) { o.contextLines = n } }

// NamesOnly restricts output to changed paths, omitting hunks.
func NamesOnly(v bool) Option { return func(o *options) { o.namesOnly = v } }

// MaxSize skips content diffs (but still reports the path changed) for
// blobs larger than n bytes.
func MaxSize(n int) Option { return func(o *options) { o.maxSize = n } }

// Output sets the destination writer; defaults to io.Discard-equivalent.
func Output(w io.Writer) Option { return func(o *options) { o.output = w } }

// Trees writes a unified diff between the trees rooted at aRef and bRef
// to the configured output. Unchanged subtrees are skipped entirely by
// comparing child refs before recursing or reading any blob content,
// which is cheap because identical content always dedups to the same
// ref (see object.ComputeRef).
func Trees(p *pool.Pool, aRef, bRef object.Ref, opts ...Option) error {
	o := options{contextLines: 3, maxSize: defaultMaxSize, output: ioutil.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	aTree, err := treeOrNil(p, aRef)
	if err != nil {
		return err
	}
	bTree, err := treeOrNil(p, bRef)
	if err != nil {
		return err
	}
	return diffTrees(p, "", aTree, bTree, &o)
}

func treeOrNil(p *pool.Pool, ref object.Ref) (*object.Tree, error) {
	if ref == "" {
		return nil, nil
	}
	return p.GetTree(ref)
}

func diffTrees(p *pool.Pool, dir string, a, b *object.Tree, o *options) error {
	achildren := itemsOf(a)
	bchildren := itemsOf(b)
	for _, name := range unionOfNames(achildren, bchildren) {
		ai, aok := achildren[name]
		bi, bok := bchildren[name]
		full := path.Join(dir, name)
		if err := diffItem(p, full, ai, aok, bi, bok, o); err != nil {
			return err
		}
	}
	return nil
}

func itemsOf(t *object.Tree) map[string]object.Item {
	m := make(map[string]object.Item)
	if t == nil {
		return m
	}
	for _, named := range t.Items() {
		m[named.Name] = named.Item
	}
	return m
}

func unionOfNames(a, b map[string]object.Item) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for n := range a {
		seen[n] = struct{}{}
	}
	for n := range b {
		seen[n] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func diffItem(p *pool.Pool, full string, ai object.Item, aok bool, bi object.Item, bok bool, o *options) error {
	switch {
	case aok && bok && ai.Ref() == bi.Ref():
		return nil // identical content, whether blob or tree: nothing to report or recurse into.
	case !aok:
		return reportAdded(p, full, bi, o)
	case !bok:
		return reportRemoved(p, full, ai, o)
	case ai.Type() == "tree" && bi.Type() == "tree":
		aTree, err := p.GetTree(ai.Ref())
		if err != nil {
			return err
		}
		bTree, err := p.GetTree(bi.Ref())
		if err != nil {
			return err
		}
		return diffTrees(p, full, aTree, bTree, o)
	case ai.Type() == "blob" && bi.Type() == "blob":
		return reportModifiedBlob(p, full, ai, bi, o)
	default:
		// Filetype changed (e.g. tree -> blob): report as remove+add.
		if err := reportRemoved(p, full, ai, o); err != nil {
			return err
		}
		return reportAdded(p, full, bi, o)
	}
}

func reportAdded(p *pool.Pool, full string, item object.Item, o *options) error {
	if item.Type() == "tree" {
		tree, err := p.GetTree(item.Ref())
		if err != nil {
			return err
		}
		return diffTrees(p, full, nil, tree, o)
	}
	if o.namesOnly {
		_, err := fmt.Fprintf(o.output, "+ %s\n", full)
		return err
	}
	content, truncated, err := blobContent(p, item, o.maxSize)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(o.output, "--- /dev/null\n+++ b/%s\n", full); err != nil {
		return err
	}
	return printWhole(o.output, content, truncated, '+')
}

func reportRemoved(p *pool.Pool, full string, item object.Item, o *options) error {
	if item.Type() == "tree" {
		tree, err := p.GetTree(item.Ref())
		if err != nil {
			return err
		}
		return diffTrees(p, full, tree, nil, o)
	}
	if o.namesOnly {
		_, err := fmt.Fprintf(o.output, "- %s\n", full)
		return err
	}
	content, truncated, err := blobContent(p, item, o.maxSize)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(o.output, "--- a/%s\n+++ /dev/null\n", full); err != nil {
		return err
	}
	return printWhole(o.output, content, truncated, '-')
}

func reportModifiedBlob(p *pool.Pool, full string, ai, bi object.Item, o *options) error {
	aContent, aTrunc, err := blobContent(p, ai, o.maxSize)
	if err != nil {
		return err
	}
	bContent, bTrunc, err := blobContent(p, bi, o.maxSize)
	if err != nil {
		return err
	}
	if aTrunc || bTrunc {
		_, err := fmt.Fprintf(o.output, "omitting diff for large file: %s\n", full)
		return err
	}
	if o.namesOnly {
		_, err := fmt.Fprintln(o.output, full)
		return err
	}
	output, err := diff.Unified(diff.ByteNode(aContent), diff.ByteNode(bContent), o.contextLines)
	if err != nil {
		return err
	}
	if output == "" {
		return nil
	}
	if _, err := fmt.Fprintf(o.output, "--- a/%s\n+++ b/%s\n", full, full); err != nil {
		return err
	}
	_, err = fmt.Fprint(o.output, output)
	return err
}

// blobContent reads item's blob content, unless its recorded size
// exceeds maxSize, in which case it reports truncated without reading.
func blobContent(p *pool.Pool, item object.Item, maxSize int) (content []byte, truncated bool, err error) {
	if item.Type() != "blob" {
		return nil, false, nil
	}
	size, err := p.Size(item.Ref())
	if err != nil {
		return nil, false, err
	}
	if size > int64(maxSize) {
		return nil, true, nil
	}
	blob, err := p.GetBlob(item.Ref())
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = blob.Close() }()
	data, err := io.ReadAll(blob.Reader)
	if err != nil {
		return nil, false, err
	}
	return data, false, nil
}

func printWhole(w io.Writer, content []byte, truncated bool, sign byte) error {
	if truncated {
		_, err := fmt.Fprintln(w, "omitting diff for large file")
		return err
	}
	if len(content) == 0 {
		return nil
	}
	output, err := diff.Unified(diff.ByteNode(nil), diff.ByteNode(content), 0)
	if sign == '-' {
		output, err = diff.Unified(diff.ByteNode(content), diff.ByteNode(nil), 0)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, output)
	return err
}
