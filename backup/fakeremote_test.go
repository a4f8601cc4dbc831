package backup

import (
	"bytes"
	"io"
	"io/ioutil"
	"path"
	"strings"

	"github.com/kesh-io/satchel/object"
	"github.com/kesh-io/satchel/remote"
)

// fakeRemote is a minimal in-memory Method for exercising the walker
// without touching a real filesystem or network.
type fakeRemote struct {
	// dirs maps a directory path to its children (name -> item, minus ref).
	dirs map[string]map[string]object.Item
	// blobs maps a full path to content.
	blobs  map[string]string
	policy *remote.Policy

	initialized bool
	shutdown    bool
}

var _ remote.Method = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		dirs:   map[string]map[string]object.Item{"/": {}},
		blobs:  map[string]string{},
		policy: remote.NewPolicy(nil, nil),
	}
}

func (f *fakeRemote) addFile(fullname, content string, mtime int64) {
	dir := path.Dir(fullname)
	name := path.Base(fullname)
	f.ensureDir(dir)
	f.dirs[dir][name] = object.Item{"type": "blob", "filetype": "regular", "mtime": mtime, "mode": int64(0644)}
	f.blobs[fullname] = content
}

func (f *fakeRemote) ensureDir(dir string) {
	if _, ok := f.dirs[dir]; ok {
		return
	}
	f.dirs[dir] = map[string]object.Item{}
	if dir != "/" {
		parent := path.Dir(dir)
		name := path.Base(dir)
		f.ensureDir(parent)
		f.dirs[parent][name] = object.Item{"type": "tree", "filetype": "directory"}
	}
}

func (f *fakeRemote) Initialize() error { f.initialized = true; return nil }
func (f *fakeRemote) Shutdown() error   { f.shutdown = true; return nil }
func (f *fakeRemote) Policy() *remote.Policy { return f.policy }

func (f *fakeRemote) Tree(p string) (*object.Tree, error) {
	children, ok := f.dirs[p]
	if !ok {
		return object.NewTree(), nil
	}
	tree := object.NewTree()
	for name, item := range children {
		tree.Add(name, item.Clone())
	}
	return tree, nil
}

func (f *fakeRemote) Blob(p string) (io.ReadCloser, error) {
	content, ok := f.blobs[p]
	if !ok {
		return nil, remote.ErrOperationFailed
	}
	return ioutil.NopCloser(strings.NewReader(content)), nil
}

func (f *fakeRemote) Checksum(string) (string, bool, error) { return "", false, nil }

func (f *fakeRemote) Newer(newItem, oldItem object.Item) bool {
	return newItem.Mtime() != oldItem.Mtime()
}

func (f *fakeRemote) PutTree(tree *object.Tree, p string) error {
	f.ensureDir(p)
	for _, named := range tree.Items() {
		f.dirs[p][named.Name] = named.Item.Clone()
	}
	return nil
}

func (f *fakeRemote) PutBlob(r io.Reader, p string) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return err
	}
	f.blobs[p] = buf.String()
	return nil
}
