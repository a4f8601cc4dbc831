package remote

import (
	"crypto/sha1" //nolint:gosec // content identifier, not an authentication primitive.
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/kesh-io/satchel/object"
)

// LocalConfig configures a Local remote method.
type LocalConfig struct {
	Root     string
	Includes []string
	Excludes []string
}

// Local walks a directory on the same machine the process runs on.
type Local struct {
	root   string
	policy *Policy
}

var _ Method = (*Local)(nil)

// NewLocal constructs a Local remote from its configuration.
func NewLocal(c LocalConfig) *Local {
	root := c.Root
	if root == "" {
		root = "/"
	}
	return &Local{
		root:   root,
		policy: NewPolicy(c.Includes, c.Excludes),
	}
}

// Initialize is a no-op: there is no connection to establish.
func (l *Local) Initialize() error { return nil }

// Shutdown is a no-op.
func (l *Local) Shutdown() error { return nil }

// Policy returns the remote's include/exclude decision function.
func (l *Local) Policy() *Policy { return l.policy }

func (l *Local) fullPath(p string) string {
	return filepath.Join(l.root, strings.TrimPrefix(p, string(filepath.Separator)))
}

// Tree lists the immediate children of path.
func (l *Local) Tree(path string) (*object.Tree, error) {
	dir := l.fullPath(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(ErrOperationFailed, "reading directory %q: %v", dir, err)
	}
	tree := object.NewTree()
	for _, entry := range entries {
		name := entry.Name()
		fullname := filepath.Join(dir, name)
		info, err := os.Lstat(fullname)
		if err != nil {
			return nil, errors.Wrapf(ErrOperationFailed, "stat %q: %v", fullname, err)
		}
		item := object.Item{}
		switch {
		case info.Mode().IsRegular():
			item["type"] = "blob"
			item["filetype"] = "regular"
		case info.IsDir():
			item["type"] = "tree"
			item["filetype"] = "directory"
		case info.Mode()&os.ModeSymlink != 0:
			item["filetype"] = "link"
			target, err := os.Readlink(fullname)
			if err != nil {
				return nil, errors.Wrapf(ErrOperationFailed, "readlink %q: %v", fullname, err)
			}
			item["link"] = []byte(target)
		case info.Mode()&os.ModeNamedPipe != 0:
			item["filetype"] = "fifo"
		default:
			continue
		}
		item["mode"] = int64(info.Mode().Perm())
		if sys, ok := info.Sys().(*syscall.Stat_t); ok {
			item["uid"] = int64(sys.Uid)
			item["gid"] = int64(sys.Gid)
			item["atime"] = int64(sys.Atim.Sec)
			item["ctime"] = int64(sys.Ctim.Sec)
		}
		item["mtime"] = info.ModTime().Unix()
		item["size"] = info.Size()
		tree.Add(name, item)
	}
	return tree, nil
}

// Blob opens path for reading.
func (l *Local) Blob(path string) (io.ReadCloser, error) {
	f, err := os.Open(l.fullPath(path))
	if err != nil {
		return nil, errors.Wrapf(ErrOperationFailed, "opening %q: %v", path, err)
	}
	return f, nil
}

// Checksum computes the SHA-1 of path's content, the same algorithm the
// pool uses, so the walker can use a match as an ingest fast path.
func (l *Local) Checksum(path string) (string, bool, error) {
	f, err := os.Open(l.fullPath(path))
	if err != nil {
		return "", false, errors.Wrapf(ErrOperationFailed, "opening %q: %v", path, err)
	}
	defer f.Close()
	hasher := sha1.New() //nolint:gosec
	if _, err := io.Copy(hasher, f); err != nil {
		return "", false, errors.Wrapf(ErrOperationFailed, "hashing %q: %v", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), true, nil
}

// Newer reports mtime inequality, the default comparison.
func (l *Local) Newer(newItem, oldItem object.Item) bool {
	return newItem.Mtime() != oldItem.Mtime()
}

// PutTree creates the directory and link/fifo entries for tree's items
// at path; blob and subtree contents are restored by separate PutBlob
// and recursive PutTree calls driven by the restore walker.
func (l *Local) PutTree(tree *object.Tree, path string) error {
	dir := l.fullPath(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(ErrOperationFailed, "creating %q: %v", dir, err)
	}
	for _, named := range tree.Items() {
		fullname := filepath.Join(dir, named.Name)
		item := named.Item
		switch item.Filetype() {
		case "regular":
			// Created lazily by PutBlob.
		case "directory":
			if err := os.MkdirAll(fullname, 0755); err != nil {
				return errors.Wrapf(ErrOperationFailed, "creating %q: %v", fullname, err)
			}
		case "link":
			_ = os.Remove(fullname)
			if err := os.Symlink(string(item.Link()), fullname); err != nil {
				return errors.Wrapf(ErrOperationFailed, "symlinking %q: %v", fullname, err)
			}
		case "fifo":
			if _, err := os.Stat(fullname); os.IsNotExist(err) {
				if err := mkfifo(fullname); err != nil {
					return errors.Wrapf(ErrOperationFailed, "mkfifo %q: %v", fullname, err)
				}
			}
		}
		if mode := item.Mode(); mode != 0 {
			_ = os.Chmod(fullname, os.FileMode(mode))
		}
	}
	return nil
}

// PutBlob writes r to path.
func (l *Local) PutBlob(r io.Reader, path string) error {
	fullname := l.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(fullname), 0755); err != nil {
		return errors.Wrapf(ErrOperationFailed, "creating parent of %q: %v", fullname, err)
	}
	f, err := os.Create(fullname)
	if err != nil {
		return errors.Wrapf(ErrOperationFailed, "creating %q: %v", fullname, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return errors.Wrapf(ErrOperationFailed, "writing %q: %v", fullname, err)
	}
	return nil
}
