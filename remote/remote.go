// Package remote defines the capability interface the backup and
// restore walkers consume (Method), the path include/exclude policy
// shared by every concrete method, and a small static registry of
// constructors (local, ssh, s3) that configuration resolves by name.
package remote

import (
	"io"

	"github.com/kesh-io/satchel/object"
)

// Method is the capability set a remote offers. A remote is a source
// (backup) or destination (restore) of filesystem content with its own
// enumeration and transfer contract. Implementations embed a *Policy and
// are used by at most one walker at a time; Initialize/Shutdown bracket
// that walker's lifetime.
type Method interface {
	// Initialize prepares the remote for use (connect, authenticate).
	Initialize() error
	// Shutdown releases any resources acquired by Initialize. It is
	// always called, even when the walk using this remote failed.
	Shutdown() error

	// Tree lists the immediate children of path as a Tree whose items
	// carry type/filetype, mode, uid, gid, mtime and, where available,
	// size/atime/ctime/link.
	Tree(path string) (*object.Tree, error)
	// Blob opens a readable stream for the file at path.
	Blob(path string) (io.ReadCloser, error)
	// Checksum returns the remote's own hex-encoded content hash for
	// path using the pool's algorithm, or ("", false) when unavailable.
	Checksum(path string) (digest string, ok bool, err error)
	// Newer reports whether newItem should be considered changed
	// relative to oldItem. The default policy is mtime inequality;
	// remotes may override with method-specific attributes.
	Newer(newItem, oldItem object.Item) bool

	// PutTree materializes tree's immediate children at path (restore).
	PutTree(tree *object.Tree, path string) error
	// PutBlob writes r to path (restore).
	PutBlob(r io.Reader, path string) error

	// Policy returns the include/exclude decision function for this
	// remote's configured includes/excludes.
	Policy() *Policy
}
