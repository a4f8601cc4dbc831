package backup

import (
	"path"

	log "github.com/sirupsen/logrus"

	"github.com/kesh-io/satchel/object"
	"github.com/kesh-io/satchel/pool"
	"github.com/kesh-io/satchel/remote"
)

// Restorer materializes a tree back onto a remote, depth-first.
type Restorer struct {
	Pool   *pool.Pool
	Remote remote.Method
}

// Run restores tree at prefix on the remote. The remote is entered and
// exited as a scoped resource for the duration of the restore.
func (r *Restorer) Run(tree *object.Tree, prefix string) error {
	if prefix == "" {
		prefix = "/"
	}
	if err := r.Remote.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := r.Remote.Shutdown(); err != nil {
			log.WithError(err).Warn("restore: remote shutdown failed")
		}
	}()
	return r.walk(tree, prefix)
}

func (r *Restorer) walk(tree *object.Tree, prefix string) error {
	if err := r.Remote.PutTree(tree, prefix); err != nil {
		return err
	}
	log.WithField("path", prefix).Debug("restore: tree")

	for _, named := range tree.Items() {
		fullname := path.Join(prefix, named.Name)
		item := named.Item
		switch item.Type() {
		case "tree":
			subtree, err := r.Pool.GetTree(item.Ref())
			if err != nil {
				return err
			}
			if err := r.walk(subtree, fullname); err != nil {
				return err
			}
		case "blob":
			blob, err := r.Pool.GetBlob(item.Ref())
			if err != nil {
				return err
			}
			err = func() error {
				defer blob.Close()
				return r.Remote.PutBlob(blob.Reader, fullname)
			}()
			if err != nil {
				return err
			}
			log.WithField("path", fullname).Debug("restore: blob")
		}
	}
	return nil
}
