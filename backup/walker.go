// Package backup implements the recursive, parent-aware walker that
// ingests a remote's content into a pool (C6), and the depth-first
// walker that materializes a tree back onto a remote (C7).
package backup

import (
	"path"

	log "github.com/sirupsen/logrus"

	"github.com/kesh-io/satchel/object"
	"github.com/kesh-io/satchel/pool"
	"github.com/kesh-io/satchel/remote"
)

const (
	actionSkip  = "SKIP"
	actionReuse = "REUSE"
	actionNew   = "NEW"
)

// Walker ingests a remote into a pool, producing a Backup object.
type Walker struct {
	Pool   *pool.Pool
	Remote remote.Method
}

// Run performs a full backup: it initializes the remote, walks it from
// "/", and ingests the resulting Backup object. parentRef may be empty
// for a first-time backup.
func (w *Walker) Run(parentRef object.Ref) (object.Ref, *object.Backup, error) {
	backup := object.NewBackup(parentRef)
	backup.Start = object.Now()

	var parentRoot *object.Tree
	if parentRef != "" {
		parentBackup, err := w.Pool.GetBackup(parentRef)
		if err != nil {
			return "", nil, err
		}
		parentRoot, err = w.Pool.GetTree(parentBackup.Root)
		if err != nil {
			return "", nil, err
		}
	}

	if err := w.Remote.Initialize(); err != nil {
		return "", nil, err
	}
	defer func() {
		if err := w.Remote.Shutdown(); err != nil {
			log.WithError(err).Warn("backup: remote shutdown failed")
		}
	}()

	errs, stats, rootRef, err := w.walk("/", parentRoot)
	if err != nil {
		return "", nil, err
	}
	backup.Errors = errs
	backup.Stats = stats
	backup.Root = rootRef
	backup.End = object.Now()

	ref, _, _, err := w.Pool.IngestBackup(backup)
	if err != nil {
		return "", nil, err
	}
	return ref, backup, nil
}

// walk recurses over a single remote directory, ingesting its contents
// and returning the errors and statistics accumulated at and below this
// level, plus the ref of the ingested Tree for this level.
func (w *Walker) walk(dirPath string, parent *object.Tree) (map[string]string, map[string]int64, object.Ref, error) {
	errs := make(map[string]string)
	stats := make(map[string]int64)

	tree, err := w.Remote.Tree(dirPath)
	if err != nil {
		return nil, nil, "", err
	}

	policy := w.Remote.Policy()
	for _, name := range tree.Names() {
		item, _ := tree.Get(name)
		fullname := path.Join(dirPath, name)

		if !policy.Included(fullname) {
			tree.Discard(name)
			continue
		}

		var parentItem object.Item
		var hasParentItem bool
		if parent != nil {
			parentItem, hasParentItem = parent.Get(name)
		}

		switch item.Type() {
		case "blob":
			bumpStat(stats, "total-blob", 1)
			newItem, action, err := w.ingestBlob(fullname, item, parentItem, hasParentItem, stats)
			if err != nil {
				errs[fullname] = err.Error()
				tree.Discard(name)
				log.WithError(err).WithField("path", fullname).Debug("backup: blob error, item dropped")
				continue
			}
			tree.Add(name, newItem)
			log.WithFields(log.Fields{"path": fullname, "action": action}).Debug("backup: blob")

		case "tree":
			var childParent *object.Tree
			if hasParentItem && parentItem.Type() == "tree" && parentItem.Ref() != "" {
				childParent, err = w.Pool.GetTree(parentItem.Ref())
				if err != nil {
					childParent = nil
				}
			}
			childErrs, childStats, childRef, err := w.walk(fullname, childParent)
			if err != nil {
				errs[fullname] = err.Error()
				tree.Discard(name)
				log.WithError(err).WithField("path", fullname).Debug("backup: tree error, subtree dropped")
				continue
			}
			mergeErrors(errs, childErrs)
			mergeStats(stats, childStats)
			item.SetRef(childRef)
			tree.Add(name, item)

		default:
			// Links and fifos are kept as-is: no ref, no ingest.
		}
	}

	bumpStat(stats, "total-tree", 1)
	treeRef, size, stored, err := w.Pool.IngestTree(tree)
	if err != nil {
		return nil, nil, "", err
	}
	if stored > 0 {
		bumpStat(stats, "new-tree", 1)
		bumpStat(stats, "new-tree-size", size)
		bumpStat(stats, "new-tree-stored-size", stored)
	} else {
		bumpStat(stats, "reused-tree", 1)
		bumpStat(stats, "reused-tree-size", size)
	}
	log.WithField("path", dirPath).Debug("backup: tree ingested")

	return errs, stats, treeRef, nil
}

// ingestBlob classifies and ingests a single blob item, in the order
// skip-via-parent, reuse-via-remote-checksum, ingest-new.
func (w *Walker) ingestBlob(fullname string, item, parentItem object.Item, hasParentItem bool, stats map[string]int64) (object.Item, string, error) {
	item = item.Clone()

	if hasParentItem && !w.Remote.Newer(item, parentItem) {
		item.SetRef(parentItem.Ref())
		bumpStat(stats, "skipped-blob", 1)
		if size, err := w.Pool.Size(parentItem.Ref()); err == nil {
			bumpStat(stats, "skipped-blob-size", size)
		}
		return item, actionSkip, nil
	}

	if digest, ok, err := w.Remote.Checksum(fullname); err == nil && ok {
		ref := object.Ref(digest)
		if w.Pool.Exists(ref) {
			item.SetRef(ref)
			bumpStat(stats, "reused-blob", 1)
			if size, err := w.Pool.Size(ref); err == nil {
				bumpStat(stats, "reused-blob-size", size)
			}
			return item, actionReuse, nil
		}
	}

	r, err := w.Remote.Blob(fullname)
	if err != nil {
		return nil, "", err
	}
	defer r.Close()

	ref, size, stored, err := w.Pool.Ingest(r)
	if err != nil {
		return nil, "", err
	}
	item.SetRef(ref)
	if stored > 0 {
		bumpStat(stats, "new-blob", 1)
		bumpStat(stats, "new-blob-size", size)
		bumpStat(stats, "new-blob-stored-size", stored)
		return item, actionNew, nil
	}
	bumpStat(stats, "reused-blob", 1)
	bumpStat(stats, "reused-blob-size", size)
	return item, actionReuse, nil
}

func bumpStat(stats map[string]int64, key string, delta int64) {
	stats[key] += delta
}

func mergeErrors(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

func mergeStats(dst, src map[string]int64) {
	for k, v := range src {
		dst[k] += v
	}
}
