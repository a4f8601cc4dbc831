package pool

import (
	log "github.com/sirupsen/logrus"

	"github.com/kesh-io/satchel/object"
)

// Mark computes the set of refs reachable from every current label: each
// label's backup, its root tree, and every blob/subtree the tree
// transitively references. A visited set guards against revisiting
// subtrees shared across backups, which is also what bounds the work to
// the size of the reachable graph rather than the number of labels.
func (p *Pool) Mark() (map[object.Ref]bool, error) {
	reachable := make(map[object.Ref]bool)

	labels, err := p.ListLabels()
	if err != nil {
		return nil, err
	}
	for name := range labels {
		ref, err := p.ReadLabel(name)
		if err != nil {
			log.WithError(err).WithField("label", name).Warn("gc: mark: could not read label")
			continue
		}
		if reachable[ref] {
			continue
		}
		reachable[ref] = true

		backup, err := p.GetBackup(ref)
		if err != nil {
			log.WithError(err).WithField("label", name).Warn("gc: mark: could not decode backup")
			continue
		}
		if err := p.markBackupChain(backup, reachable); err != nil {
			log.WithError(err).WithField("label", name).Warn("gc: mark: could not walk backup chain")
		}
	}
	return reachable, nil
}

// markBackupChain marks backup's root tree and, for completeness, every
// ancestor backup reachable via Parent: old backups remain restorable
// via "label^" even after the label has moved on, so GC must not reclaim
// them.
func (p *Pool) markBackupChain(backup *object.Backup, reachable map[object.Ref]bool) error {
	for {
		if backup.Root != "" && !reachable[backup.Root] {
			reachable[backup.Root] = true
			if err := p.markTree(backup.Root, reachable); err != nil {
				return err
			}
		}
		if backup.Parent == "" {
			return nil
		}
		if reachable[backup.Parent] {
			return nil
		}
		reachable[backup.Parent] = true
		next, err := p.GetBackup(backup.Parent)
		if err != nil {
			return err
		}
		backup = next
	}
}

func (p *Pool) markTree(ref object.Ref, reachable map[object.Ref]bool) error {
	tree, err := p.GetTree(ref)
	if err != nil {
		return err
	}
	for _, named := range tree.Items() {
		itemRef := named.Item.Ref()
		if itemRef == "" || reachable[itemRef] {
			continue
		}
		reachable[itemRef] = true
		if named.Item.Type() == "tree" {
			if err := p.markTree(itemRef, reachable); err != nil {
				return err
			}
		}
	}
	return nil
}

// SweepResult summarizes a Sweep pass.
type SweepResult struct {
	Deleted       int
	ReclaimedSize int64
	DryRun        bool
}

// Sweep removes every pool object not present in reachable. When dryRun
// is true, nothing is deleted and ReclaimedSize reports what would have
// been freed.
func (p *Pool) Sweep(reachable map[object.Ref]bool, dryRun bool) (SweepResult, error) {
	var result SweepResult
	result.DryRun = dryRun

	refs, err := p.List()
	if err != nil {
		return result, err
	}
	for ref := range refs {
		if reachable[ref] {
			continue
		}
		size, err := p.Size(ref)
		if err != nil {
			log.WithError(err).WithField("ref", ref).Warn("gc: sweep: could not stat object")
			continue
		}
		if !dryRun {
			if err := p.Delete(ref); err != nil {
				log.WithError(err).WithField("ref", ref).Warn("gc: sweep: could not delete object")
				continue
			}
		}
		result.Deleted++
		result.ReclaimedSize += size
	}
	return result, nil
}
