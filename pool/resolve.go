package pool

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/kesh-io/satchel/object"
)

// Resolve interprets name against the grammar:
//
//	NAME        = REF_OR_LABEL PARENT_HOPS? SUB_PATH?
//	PARENT_HOPS = "^"+
//	SUB_PATH    = ":" PATH_COMPONENT ("/" PATH_COMPONENT)*
//
// REF_OR_LABEL is first tried as a literal ref present in the pool, then
// as a label. Each
// "^" walks to the backup's parent; SUB_PATH then descends the
// resulting tree component by component. Resolve returns the ref of
// whatever the name ultimately designates: a backup, a tree, or a blob.
func (p *Pool) Resolve(name string) (object.Ref, error) {
	base, hops, subPath := splitName(name)

	ref, err := p.resolveBase(base)
	if err != nil {
		return "", err
	}

	for i := 0; i < hops; i++ {
		backup, err := p.GetBackup(ref)
		if err != nil {
			return "", errors.Wrapf(ErrResolve, "%q: %q is not a backup: %v", name, ref, err)
		}
		if backup.Parent == "" {
			return "", errors.Wrapf(ErrNoParent, "%q: hop %d of %d", name, i+1, hops)
		}
		ref = backup.Parent
	}

	if subPath == "" {
		return ref, nil
	}

	tree, err := p.GetTree(ref)
	if err != nil {
		return "", errors.Wrapf(ErrResolve, "%q: %q does not resolve to a tree: %v", name, ref, err)
	}
	components := strings.Split(subPath, "/")
	for i, comp := range components {
		if comp == "" {
			continue
		}
		item, ok := tree.Get(comp)
		if !ok {
			return "", errors.Wrapf(ErrUnknownComponent, "%q: no %q in tree", name, comp)
		}
		last := i == len(components)-1
		if last {
			return item.Ref(), nil
		}
		if item.Type() != "tree" {
			return "", errors.Wrapf(ErrNotATree, "%q: %q is a %s", name, comp, item.Type())
		}
		tree, err = p.GetTree(item.Ref())
		if err != nil {
			return "", errors.Wrapf(ErrResolve, "%q: descending into %q: %v", name, comp, err)
		}
	}
	return ref, nil
}

// resolveBase tries base first as a literal ref actually present in the
// pool, then falls back to a label, matching the original resolver's
// "if not self.storage.exists(name): name = self.storage.read_label(name)".
func (p *Pool) resolveBase(base string) (object.Ref, error) {
	if candidate := object.Ref(base); candidate.Valid() && p.Exists(candidate) {
		return candidate, nil
	}
	ref, err := p.ReadLabel(base)
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	return "", errors.Wrapf(ErrResolve, "%q is neither an existing ref nor a known label", base)
}

// splitName separates name into its base reference, parent-hop count,
// and sub-path (without the leading colon).
func splitName(name string) (base string, hops int, subPath string) {
	rest := name
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		subPath = rest[idx+1:]
		rest = rest[:idx]
	}
	for len(rest) > 0 && rest[len(rest)-1] == '^' {
		hops++
		rest = rest[:len(rest)-1]
	}
	base = rest
	return
}
