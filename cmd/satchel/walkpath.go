package main

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/kesh-io/satchel/object"
)

// descend walks tree by the slash-separated components of subPath, returning
// the item at that path. Used by commands that accept an optional
// sub-path alongside a resolved backup or tree name.
func descend(tree *object.Tree, subPath string) (object.Item, error) {
	components := splitPath(subPath)
	if len(components) == 0 {
		return nil, errors.New("satchel: empty path")
	}
	var item object.Item
	cur := tree
	for i, comp := range components {
		found, ok := cur.Get(comp)
		if !ok {
			return nil, errors.Errorf("satchel: no %q in tree (path %q)", comp, subPath)
		}
		item = found
		last := i == len(components)-1
		if last {
			break
		}
		if item.Type() != "tree" {
			return nil, errors.Errorf("satchel: %q is a %s, not a directory", comp, item.Type())
		}
		var err error
		cur, err = p.GetTree(item.Ref())
		if err != nil {
			return nil, err
		}
	}
	return item, nil
}

func splitPath(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}
