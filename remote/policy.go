package remote

import (
	"path"
	"sort"
	"strings"
)

type ruleDisposition bool

const (
	include ruleDisposition = true
	exclude ruleDisposition = false
)

type rule struct {
	prefix    string
	policy    ruleDisposition
	recursive bool
}

// Policy is a deterministic include/exclude decision function over
// absolute paths, built from a remote's configured includes/excludes.
//
// Every configured path yields one recursive rule. In addition, every
// strict parent directory of an include prefix gets a non-recursive
// include rule, unless that directory is itself already configured as
// include: this is what lets "includes=[/a/b/c]" actually produce
// something at "/", "/a" and "/a/b" to descend through. Those
// non-recursive rules match only the directories themselves; any other
// path under them falls through to the default, which is include.
type Policy struct {
	rules []rule
}

// NewPolicy builds a Policy from raw include/exclude path lists.
func NewPolicy(includes, excludes []string) *Policy {
	rootPolicy := make(map[string]ruleDisposition)
	var order []string
	for _, p := range includes {
		n := normalize(p)
		if _, seen := rootPolicy[n]; !seen {
			order = append(order, n)
		}
		rootPolicy[n] = include
	}
	for _, p := range excludes {
		n := normalize(p)
		if _, seen := rootPolicy[n]; !seen {
			order = append(order, n)
		}
		rootPolicy[n] = exclude
	}

	var rules []rule
	for _, prefix := range order {
		policy := rootPolicy[prefix]
		rules = append(rules, rule{prefix: prefix, policy: policy, recursive: true})

		if policy == include {
			for p := path.Dir(prefix); ; p = path.Dir(p) {
				if rootPolicy[p] != include {
					rules = append(rules, rule{prefix: p, policy: include, recursive: false})
				}
				if p == "/" {
					break
				}
			}
		}
	}

	sort.SliceStable(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if len(a.prefix) != len(b.prefix) {
			return len(a.prefix) > len(b.prefix)
		}
		if a.prefix != b.prefix {
			return a.prefix > b.prefix
		}
		return a.recursive && !b.recursive
	})

	return &Policy{rules: rules}
}

func normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Included reports whether path should be walked, given the policy's
// rules. The default when nothing matches is include.
func (p *Policy) Included(fullPath string) bool {
	target := normalize(fullPath)
	for _, r := range p.rules {
		if r.recursive {
			if strings.HasPrefix(target, r.prefix) {
				return r.policy == include
			}
		} else if target == r.prefix {
			return r.policy == include
		}
	}
	return true
}
