package pool

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/kesh-io/satchel/object"
)

// labelPattern is deliberately permissive on purpose: it forbids only the
// characters that would be awkward or unsafe as path components
// (filesystem separators and glob/redirection metacharacters), with no
// added restriction on "." beyond that. This is the documented choice
// for the historical ambiguity between a strict and a permissive label
// grammar: the permissive form accepts timestamps containing "." and
// names with extensions.
var labelPattern = regexp.MustCompile(`^[^/?<>\\:*|"]+(/[^/?<>\\:*|"]+)*$`)

// CheckLabel validates a label name without touching the filesystem.
func CheckLabel(name string) error {
	if name == "" || strings.Contains(name, "..") || !labelPattern.MatchString(name) {
		return errors.Wrapf(ErrPolicyViolation, "invalid label name %q", name)
	}
	return nil
}

func (p *Pool) labelPath(name string) string {
	return filepath.Join(p.labelsDir(), filepath.FromSlash(name))
}

// SetLabel points name at ref. When overwrite is false and the label
// already exists, ErrPolicyViolation is returned instead of silently
// replacing it.
func (p *Pool) SetLabel(name string, ref object.Ref, overwrite bool) error {
	if err := CheckLabel(name); err != nil {
		return err
	}
	path := p.labelPath(name)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.Wrapf(ErrPolicyViolation, "label %q already exists", name)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrapf(err, "pool: creating directory for label %q", name)
	}
	if err := ioutil.WriteFile(path, []byte(string(ref)), 0600); err != nil {
		return errors.Wrapf(err, "pool: writing label %q", name)
	}
	if p.index != nil {
		if err := p.index.CacheLabel(name, ref); err != nil {
			return errors.Wrap(err, "pool: updating label index")
		}
	}
	return nil
}

// ReadLabel resolves name to the ref it currently points at.
func (p *Pool) ReadLabel(name string) (object.Ref, error) {
	if p.index != nil {
		if ref, ok, err := p.index.CachedLabel(name); err == nil && ok {
			return ref, nil
		}
	}
	data, err := ioutil.ReadFile(p.labelPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(ErrNotFound, "label=%s", name)
		}
		return "", err
	}
	ref := object.Ref(trimLabelContent(data))
	if !ref.Valid() {
		return "", errors.Wrapf(ErrDecodeFailure, "label=%s contains %q", name, data)
	}
	if p.index != nil {
		if err := p.index.CacheLabel(name, ref); err != nil {
			return "", errors.Wrap(err, "pool: updating label index")
		}
	}
	return ref, nil
}

// DeleteLabel removes name.
func (p *Pool) DeleteLabel(name string) error {
	if err := os.Remove(p.labelPath(name)); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrNotFound, "label=%s", name)
		}
		return err
	}
	if p.index != nil {
		if err := p.index.ForgetLabel(name); err != nil {
			return errors.Wrap(err, "pool: updating label index")
		}
	}
	return nil
}

// ListLabels yields every label name currently set, as slash-separated
// paths relative to the labels directory.
func (p *Pool) ListLabels() (<-chan string, error) {
	if _, err := os.Stat(p.labelsDir()); err != nil {
		return nil, err
	}
	out := make(chan string)
	go func() {
		defer close(out)
		_ = filepath.Walk(p.labelsDir(), func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			rel, rerr := filepath.Rel(p.labelsDir(), path)
			if rerr != nil {
				return nil
			}
			out <- filepath.ToSlash(rel)
			return nil
		})
	}()
	return out, nil
}

func trimLabelContent(data []byte) string {
	return strings.TrimSpace(string(data))
}

// ErrDecodeFailure is reused here for malformed label file content,
// rather than introducing a distinct sentinel: both describe a file
// that does not contain what its position in the pool promises.
var ErrDecodeFailure = object.ErrDecodeFailure
