// Package pool implements the content-addressed object store: ingest,
// existence checks, streaming reads, size accounting, listing and
// deletion, plus the label namespace, name resolver, garbage collector
// and integrity check built on top of it. Layout on disk is fixed for
// compatibility with existing pools (see doc comment on Pool).
//
// Ingest is serialized within one process only; nothing coordinates two
// processes writing to the same location.
package pool

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // content identifier, not an authentication primitive.
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/kesh-io/satchel/object"
)

const (
	poolDirName   = "pool"
	labelsDirName = "labels"
	tempFilePrefx = "tmp-"

	ingestReadSize = 32768
)

// Pool is a content-addressed object store rooted at a location directory:
//
//	<location>/pool/<x>/<y>/<z>/<full-40-hex-ref>
//	<location>/labels/<name...>
//	<location>/<tmpfiles>
//
// where x, y, z are the first three individual hex characters of the ref
// (not two-character groups). This matches the layout produced by earlier
// tooling this format is wire-compatible with.
type Pool struct {
	location string

	// ingestMu serializes the exists-check -> link critical section of
	// Ingest. The pool is safe for concurrent callers within a single
	// process; it makes no promises across processes (see package doc).
	ingestMu sync.Mutex

	// index is an optional, purely-cache bbolt side index. It is never
	// authoritative: every value it stores can be recomputed by walking
	// the filesystem, so a missing or stale index never causes incorrect
	// behavior, only slower behavior until Rebuild repopulates it.
	index *Index
}

// Open prepares (creating if necessary) the pool/labels directories under
// location and returns a handle to them.
func Open(location string) (*Pool, error) {
	p := &Pool{location: location}
	for _, dir := range []string{location, p.poolDir(), p.labelsDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, errors.Wrapf(err, "pool: preparing %q", dir)
		}
	}
	return p, nil
}

// UseIndex attaches an index cache to the pool. See Index.
func (p *Pool) UseIndex(idx *Index) { p.index = idx }

// Location returns the pool's root directory.
func (p *Pool) Location() string { return p.location }

func (p *Pool) poolDir() string   { return filepath.Join(p.location, poolDirName) }
func (p *Pool) labelsDir() string { return filepath.Join(p.location, labelsDirName) }

func (p *Pool) fanoutDir(ref object.Ref) string {
	s := string(ref)
	return filepath.Join(p.poolDir(), s[0:1], s[1:2], s[2:3])
}

func (p *Pool) objectPath(ref object.Ref) string {
	return filepath.Join(p.fanoutDir(ref), string(ref))
}

// Ingest streams r to the pool, returning the ref, the number of bytes
// read, and the number of bytes actually written to storage (0 means the
// object already existed: a dedup hit).
func (p *Pool) Ingest(r io.Reader) (ref object.Ref, size int64, stored int64, err error) {
	tmp, err := os.CreateTemp(p.location, tempFilePrefx)
	if err != nil {
		return "", 0, 0, errors.Wrap(err, "pool: creating temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	hasher := sha1.New() //nolint:gosec
	buf := make([]byte, ingestReadSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			if _, werr := tmp.Write(buf[:n]); werr != nil {
				return "", 0, 0, errors.Wrap(werr, "pool: writing temp file")
			}
			size += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", 0, 0, errors.Wrap(rerr, "pool: reading source")
		}
	}
	ref = object.Ref(hex.EncodeToString(hasher.Sum(nil)))

	// FIXME: protect this section with a lock -- done, via ingestMu. Ingest
	// is still only safe within a single process; operators must not run
	// two schedulers against the same pool (see package doc).
	p.ingestMu.Lock()
	defer p.ingestMu.Unlock()

	if p.exists(ref) {
		return ref, size, 0, nil
	}
	if err := os.MkdirAll(p.fanoutDir(ref), 0700); err != nil {
		return "", 0, 0, errors.Wrapf(err, "pool: creating fan-out dir for %s", ref)
	}
	if err := os.Link(tmpName, p.objectPath(ref)); err != nil {
		if os.IsExist(err) {
			// Lost a race within this process between the exists check
			// above and the link; treat as dedup.
			return ref, size, 0, nil
		}
		return "", 0, 0, errors.Wrapf(err, "pool: linking object %s", ref)
	}
	if p.index != nil {
		if err := p.index.CacheSize(ref, size); err != nil {
			log.WithError(err).WithField("ref", ref).Warn("pool: could not update size index")
		}
	}
	return ref, size, size, nil
}

// Exists reports whether ref is present in the pool.
func (p *Pool) Exists(ref object.Ref) bool {
	return p.exists(ref)
}

func (p *Pool) exists(ref object.Ref) bool {
	_, err := os.Stat(p.objectPath(ref))
	return err == nil
}

// Open returns a readable stream for ref.
func (p *Pool) Open(ref object.Ref) (io.ReadCloser, error) {
	f, err := os.Open(p.objectPath(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "ref=%s", ref)
		}
		return nil, err
	}
	return f, nil
}

// Size returns the on-disk size of ref.
func (p *Pool) Size(ref object.Ref) (int64, error) {
	if p.index != nil {
		if size, ok, err := p.index.CachedSize(ref); err == nil && ok {
			return size, nil
		}
	}
	fi, err := os.Stat(p.objectPath(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.Wrapf(ErrNotFound, "ref=%s", ref)
		}
		return 0, err
	}
	if p.index != nil {
		if err := p.index.CacheSize(ref, fi.Size()); err != nil {
			log.WithError(err).WithField("ref", ref).Warn("pool: could not update size index")
		}
	}
	return fi.Size(), nil
}

// List yields every object ref currently in the pool. The returned
// channel is closed when the walk completes. If the pool directory
// cannot be stat'ed, that error is returned immediately with a nil
// channel; errors met during the walk are logged and skipped.
func (p *Pool) List() (<-chan object.Ref, error) {
	if _, err := os.Stat(p.poolDir()); err != nil {
		return nil, err
	}
	out := make(chan object.Ref)
	go func() {
		defer close(out)
		_ = filepath.Walk(p.poolDir(), func(path string, info os.FileInfo, err error) error {
			if err != nil {
				log.WithError(err).WithField("path", path).Warn("pool: error walking pool directory")
				return nil
			}
			if info.IsDir() {
				return nil
			}
			ref := object.Ref(info.Name())
			if !ref.Valid() {
				return nil
			}
			out <- ref
			return nil
		})
	}()
	return out, nil
}

// Delete removes ref from the pool. Parent fan-out directories are left
// in place even if they become empty.
func (p *Pool) Delete(ref object.Ref) error {
	if err := os.Remove(p.objectPath(ref)); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrNotFound, "ref=%s", ref)
		}
		return err
	}
	return nil
}

// GetTree decodes ref as a Tree. As a convenience, if ref does not decode
// as a Tree, it is retried as a Backup, returning that backup's root tree.
// This lets callers use a backup label anywhere a tree is expected.
func (p *Pool) GetTree(ref object.Ref) (*object.Tree, error) {
	r, err := p.Open(ref)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil {
		return nil, err
	}
	tree, err := object.DecodeTree(data)
	if err == nil {
		return tree, nil
	}
	backup, berr := object.DecodeBackup(data)
	if berr != nil {
		return nil, object.ErrDecodeFailure
	}
	return p.GetTree(backup.Root)
}

// GetBackup decodes ref as a Backup.
func (p *Pool) GetBackup(ref object.Ref) (*object.Backup, error) {
	r, err := p.Open(ref)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil {
		return nil, err
	}
	return object.DecodeBackup(data)
}

// GetBlob opens the raw bytes for a blob ref.
func (p *Pool) GetBlob(ref object.Ref) (object.Blob, error) {
	r, err := p.Open(ref)
	if err != nil {
		return object.Blob{}, err
	}
	return object.NewBlob(r), nil
}

// IngestTree encodes and ingests a Tree.
func (p *Pool) IngestTree(t *object.Tree) (object.Ref, int64, int64, error) {
	data, err := object.EncodeTree(t)
	if err != nil {
		return "", 0, 0, err
	}
	return p.Ingest(bytes.NewReader(data))
}

// IngestBackup encodes and ingests a Backup.
func (p *Pool) IngestBackup(b *object.Backup) (object.Ref, int64, int64, error) {
	data, err := object.EncodeBackup(b)
	if err != nil {
		return "", 0, 0, err
	}
	return p.Ingest(bytes.NewReader(data))
}
