package pool

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/kesh-io/satchel/object"
)

var (
	sizeBucket  = []byte("sizes")
	labelBucket = []byte("labels")
)

// Index is a rebuildable bbolt side cache over a pool's on-disk state. It
// never holds information the filesystem does not also hold: losing it,
// or opening an out-of-date copy, only costs a Rebuild, never
// correctness. Pool and the label store consult it opportunistically and
// always fall back to the filesystem on a miss.
type Index struct {
	db *bbolt.DB
}

// OpenIndex opens (creating if necessary) a bbolt index file at path.
func OpenIndex(path string) (*Index, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "pool: opening index %q", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(sizeBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(labelBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pool: preparing index buckets")
	}
	return &Index{db: db}, nil
}

// Close releases the underlying bbolt database.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// CacheSize records the on-disk size of ref.
func (idx *Index) CacheSize(ref object.Ref, size int64) error {
	return idx.db.Update(func(tx *bbolt.Tx) error {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(size))
		return tx.Bucket(sizeBucket).Put([]byte(ref), buf)
	})
}

// CachedSize returns a previously cached size, and whether it was present.
func (idx *Index) CachedSize(ref object.Ref) (size int64, ok bool, err error) {
	err = idx.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(sizeBucket).Get([]byte(ref))
		if v == nil {
			return nil
		}
		if len(v) != 8 {
			return errors.New("pool: corrupt size index entry")
		}
		size = int64(binary.BigEndian.Uint64(v))
		ok = true
		return nil
	})
	return size, ok, err
}

// CacheLabel records the resolved ref for a label name.
func (idx *Index) CacheLabel(name string, ref object.Ref) error {
	return idx.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(labelBucket).Put([]byte(name), []byte(ref))
	})
}

// CachedLabel returns a previously cached label resolution.
func (idx *Index) CachedLabel(name string) (ref object.Ref, ok bool, err error) {
	err = idx.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(labelBucket).Get([]byte(name))
		if v == nil {
			return nil
		}
		ref = object.Ref(v)
		ok = true
		return nil
	})
	return ref, ok, err
}

// ForgetLabel evicts a cached label resolution, used when a label is
// deleted or repointed.
func (idx *Index) ForgetLabel(name string) error {
	return idx.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(labelBucket).Delete([]byte(name))
	})
}

// Rebuild discards and repopulates the index by walking p's pool and
// labels directories. It is the only way to recover from a missing or
// corrupt index file; the pool itself is never at risk.
func Rebuild(p *Pool, indexPath string) (*Index, error) {
	if err := os.Remove(indexPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "pool: removing stale index")
	}
	idx, err := OpenIndex(indexPath)
	if err != nil {
		return nil, err
	}

	refs, err := p.List()
	if err != nil {
		return nil, err
	}
	for ref := range refs {
		fi, err := os.Stat(p.objectPath(ref))
		if err != nil {
			log.WithError(err).WithField("ref", ref).Warn("pool: rebuild: stat failed")
			continue
		}
		if err := idx.CacheSize(ref, fi.Size()); err != nil {
			return nil, err
		}
	}

	err = filepath.Walk(p.labelsDir(), func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		name, rerr := filepath.Rel(p.labelsDir(), path)
		if rerr != nil {
			return nil
		}
		f, oerr := os.Open(path)
		if oerr != nil {
			return nil
		}
		defer f.Close()
		data, rerr := io.ReadAll(f)
		if rerr != nil {
			return nil
		}
		ref := object.Ref(trimLabelContent(data))
		if !ref.Valid() {
			return nil
		}
		return idx.CacheLabel(name, ref)
	})
	if err != nil {
		return nil, errors.Wrap(err, "pool: rebuild: walking labels")
	}
	return idx, nil
}
