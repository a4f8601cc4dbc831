// Package vfs implements a read-only virtual filesystem view of a single
// Tree (C11) stored in the pool: inodes are allocated on demand and a
// directory's children are registered lazily, on first Lookup or Readdir.
//
// The Server type holds all server-side state (inode table, open file
// handles, allocation counters) independent of any particular wire
// protocol; Serve wires it to a 9P2000 srv.Srv, the protocol this
// codebase's mount tooling already speaks.
package vfs

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/kesh-io/satchel/internal/p9util"
	"github.com/kesh-io/satchel/object"
	"github.com/kesh-io/satchel/pool"
)

// ErrNotFound is returned by Lookup when name is absent from a directory,
// and by Getattr/Open/Read/Release for an unknown inode or handle.
var ErrNotFound = errors.New("vfs: not found")

// ErrNotDir is returned by Opendir/Readdir against a non-directory inode.
var ErrNotDir = errors.New("vfs: not a directory")

// ErrNotBlob is returned by Open against a non-blob inode.
var ErrNotBlob = errors.New("vfs: not a blob")

// RootInode is always inode 1, per the spec's fixed root assignment.
const RootInode uint64 = 1

// Filetype mirrors an item's "filetype" attribute, resolved to a fixed
// set the server knows how to present.
type Filetype int

const (
	FiletypeRegular Filetype = iota
	FiletypeDirectory
	FiletypeLink
	FiletypeFifo
)

// Attr is the subset of POSIX metadata the server can derive from a tree
// item plus pool state, returned by Getattr.
type Attr struct {
	Inode    uint64
	Filetype Filetype
	Size     int64
	Mode     int64
	UID      int64
	GID      int64
	Atime    int64
	Mtime    int64
	Ctime    int64
}

// inode is the server's view of one tree entry: its attributes, and, for
// directories, its expanded tree and the name->inode map used to assign
// children lazily (built on first Lookup/Readdir, never evicted: the
// mount's lifetime is bounded by one process, so there is no pressure to
// reclaim inodes).
type inode struct {
	name   string
	item   object.Item // zero value for the root, which has no item record
	isRoot bool

	tree      *object.Tree // populated once, for directories
	children  map[string]uint64
	order     []string // child names in the order their inodes were assigned
	dirb      p9util.DirBuffer
	dirbBuilt bool
}

func (n *inode) filetype() Filetype {
	if n.isRoot {
		return FiletypeDirectory
	}
	switch n.item.Filetype() {
	case "directory":
		return FiletypeDirectory
	case "link":
		return FiletypeLink
	case "fifo":
		return FiletypeFifo
	default:
		return FiletypeRegular
	}
}

// handle is an open blob stream, addressed by a allocated fd.
type handle struct {
	stream io.ReadCloser
	seeker io.Seeker // non-nil when stream also supports seeking
	offset int64
}

// Server holds all state for one mounted tree: the inode table and open
// file handles. It is safe for concurrent use.
type Server struct {
	pool *pool.Pool

	mu        sync.Mutex
	inodes    map[uint64]*inode
	nextInode uint64
	fds       map[uint64]*handle
	nextFd    uint64
}

// NewServer returns a Server exposing root (a tree ref, or anything
// pool.GetTree accepts) as inode 1.
func NewServer(p *pool.Pool, root object.Ref) (*Server, error) {
	tree, err := p.GetTree(root)
	if err != nil {
		return nil, errors.Wrapf(err, "vfs: resolving root %q", root)
	}
	s := &Server{
		pool:      p,
		inodes:    make(map[uint64]*inode),
		nextInode: RootInode + 1,
		fds:       make(map[uint64]*handle),
		nextFd:    1,
	}
	s.inodes[RootInode] = &inode{name: "/", isRoot: true, tree: tree}
	return s, nil
}

func (s *Server) allocInode() uint64 {
	ino := s.nextInode
	s.nextInode++
	return ino
}

func (s *Server) allocFd() uint64 {
	fd := s.nextFd
	s.nextFd++
	return fd
}

// Getattr derives POSIX-ish metadata for ino. uid/gid default to 0;
// timestamps come from the item's atime/mtime/ctime attributes (0, i.e.
// the epoch, when absent, which is an acceptable fixed value per spec).
func (s *Server) Getattr(ino uint64) (Attr, error) {
	s.mu.Lock()
	n, ok := s.inodes[ino]
	s.mu.Unlock()
	if !ok {
		return Attr{}, errors.Wrapf(ErrNotFound, "inode=%d", ino)
	}
	a := Attr{
		Inode:    ino,
		Filetype: n.filetype(),
		Mode:     n.item.Mode(),
		UID:      n.item.UID(),
		GID:      n.item.GID(),
		Atime:    n.item.Atime(),
		Mtime:    n.item.Mtime(),
		Ctime:    n.item.Ctime(),
	}
	if a.Filetype == FiletypeRegular && n.item.Type() == "blob" {
		if size, err := s.pool.Size(n.item.Ref()); err == nil {
			a.Size = size
		}
	}
	return a, nil
}

// Lookup finds name within the directory inode parent, lazily assigning
// and caching an inode for it on first access.
func (s *Server) Lookup(parent uint64, name string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.inodes[parent]
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "inode=%d", parent)
	}
	if p.filetype() != FiletypeDirectory || p.tree == nil {
		return 0, errors.Wrapf(ErrNotDir, "inode=%d", parent)
	}
	return s.lookupLocked(parent, p, name)
}

// Opendir returns ino itself as the directory handle, per spec.
func (s *Server) Opendir(ino uint64) (uint64, error) {
	s.mu.Lock()
	n, ok := s.inodes[ino]
	s.mu.Unlock()
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "inode=%d", ino)
	}
	if n.filetype() != FiletypeDirectory {
		return 0, errors.Wrapf(ErrNotDir, "inode=%d", ino)
	}
	return ino, nil
}

// Readdir fills b with packed directory entries starting at offset,
// assigning inodes to not-yet-visited children as Lookup would. It
// returns the number of bytes written, following the same offset
// contract as DirBuffer.Read.
func (s *Server) Readdir(handle uint64, b []byte, offset int) (int, error) {
	s.mu.Lock()
	n, ok := s.inodes[handle]
	s.mu.Unlock()
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "inode=%d", handle)
	}
	if n.filetype() != FiletypeDirectory || n.tree == nil {
		return 0, errors.Wrapf(ErrNotDir, "inode=%d", handle)
	}

	s.mu.Lock()
	if !n.dirbBuilt {
		n.dirb.Reset()
		for _, named := range n.tree.Items() {
			if _, err := s.lookupLocked(handle, n, named.Name); err != nil {
				s.mu.Unlock()
				return 0, err
			}
			ino := n.children[named.Name]
			child := s.inodes[ino]
			n.dirb.Write(attrToDir(ino, named.Name, child, s))
		}
		n.dirbBuilt = true
	}
	s.mu.Unlock()

	return n.dirb.Read(b, offset)
}

// lookupLocked is Lookup's body, callable while s.mu is already held, for
// use from Readdir's eager-assignment loop.
func (s *Server) lookupLocked(parent uint64, p *inode, name string) (uint64, error) {
	if p.children == nil {
		p.children = make(map[string]uint64)
	}
	if ino, ok := p.children[name]; ok {
		return ino, nil
	}
	item, ok := p.tree.Get(name)
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "%q in inode=%d", name, parent)
	}
	child := &inode{name: name, item: item}
	if item.Type() == "tree" {
		tree, err := s.pool.GetTree(item.Ref())
		if err != nil {
			return 0, errors.Wrapf(err, "vfs: expanding %q", name)
		}
		child.tree = tree
	}
	ino := s.allocInode()
	s.inodes[ino] = child
	p.children[name] = ino
	p.order = append(p.order, name)
	return ino, nil
}

// Readlink returns the symlink target for ino.
func (s *Server) Readlink(ino uint64) ([]byte, error) {
	s.mu.Lock()
	n, ok := s.inodes[ino]
	s.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "inode=%d", ino)
	}
	if n.filetype() != FiletypeLink {
		return nil, errors.Wrapf(ErrNotFound, "inode=%d is not a symlink", ino)
	}
	return n.item.Link(), nil
}

// Open allocates a readable handle for a blob inode.
func (s *Server) Open(ino uint64) (uint64, error) {
	s.mu.Lock()
	n, ok := s.inodes[ino]
	s.mu.Unlock()
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "inode=%d", ino)
	}
	if n.filetype() != FiletypeRegular || n.item.Type() != "blob" {
		return 0, errors.Wrapf(ErrNotBlob, "inode=%d", ino)
	}
	blob, err := s.pool.GetBlob(n.item.Ref())
	if err != nil {
		return 0, err
	}
	h := &handle{stream: blob.Reader}
	if seeker, ok := blob.Reader.(io.Seeker); ok {
		h.seeker = seeker
	}
	s.mu.Lock()
	fd := s.allocFd()
	s.fds[fd] = h
	s.mu.Unlock()
	return fd, nil
}

// Read seeks to offset (when the underlying stream supports it; pool
// blobs always do, since they are backed by plain files) and reads up to
// size bytes.
func (s *Server) Read(fd uint64, offset int64, size int) ([]byte, error) {
	s.mu.Lock()
	h, ok := s.fds[fd]
	s.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "fd=%d", fd)
	}
	if h.seeker != nil && h.offset != offset {
		if _, err := h.seeker.Seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
		h.offset = offset
	}
	buf := make([]byte, size)
	n, err := h.stream.Read(buf)
	if n > 0 {
		h.offset += int64(n)
	}
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// Release closes and forgets fd.
func (s *Server) Release(fd uint64) error {
	s.mu.Lock()
	h, ok := s.fds[fd]
	if ok {
		delete(s.fds, fd)
	}
	s.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrNotFound, "fd=%d", fd)
	}
	return h.stream.Close()
}
