package vfs

import (
	"github.com/lionkov/go9p/p"
)

// attrToDir builds the p.Dir entry for one child in a Readdir listing,
// mapping a tree item's mode, mtime, atime and (for regular blobs) pool
// size onto 9P fields.
func attrToDir(ino uint64, name string, n *inode, s *Server) *p.Dir {
	dir := &p.Dir{}
	dir.Qid = qidFor(ino, n)
	dir.Name = name
	dir.Uid = "none"
	dir.Gid = "none"
	dir.Mode = uint32(n.item.Mode())
	if n.filetype() == FiletypeDirectory {
		dir.Mode |= p.DMDIR
	}
	dir.Mtime = uint32(n.item.Mtime())
	dir.Atime = uint32(n.item.Atime())
	if n.filetype() == FiletypeRegular && n.item.Type() == "blob" {
		if size, err := s.pool.Size(n.item.Ref()); err == nil {
			dir.Length = uint64(size)
		}
	}
	return dir
}

func qidFor(ino uint64, n *inode) (qid p.Qid) {
	qid.Path = ino
	if n.filetype() == FiletypeDirectory {
		qid.Type = p.QTDIR
	}
	return
}
