package vfs

import (
	"errors"

	"github.com/lionkov/go9p/p"
	"github.com/lionkov/go9p/p/srv"
	log "github.com/sirupsen/logrus"

	"github.com/kesh-io/satchel/internal/netutil"
)

// fidState is the per-fid bookkeeping the 9P layer keeps in Fid.Aux: the
// inode it currently points at, and, once opened, the blob fd or the
// fact that it is a directory handle (directories are their own handle,
// per Server.Opendir).
type fidState struct {
	ino      uint64
	blobFd   uint64
	blobOpen bool
	dirOpen  bool
}

// fs adapts a Server to the srv.ReqOps interface: every operation not
// listed in the spec's read-only surface returns Eperm.
type fs struct {
	server *Server
}

var _ srv.ReqOps = (*fs)(nil)

func (f *fs) Attach(r *srv.Req) {
	if r.Afid != nil {
		r.RespondError(srv.Enoauth)
		return
	}
	r.Fid.Aux = &fidState{ino: RootInode}
	a, err := f.server.Getattr(RootInode)
	if err != nil {
		r.RespondError(err)
		return
	}
	qid := qidForAttr(a)
	r.RespondRattach(&qid)
}

func (f *fs) Stat(r *srv.Req) {
	st := r.Fid.Aux.(*fidState)
	dir, err := f.dirFor(st.ino)
	if err != nil {
		r.RespondError(err)
		return
	}
	r.RespondRstat(dir)
}

func (f *fs) dirFor(ino uint64) (*p.Dir, error) {
	a, err := f.server.Getattr(ino)
	if err != nil {
		return nil, err
	}
	dir := &p.Dir{}
	dir.Qid = qidForAttr(a)
	dir.Mode = uint32(a.Mode)
	if a.Filetype == FiletypeDirectory {
		dir.Mode |= p.DMDIR
	}
	dir.Length = uint64(a.Size)
	dir.Mtime = uint32(a.Mtime)
	dir.Atime = uint32(a.Atime)
	dir.Uid = "none"
	dir.Gid = "none"
	return dir, nil
}

func qidForAttr(a Attr) (qid p.Qid) {
	qid.Path = a.Inode
	if a.Filetype == FiletypeDirectory {
		qid.Type = p.QTDIR
	}
	return
}

func (f *fs) Wstat(r *srv.Req)  { r.RespondError(srv.Eperm) }
func (f *fs) Create(r *srv.Req) { r.RespondError(srv.Eperm) }
func (f *fs) Write(r *srv.Req)  { r.RespondError(srv.Eperm) }
func (f *fs) Remove(r *srv.Req) { r.RespondError(srv.Eperm) }

func (f *fs) Open(r *srv.Req) {
	st := r.Fid.Aux.(*fidState)
	a, err := f.server.Getattr(st.ino)
	if err != nil {
		r.RespondError(err)
		return
	}
	if r.Tc.Mode&(p.OWRITE|p.ORDWR|p.OTRUNC|p.ORCLOSE) != 0 {
		r.RespondError(srv.Eperm)
		return
	}
	if a.Filetype == FiletypeDirectory {
		if _, err := f.server.Opendir(st.ino); err != nil {
			r.RespondError(err)
			return
		}
		st.dirOpen = true
	} else {
		fd, err := f.server.Open(st.ino)
		if err != nil {
			r.RespondError(err)
			return
		}
		st.blobFd = fd
		st.blobOpen = true
	}
	qid := qidForAttr(a)
	r.RespondRopen(&qid, 0)
}

func (f *fs) Read(r *srv.Req) {
	if err := p.InitRread(r.Rc, r.Tc.Count); err != nil {
		r.RespondError(err)
		return
	}
	st := r.Fid.Aux.(*fidState)
	var n int
	var err error
	if st.dirOpen {
		n, err = f.server.Readdir(st.ino, r.Rc.Data[:r.Tc.Count], int(r.Tc.Offset))
	} else {
		var data []byte
		data, err = f.server.Read(st.blobFd, int64(r.Tc.Offset), int(r.Tc.Count))
		if err == nil {
			n = copy(r.Rc.Data, data)
		}
	}
	if err != nil {
		r.RespondError(err)
		return
	}
	p.SetRreadCount(r.Rc, uint32(n))
	r.Respond()
}

func (f *fs) Clunk(r *srv.Req) {
	st := r.Fid.Aux.(*fidState)
	if st.blobOpen {
		if err := f.server.Release(st.blobFd); err != nil {
			log.WithError(err).Warn("vfs: releasing blob handle on clunk")
		}
	}
	r.RespondRclunk()
}

func (f *fs) Walk(r *srv.Req) {
	if len(r.Tc.Wname) == 0 {
		f.clone(r)
		return
	}
	st := r.Fid.Aux.(*fidState)
	cur := st.ino
	var qids []p.Qid
	for _, name := range r.Tc.Wname {
		ino, err := f.server.Lookup(cur, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				break
			}
			r.RespondError(err)
			return
		}
		cur = ino
		a, err := f.server.Getattr(ino)
		if err != nil {
			r.RespondError(err)
			return
		}
		qids = append(qids, qidForAttr(a))
	}
	if len(qids) == 0 {
		r.RespondError(srv.Enoent)
		return
	}
	if len(qids) == len(r.Tc.Wname) {
		r.Newfid.Aux = &fidState{ino: cur}
	}
	r.RespondRwalk(qids)
}

func (f *fs) clone(r *srv.Req) {
	st := r.Fid.Aux.(*fidState)
	r.Newfid.Aux = &fidState{ino: st.ino}
	r.RespondRwalk(nil)
}

// Serve starts a 9P2000 server exposing s on the given network/address
// (e.g. "unix", "/tmp/satchel.sock", or "tcp", "127.0.0.1:5640") and
// blocks until the listener errors or is closed. The mounting command is
// expected to run this in its own process, per the spec's
// terminate-to-unmount model.
func Serve(s *Server, network, address, id string) error {
	listener, err := netutil.Listen(network, address)
	if err != nil {
		return err
	}
	srvImpl := &srv.Srv{}
	srvImpl.Dotu = false
	srvImpl.Id = id
	if !srvImpl.Start(&fs{server: s}) {
		return errors.New("vfs: go9p srv.Start returned false")
	}
	return srvImpl.StartListener(listener)
}
