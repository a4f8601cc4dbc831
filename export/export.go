// Package export materializes a resolved tree onto a destination as a
// plain directory, or as a tar archive, optionally gzip-compressed. It is
// a straightforward consumer of the pool's tree walk, not a core engine
// concern.
package export

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/kesh-io/satchel/object"
	"github.com/kesh-io/satchel/pool"
)

// Format selects the output container.
type Format string

const (
	FormatDir    Format = "dir"
	FormatTar    Format = "tar"
	FormatTarGz  Format = "targz"
	FormatTarBz2 Format = "tarbz2"
	FormatTarXz  Format = "tarxz"
)

// ErrUnsupportedFormat is returned for a recognized-but-unimplemented
// format: tarbz2 and tarxz have no compressor in this codebase's
// dependency set (no bzip2 writer exists in the standard library, and
// none of the available third-party packages supply one either).
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// Tree writes the tree rooted at ref to outputPath in the given format.
func Tree(p *pool.Pool, ref object.Ref, format Format, outputPath string) error {
	tree, err := p.GetTree(ref)
	if err != nil {
		return err
	}
	switch format {
	case FormatDir, "":
		return exportDir(p, tree, outputPath)
	case FormatTar:
		f, err := os.Create(outputPath)
		if err != nil {
			return errors.Wrapf(err, "export: creating %q", outputPath)
		}
		defer func() { _ = f.Close() }()
		return exportTar(p, tree, f)
	case FormatTarGz:
		f, err := os.Create(outputPath)
		if err != nil {
			return errors.Wrapf(err, "export: creating %q", outputPath)
		}
		defer func() { _ = f.Close() }()
		gz := gzip.NewWriter(f)
		defer func() { _ = gz.Close() }()
		return exportTar(p, tree, gz)
	case FormatTarBz2, FormatTarXz:
		return errors.Wrapf(ErrUnsupportedFormat, "%s", format)
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "%s", format)
	}
}

func exportDir(p *pool.Pool, tree *object.Tree, root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return errors.Wrapf(err, "export: creating %q", root)
	}
	for _, named := range tree.Items() {
		full := filepath.Join(root, named.Name)
		if err := exportDirItem(p, full, named.Item); err != nil {
			return errors.Wrapf(err, "export: %q", full)
		}
	}
	return nil
}

func exportDirItem(p *pool.Pool, full string, item object.Item) error {
	switch item.Type() {
	case "tree":
		sub, err := p.GetTree(item.Ref())
		if err != nil {
			return err
		}
		return exportDir(p, sub, full)
	case "blob":
		return exportDirBlob(p, full, item)
	default:
		if item.Filetype() == "link" {
			return os.Symlink(string(item.Link()), full)
		}
		// Fifos and any other non-pool-referencing entries are skipped:
		// there is nothing to materialize for them outside their
		// metadata, which a plain directory export does not carry.
		return nil
	}
}

func exportDirBlob(p *pool.Pool, full string, item object.Item) error {
	blob, err := p.GetBlob(item.Ref())
	if err != nil {
		return err
	}
	defer func() { _ = blob.Close() }()
	mode := os.FileMode(0644)
	if m := item.Mode(); m != 0 {
		mode = os.FileMode(m)
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = io.Copy(f, blob.Reader)
	return err
}

func exportTar(p *pool.Pool, tree *object.Tree, w io.Writer) error {
	tw := tar.NewWriter(w)
	if err := writeTarTree(p, tw, "", tree); err != nil {
		_ = tw.Close()
		return err
	}
	return tw.Close()
}

func writeTarTree(p *pool.Pool, tw *tar.Writer, prefix string, tree *object.Tree) error {
	for _, named := range tree.Items() {
		full := filepath.Join(prefix, named.Name)
		if err := writeTarItem(p, tw, full, named.Item); err != nil {
			return errors.Wrapf(err, "export: %q", full)
		}
	}
	return nil
}

func writeTarItem(p *pool.Pool, tw *tar.Writer, full string, item object.Item) error {
	switch item.Type() {
	case "tree":
		hdr := &tar.Header{Name: full + "/", Typeflag: tar.TypeDir, Mode: modeOf(item, 0755)}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		sub, err := p.GetTree(item.Ref())
		if err != nil {
			return err
		}
		return writeTarTree(p, tw, full, sub)
	case "blob":
		size, err := p.Size(item.Ref())
		if err != nil {
			return err
		}
		hdr := &tar.Header{Name: full, Typeflag: tar.TypeReg, Mode: modeOf(item, 0644), Size: size}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		blob, err := p.GetBlob(item.Ref())
		if err != nil {
			return err
		}
		defer func() { _ = blob.Close() }()
		_, err = io.Copy(tw, blob.Reader)
		return err
	default:
		if item.Filetype() == "link" {
			hdr := &tar.Header{Name: full, Typeflag: tar.TypeSymlink, Linkname: string(item.Link()), Mode: modeOf(item, 0777)}
			return tw.WriteHeader(hdr)
		}
		return nil
	}
}

func modeOf(item object.Item, fallback int64) int64 {
	if m := item.Mode(); m != 0 {
		return m
	}
	return fallback
}
