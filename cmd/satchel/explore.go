package main

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kesh-io/satchel/object"
	"github.com/kesh-io/satchel/vfs"
)

func newExploreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore <name>",
		Short: "Interactively browse a resolved tree (ls/cd/cat/stat)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := p.Resolve(args[0])
			if err != nil {
				return errors.Wrap(err, "satchel: explore")
			}
			server, err := vfs.NewServer(p, ref)
			if err != nil {
				return errors.Wrap(err, "satchel: explore")
			}
			return runExplorer(server, ref, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	return cmd
}

// explorer is a minimal REPL over a resolved tree: listing and path
// resolution reuse the pool's own name resolver (sub-path grammar), and
// reading a blob's content or its POSIX-ish attributes goes through the
// vfs.Server that a "mount" of this same tree would use, so "cat" and
// "stat" exercise the exact read path a 9P client would.
type explorer struct {
	server *vfs.Server
	root   object.Ref
	cwd    string
	out    io.Writer
}

func runExplorer(server *vfs.Server, root object.Ref, in io.Reader, out io.Writer) error {
	e := &explorer{server: server, root: root, cwd: "/", out: out}
	scanner := bufio.NewScanner(in)
	fmt.Fprintf(out, "%s> ", e.cwd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		if line != "" {
			if err := e.dispatch(line); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
		fmt.Fprintf(out, "%s> ", e.cwd)
	}
	return scanner.Err()
}

func (e *explorer) dispatch(line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "ls":
		return e.ls()
	case "cd":
		if len(args) != 1 {
			return errors.New("usage: cd <path>")
		}
		return e.cd(args[0])
	case "cat":
		if len(args) != 1 {
			return errors.New("usage: cat <path>")
		}
		return e.cat(args[0])
	case "stat":
		if len(args) != 1 {
			return errors.New("usage: stat <path>")
		}
		return e.stat(args[0])
	default:
		return errors.Errorf("unknown command %q (try ls, cd, cat, stat, quit)", cmd)
	}
}

// joinPath resolves p relative to the current directory, absolute paths
// starting over from the explored root.
func (e *explorer) joinPath(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Clean(path.Join(e.cwd, p))
}

// resolve returns the ref that full (a slash path rooted at e.root)
// names, via the pool's own sub-path resolver grammar.
func (e *explorer) resolve(full string) (object.Ref, error) {
	expr := string(e.root)
	if trimmed := strings.Trim(full, "/"); trimmed != "" {
		expr += ":" + trimmed
	}
	return p.Resolve(expr)
}

func (e *explorer) ls() error {
	ref, err := e.resolve(e.cwd)
	if err != nil {
		return err
	}
	tree, err := p.GetTree(ref)
	if err != nil {
		return err
	}
	for _, named := range tree.Items() {
		printEntry(e.out, named.Name, named.Item)
	}
	return nil
}

func (e *explorer) cd(arg string) error {
	full := e.joinPath(arg)
	ref, err := e.resolve(full)
	if err != nil {
		return err
	}
	if _, err := p.GetTree(ref); err != nil {
		return errors.Errorf("%s is not a directory", arg)
	}
	e.cwd = full
	return nil
}

func (e *explorer) inodeFor(arg string) (uint64, error) {
	full := e.joinPath(arg)
	ino := vfs.RootInode
	for _, comp := range strings.Split(full, "/") {
		if comp == "" {
			continue
		}
		next, err := e.server.Lookup(ino, comp)
		if err != nil {
			return 0, err
		}
		ino = next
	}
	return ino, nil
}

func (e *explorer) cat(arg string) error {
	ino, err := e.inodeFor(arg)
	if err != nil {
		return err
	}
	fd, err := e.server.Open(ino)
	if err != nil {
		return err
	}
	defer func() { _ = e.server.Release(fd) }()
	var offset int64
	for {
		chunk, err := e.server.Read(fd, offset, 32*1024)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}
		if _, err := e.out.Write(chunk); err != nil {
			return err
		}
		offset += int64(len(chunk))
	}
}

func (e *explorer) stat(arg string) error {
	ino, err := e.inodeFor(arg)
	if err != nil {
		return err
	}
	attr, err := e.server.Getattr(ino)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "inode=%d filetype=%d size=%d mode=%o\n", attr.Inode, attr.Filetype, attr.Size, attr.Mode)
	return nil
}
