package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kesh-io/satchel/vfs"
)

func newMountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <name> <mountpoint>",
		Short: "Serve a resolved tree read-only over 9P at a unix socket",
		Long: "mount resolves name to a tree and serves it over 9P2000 on a unix\n" +
			"domain socket at <mountpoint>.socket. This process holds the\n" +
			"listener for the lifetime of the mount: attach and detach it with\n" +
			"the platform's 9P client, e.g.\n\n" +
			"  mount -t 9p -o trans=unix,uname=$USER <mountpoint>.socket <mountpoint>\n\n" +
			"and terminate this command (SIGINT/SIGTERM) to tear the mount down.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := agent.Listen(agent.Options{}); err != nil {
				log.WithError(err).Warn("mount: gops agent did not start")
			}
			defer agent.Close()

			name, mountpoint := args[0], args[1]
			ref, err := p.Resolve(name)
			if err != nil {
				return errors.Wrap(err, "satchel: mount")
			}
			server, err := vfs.NewServer(p, ref)
			if err != nil {
				return errors.Wrap(err, "satchel: mount")
			}

			socket := mountpoint + ".socket"
			_ = os.Remove(socket)
			serveErr := make(chan error, 1)
			go func() { serveErr <- vfs.Serve(server, "unix", socket, "satchel-mount") }()
			defer func() { _ = os.Remove(socket) }()

			fmt.Fprintf(cmd.OutOrStdout(), "serving %q at %s\nmount -t 9p -o trans=unix,uname=$USER %s %s\n", name, socket, socket, mountpoint)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			select {
			case <-sig:
				log.Info("mount: signal received, shutting down")
				return nil
			case err := <-serveErr:
				return errors.Wrap(err, "satchel: mount")
			}
		},
	}
	return cmd
}
