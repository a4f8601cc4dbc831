package main

import (
	"fmt"
	"path"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kesh-io/satchel/backup"
)

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <remote> <name> [path]",
		Short: "Materialize a backup's tree back onto a remote",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			remoteName, name := args[0], args[1]
			subPath := "/"
			if len(args) == 3 {
				subPath = args[2]
			}

			method, _, err := remoteFor(cfg, remoteName)
			if err != nil {
				return err
			}
			ref, err := p.Resolve(resolvedName(remoteName, name))
			if err != nil {
				return errors.Wrap(err, "satchel: restore")
			}
			tree, err := p.GetTree(ref)
			if err != nil {
				return err
			}
			if subPath != "/" && subPath != "" {
				sub, err := descend(tree, subPath)
				if err != nil {
					return err
				}
				subTree, err := p.GetTree(sub.Ref())
				if err != nil {
					return err
				}
				tree = subTree
			}

			r := &backup.Restorer{Pool: p, Remote: method}
			if err := r.Run(tree, path.Clean(subPath)); err != nil {
				return errors.Wrap(err, "satchel: restore")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s to remote %q\n", name, remoteName)
			return nil
		},
	}
	return cmd
}
