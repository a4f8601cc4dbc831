package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kesh-io/satchel/backup"
	"github.com/kesh-io/satchel/object"
	"github.com/kesh-io/satchel/pool"
)

func newBackupCmd() *cobra.Command {
	var (
		overwrite  bool
		parentName string
		standalone bool
	)
	cmd := &cobra.Command{
		Use:   "backup <remote> [<name>]",
		Short: "Walk a configured remote and ingest it as a new backup",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			remoteName := args[0]
			label := time.Now().Format("2006-01-02_15-04-05")
			if len(args) == 2 {
				label = args[1]
			}

			method, _, err := remoteFor(cfg, remoteName)
			if err != nil {
				return err
			}

			parent, err := resolveParent(p, remoteName, parentName, standalone)
			if err != nil {
				return err
			}

			w := &backup.Walker{Pool: p, Remote: method}
			ref, record, err := w.Run(parent)
			if err != nil {
				return errors.Wrap(err, "satchel: backup")
			}

			fullLabel := remoteName + "/" + label
			if err := p.SetLabel(fullLabel, ref, overwrite); err != nil {
				return err
			}
			if err := p.SetLabel(remoteName+"/latest", ref, true); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%.1fs, %d error(s))\n", fullLabel, ref, record.Duration(), len(record.Errors))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&overwrite, "overwrite", "o", false, "overwrite the label if it already exists")
	cmd.Flags().StringVarP(&parentName, "parent", "p", "", "explicit parent backup name or ref (default: <remote>/latest)")
	cmd.Flags().BoolVarP(&standalone, "standalone", "s", false, "do not chain to a parent backup, even if one exists")
	return cmd
}

// resolveParent determines the parent backup ref for a new backup:
// --standalone forces none (even alongside --parent), then an explicit
// --parent is used, and otherwise <remote>/latest is used if present.
func resolveParent(p *pool.Pool, remoteName, parentName string, standalone bool) (object.Ref, error) {
	if standalone {
		return "", nil
	}
	if parentName != "" {
		ref, err := p.Resolve(resolvedName(remoteName, parentName))
		if err != nil {
			return "", errors.Wrap(err, "satchel: resolving --parent")
		}
		return ref, nil
	}
	ref, err := p.Resolve(remoteName + "/latest")
	if err != nil {
		if errors.Is(err, pool.ErrResolve) {
			log.WithField("remote", remoteName).Debug("backup: no prior backup, starting fresh")
			return "", nil
		}
		return "", err
	}
	return ref, nil
}
