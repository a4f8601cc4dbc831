package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kesh-io/satchel/diffutil"
)

func newDiffCmd() *cobra.Command {
	var (
		namesOnly    bool
		contextLines int
	)
	cmd := &cobra.Command{
		Use:   "diff <ref> <name>",
		Short: "Unified diff between two resolved trees",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			aRef, err := p.Resolve(args[0])
			if err != nil {
				return errors.Wrap(err, "satchel: diff")
			}
			bRef, err := p.Resolve(args[1])
			if err != nil {
				return errors.Wrap(err, "satchel: diff")
			}
			return diffutil.Trees(p, aRef, bRef,
				diffutil.Output(cmd.OutOrStdout()),
				diffutil.NamesOnly(namesOnly),
				diffutil.ContextLines(contextLines))
		},
	}
	cmd.Flags().BoolVar(&namesOnly, "names-only", false, "list only the paths that changed")
	cmd.Flags().IntVar(&contextLines, "context", 3, "number of unified-diff context lines")
	return cmd
}
