package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGCCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Reclaim pool objects unreachable from any label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reachable, err := p.Mark()
			if err != nil {
				return err
			}
			result, err := p.Sweep(reachable, dryRun)
			if err != nil {
				return err
			}
			verb := "deleted"
			if result.DryRun {
				verb = "would delete"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d object(s), %d byte(s) reclaimed\n", verb, result.Deleted, result.ReclaimedSize)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "r", false, "report what would be deleted without deleting")
	return cmd
}
