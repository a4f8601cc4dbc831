package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Stream every object in the pool and verify its hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := p.Check()
			if err != nil {
				return err
			}
			var total, bad int
			for r := range results {
				total++
				if r.Err != nil {
					bad++
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", r.Ref, r.Err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked %d object(s), %d failure(s)\n", total, bad)
			if bad > 0 {
				return errors.Errorf("satchel: check found %d integrity failure(s)", bad)
			}
			return nil
		},
	}
	return cmd
}
