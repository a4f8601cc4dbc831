package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newRemotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remotes",
		Short: "List configured remotes and their scheduling status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := make([]string, 0, len(cfg.Remotes))
			for name := range cfg.Remotes {
				names = append(names, name)
			}
			sort.Strings(names)
			w := cmd.OutOrStdout()
			for _, name := range names {
				rc := cfg.Remotes[name]
				status := "unscheduled"
				if rc.Schedule.Enabled {
					status = fmt.Sprintf("every %dm", scheduleIntervalMinutes(rc))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, rc.Method, status)
			}
			return nil
		},
	}
	return cmd
}
