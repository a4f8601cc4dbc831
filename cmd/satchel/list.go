package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kesh-io/satchel/object"
)

type labelEntry struct {
	name   string
	ref    object.Ref
	backup *object.Backup
}

func newListCmd() *cobra.Command {
	var (
		since   string
		until   string
		orderBy string
	)
	cmd := &cobra.Command{
		Use:   "list [remote]",
		Short: "List backup labels, optionally restricted to one remote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var prefix string
			if len(args) == 1 {
				prefix = args[0] + "/"
			}

			var sinceT, untilT time.Time
			var err error
			if since != "" {
				if sinceT, err = time.Parse(time.RFC3339, since); err != nil {
					return errors.Wrapf(err, "satchel: parsing --since %q", since)
				}
			}
			if until != "" {
				if untilT, err = time.Parse(time.RFC3339, until); err != nil {
					return errors.Wrapf(err, "satchel: parsing --until %q", until)
				}
			}

			names, err := p.ListLabels()
			if err != nil {
				return err
			}
			var entries []labelEntry
			for name := range names {
				if prefix != "" && !strings.HasPrefix(name, prefix) {
					continue
				}
				if strings.HasSuffix(name, "/latest") {
					continue
				}
				ref, err := p.ReadLabel(name)
				if err != nil {
					continue
				}
				b, err := p.GetBackup(ref)
				if err != nil {
					continue
				}
				if !sinceT.IsZero() && b.Start.Time.Before(sinceT) {
					continue
				}
				if !untilT.IsZero() && b.Start.Time.After(untilT) {
					continue
				}
				entries = append(entries, labelEntry{name: name, ref: ref, backup: b})
			}

			sortEntries(entries, orderBy)

			w := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\n", e.name, e.ref, formatTime(e.backup.Start), e.backup.Duration())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&since, "since", "s", "", "only list backups started at or after this RFC3339 time")
	cmd.Flags().StringVarP(&until, "until", "u", "", "only list backups started at or before this RFC3339 time")
	cmd.Flags().StringVarP(&orderBy, "order-by", "o", "date", "sort order: name, date, or duration")
	return cmd
}

func sortEntries(entries []labelEntry, orderBy string) {
	switch orderBy {
	case "name":
		sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	case "duration":
		sort.Slice(entries, func(i, j int) bool { return entries[i].backup.Duration() < entries[j].backup.Duration() })
	default:
		sort.Slice(entries, func(i, j int) bool { return entries[i].backup.Start.Time.Before(entries[j].backup.Start.Time) })
	}
}
