package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kesh-io/satchel/object"
)

func newShowBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-backup <name>",
		Short: "Print a backup's metadata: root, parent, stats and errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := p.Resolve(args[0])
			if err != nil {
				return errors.Wrap(err, "satchel: show-backup")
			}
			b, err := p.GetBackup(ref)
			if err != nil {
				return errors.Wrap(err, "satchel: show-backup")
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "root:     %s\n", b.Root)
			if b.Parent != "" {
				fmt.Fprintf(w, "parent:   %s\n", b.Parent)
			}
			fmt.Fprintf(w, "start:    %s\n", formatTime(b.Start))
			fmt.Fprintf(w, "end:      %s\n", formatTime(b.End))
			fmt.Fprintf(w, "duration: %.1fs\n", b.Duration())

			if len(b.Stats) > 0 {
				fmt.Fprintln(w, "stats:")
				keys := sortedKeys(b.Stats)
				for _, k := range keys {
					fmt.Fprintf(w, "  %s: %d\n", k, b.Stats[k])
				}
			}
			if len(b.Errors) > 0 {
				fmt.Fprintln(w, "errors:")
				for _, k := range sortedErrorKeys(b.Errors) {
					fmt.Fprintf(w, "  %s: %s\n", k, b.Errors[k])
				}
			}
			return nil
		},
	}
	return cmd
}

func newShowTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-tree <name>",
		Short: "List the immediate entries of a resolved tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := p.Resolve(args[0])
			if err != nil {
				return errors.Wrap(err, "satchel: show-tree")
			}
			tree, err := p.GetTree(ref)
			if err != nil {
				return errors.Wrap(err, "satchel: show-tree")
			}
			w := cmd.OutOrStdout()
			for _, named := range tree.Items() {
				printEntry(w, named.Name, named.Item)
			}
			return nil
		},
	}
	return cmd
}

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <name>",
		Short: "Recursively print a resolved tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := p.Resolve(args[0])
			if err != nil {
				return errors.Wrap(err, "satchel: tree")
			}
			tree, err := p.GetTree(ref)
			if err != nil {
				return errors.Wrap(err, "satchel: tree")
			}
			return printTree(cmd.OutOrStdout(), tree, "")
		},
	}
	return cmd
}

func printTree(w io.Writer, tree *object.Tree, indent string) error {
	for _, named := range tree.Items() {
		printEntryIndented(w, indent, named.Name, named.Item)
		if named.Item.Type() == "tree" {
			sub, err := p.GetTree(named.Item.Ref())
			if err != nil {
				return err
			}
			if err := printTree(w, sub, indent+"  "); err != nil {
				return err
			}
		}
	}
	return nil
}

func printEntry(w io.Writer, name string, item object.Item) {
	printEntryIndented(w, "", name, item)
}

func printEntryIndented(w io.Writer, indent, name string, item object.Item) {
	suffix := ""
	if item.Type() == "tree" {
		suffix = "/"
	}
	fmt.Fprintf(w, "%s%s%s\t%s\n", indent, name, suffix, item.Ref())
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedErrorKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
