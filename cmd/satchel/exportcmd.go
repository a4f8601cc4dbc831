package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kesh-io/satchel/export"
)

// formatFlag is a pflag.Value restricting --format to export's known
// formats, so an unrecognized value is rejected at flag-parsing time
// rather than surfacing as an export.ErrUnsupportedFormat mid-run.
type formatFlag export.Format

func (f *formatFlag) String() string { return string(*f) }
func (f *formatFlag) Type() string   { return "format" }
func (f *formatFlag) Set(v string) error {
	switch export.Format(v) {
	case export.FormatDir, export.FormatTar, export.FormatTarGz, export.FormatTarBz2, export.FormatTarXz:
		*f = formatFlag(v)
		return nil
	default:
		return errors.Errorf("satchel: unknown format %q", v)
	}
}

var _ pflag.Value = (*formatFlag)(nil)

func newExportCmd() *cobra.Command {
	format := formatFlag(export.FormatDir)
	cmd := &cobra.Command{
		Use:   "export <remote> <name> <output>",
		Short: "Materialize a resolved backup as a directory or tar archive",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			remoteName, name, output := args[0], args[1], args[2]
			ref, err := p.Resolve(resolvedName(remoteName, name))
			if err != nil {
				return errors.Wrap(err, "satchel: export")
			}
			if err := export.Tree(p, ref, export.Format(format), output); err != nil {
				return errors.Wrap(err, "satchel: export")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", name, output)
			return nil
		},
	}
	cmd.Flags().VarP(&format, "format", "f", "output format: dir, tar, targz, tarbz2, tarxz")
	return cmd
}
