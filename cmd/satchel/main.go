// Command satchel is the operator CLI for the backup engine: it drives
// one-off backups and restores, garbage collection, integrity checks,
// exports, diffs, and a read-only mount, plus the long-running
// scheduler. Each subcommand returns a non-zero exit status on error,
// following cobra's RunE convention.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kesh-io/satchel/config"
	"github.com/kesh-io/satchel/pool"
)

var (
	basePath   string
	configPath string
	logLevel   string

	cfg *config.C
	p   *pool.Pool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "satchel",
		Short:         "Content-addressed, deduplicating backup engine",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the configuration file")
	var levels []string
	for _, l := range log.AllLevels {
		levels = append(levels, l.String())
	}
	root.PersistentFlags().StringVar(&logLevel, "verbosity", "info", "log level, one of "+strings.Join(levels, ", "))

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		ll, err := log.ParseLevel(logLevel)
		if err != nil {
			return errors.Wrapf(err, "parsing log level %q", logLevel)
		}
		log.SetLevel(ll)
		log.SetOutput(os.Stderr)

		if cmd.Name() == "init" {
			return nil
		}
		cfg, err = config.Load(configPath)
		if err != nil {
			return errors.Wrapf(err, "loading configuration from %q", configPath)
		}
		idx, err := maybeOpenIndex(cfg)
		if err != nil {
			return err
		}
		p, err = pool.Open(cfg.Storage.Location)
		if err != nil {
			return errors.Wrap(err, "opening pool")
		}
		if idx != nil {
			p.UseIndex(idx)
		}
		return nil
	}

	root.AddCommand(
		newInitCmd(),
		newBackupCmd(),
		newCheckCmd(),
		newGCCmd(),
		newListCmd(),
		newRemotesCmd(),
		newShowBackupCmd(),
		newShowTreeCmd(),
		newTreeCmd(),
		newRestoreCmd(),
		newExportCmd(),
		newDiffCmd(),
		newMountCmd(),
		newExploreCmd(),
		newSchedulerCmd(),
	)
	return root
}

func defaultConfigPath() string {
	return config.DefaultBaseDirectoryPath + "/config.yaml"
}

func maybeOpenIndex(c *config.C) (*pool.Index, error) {
	if c.Storage.Index == "" {
		return nil, nil
	}
	return pool.OpenIndex(c.Storage.Index)
}

func newInitCmd() *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if location == "" {
				return errors.New("init: --location is required")
			}
			return config.Initialize(configPath, location)
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "pool storage directory to create")
	return cmd
}

func exitf(format string, a ...interface{}) error {
	return fmt.Errorf(format, a...)
}
