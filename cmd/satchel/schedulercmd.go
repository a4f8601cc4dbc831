package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/google/gops/agent"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kesh-io/satchel/scheduler"
)

func newSchedulerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run the long-lived scheduler, driving periodic backups for every enabled remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No ShutdownCleanup: a long-running daemon should leave the
			// diagnostics endpoint reachable until the process actually
			// exits, rather than tearing it down on the first signal.
			if err := agent.Listen(agent.Options{}); err != nil {
				log.WithError(err).Warn("scheduler: gops agent did not start")
			}
			defer agent.Close()

			var remotes []scheduler.Remote
			names := make([]string, 0, len(cfg.Remotes))
			for name := range cfg.Remotes {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				rc := cfg.Remotes[name]
				if !rc.Schedule.Enabled {
					continue
				}
				method, _, err := remoteFor(cfg, name)
				if err != nil {
					return err
				}
				remotes = append(remotes, scheduler.Remote{
					Name:            name,
					Method:          method,
					IntervalMinutes: scheduleIntervalMinutes(rc),
				})
			}

			s := scheduler.New(p, remotes, cfg.Scheduler.Workers, loopInterval(cfg))

			ctx, cancel := context.WithCancel(context.Background())
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sig
				log.Info("scheduler: signal received, shutting down")
				cancel()
			}()

			err := s.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	return cmd
}
