package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/amkoya-stack/cycles-sub000/internal/scheduler"
	"github.com/spf13/cobra"
)

func sweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "sweep <" + strings.Join(scheduler.Names, "|") + "|all>",
		Short:     "Run one sweep immediately and exit",
		Args:      cobra.ExactArgs(1),
		ValidArgs: append(slices.Clone(scheduler.Names), "all"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			names := []string{args[0]}
			if args[0] == "all" {
				names = scheduler.Names
			} else if !slices.Contains(scheduler.Names, args[0]) {
				return fmt.Errorf("unknown sweep %q", args[0])
			}

			logger := newLogger(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					logger.Error("Cleanup failed", slog.String("error", err.Error()))
				}
			}()

			for _, name := range names {
				summary, err := a.runner.Run(ctx, name)
				if err != nil {
					return fmt.Errorf("sweep %s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: claimed=%d succeeded=%d failed=%d skipped=%d scheduled=%d\n",
					name, summary.Claimed, summary.Succeeded, summary.Failed, summary.Skipped, summary.Scheduled)
			}
			return nil
		},
	}
	return cmd
}
