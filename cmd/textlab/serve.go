package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"textlab/internal/scheduler"
	"textlab/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		// a request may use every retry of a generation
		budget := cfg.Generation.TimeoutDuration()*time.Duration(max(cfg.Generation.Retries, 0)+1) + 30*time.Second
		opts := []server.Option{server.WithHistory(a.store), server.WithWriteTimeout(budget)}

		if a.index != nil {
			opts = append(opts, server.WithSearch(a.index))
			if cfg.Scheduler.Enabled {
				syncer := scheduler.NewSyncer(a.store, a.index, cfg.Scheduler.SyncSchedule)
				if err := syncer.Start(ctx); err != nil {
					return err
				}
			}
		} else if cfg.Scheduler.Enabled {
			log.Warn().Msg("Scheduler enabled but history index is disabled; not scheduling sync")
		}

		return server.New(a.svc, cfg.Server.Addr(), opts...).Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
