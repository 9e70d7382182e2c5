package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run background jobs and the maintenance cron without the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched, err := a.scheduler()
			if err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			log.WithField("concurrency", cfg.WorkerConcurrency).Info("worker: started")
			a.worker.Run(ctx)
			log.Info("worker: stopped")
			return nil
		},
	}
}
