package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpadp "github.com/EcrTech/FL-sub005/internal/adapter/http"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var noWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the job worker and maintenance cron",
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

			e := httpadp.NewRouter(httpadp.Handlers{
				Health:        httpadp.NewHandler(),
				Applications:  httpadp.NewApplicationHandler(a.applications, log),
				Verifications: httpadp.NewVerificationHandler(a.verification, log),
				Documents:     httpadp.NewDocumentHandler(a.documents, a.esign, log),
				ESign:         httpadp.NewESignHandler(a.esign, log),
				Payments:      httpadp.NewPaymentHandler(a.mandates, a.collections, log),
				Contacts:      httpadp.NewContactHandler(a.imports, log),
				Jobs:          httpadp.NewJobHandler(a.jobs, log),
				Webhooks:      httpadp.NewWebhookHandler(a.applications, a.mandates, a.collections, log),
			}, a.rdb, httpadp.RouterConfig{
				JWTSecret:                 cfg.JWTSecret,
				IdempotencyTTL:            time.Duration(cfg.IdempTTLSecs) * time.Second,
				WebhookSecretUPI:          cfg.WebhookSecretUPI,
				WebhookSecretNACH:         cfg.WebhookSecretNACH,
				WebhookSecretDisbursement: cfg.WebhookSecretDisbursement,
			}, log)

			var wg sync.WaitGroup
			if !noWorker {
				sched, err := a.scheduler()
				if err != nil {
					return err
				}
				sched.Start()
				defer sched.Stop()

				wg.Add(1)
				go func() {
					defer wg.Done()
					a.worker.Run(ctx)
				}()
			}

			errCh := make(chan error, 1)
			go func() {
				addr := ":" + cfg.AppPort
				log.WithField("addr", addr).Info("http: listening")
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					stop()
					wg.Wait()
					return err
				}
			}

			log.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := e.Shutdown(sctx); err != nil {
				log.WithError(err).Warn("http shutdown")
			}
			stop()
			wg.Wait()
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "serve HTTP only; run jobs with the worker command")
	return cmd
}
