package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/contentloom/storyforge/internal/catalog"
	"github.com/contentloom/storyforge/internal/httpserver"
	"github.com/contentloom/storyforge/internal/observability"
	"github.com/contentloom/storyforge/internal/workerpool"
)

var (
	daemonStages []string
	daemonAddr   string
	daemonNoHTTP bool
)

// NewDaemonCmd builds the long-running "daemon" subcommand: starts a
// worker pool polling the given stages and, unless disabled, a small gin
// health server, running until SIGINT/SIGTERM, mirroring the teacher's
// cmd/main.go graceful-shutdown shape.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the worker pool continuously, polling assigned stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context())
		},
	}

	cmd.Flags().StringSliceVar(&daemonStages, "stage", nil, "stage names this daemon polls (repeatable); defaults to all stages_enabled from config, or every stage if unset")
	cmd.Flags().StringVar(&daemonAddr, "http-addr", ":8080", "address for the health/readiness HTTP server")
	cmd.Flags().BoolVar(&daemonNoHTTP, "no-http", false, "disable the health/readiness HTTP server")

	return cmd
}

func runDaemon(parentCtx context.Context) error {
	w, err := wire()
	if err != nil {
		return err
	}
	defer w.log.Sync()

	ctx, stop := signal.NotifyContext(parentCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.Init(ctx, w.log, observability.Config{ServiceName: "storyworker"})
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	stages := daemonStages
	if len(stages) == 0 {
		stages = w.cfg.StagesEnabled
	}
	if len(stages) == 0 {
		stages = catalog.Default().KnownStates()
	}

	pool := workerpool.New(w.dispatcher, w.log, workerpool.Config{
		Stages:           stages,
		Concurrency:      w.cfg.WorkerConcurrency,
		PollInterval:     time.Duration(w.cfg.WorkerPollIntervalMS) * time.Millisecond,
		RetryMaxAttempts: w.cfg.RetryMaxAttempts,
		RetryBaseBackoff: time.Duration(w.cfg.RetryBaseBackoffMS) * time.Millisecond,
	})
	pool.Start(ctx)

	var srv *http.Server
	if !daemonNoHTTP {
		engine := httpserver.New(httpserver.Config{DB: w.db, Log: w.log})
		srv = &http.Server{Addr: daemonAddr, Handler: engine}
		go func() {
			w.log.Info("health server listening", "addr", daemonAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				w.log.Error("health server failed", "error", err)
			}
		}()
	}

	w.log.Info("daemon running", "stages", stages, "concurrency", w.cfg.WorkerConcurrency)
	<-ctx.Done()
	w.log.Info("shutdown signal received, draining")

	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}

	return nil
}
