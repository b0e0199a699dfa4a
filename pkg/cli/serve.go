package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/packweld/pkg/cli/config"
	controller "github.com/m-mizutani/packweld/pkg/controller/http"
	"github.com/m-mizutani/packweld/pkg/domain/interfaces"
	"github.com/m-mizutani/packweld/pkg/usecase"
	"github.com/m-mizutani/packweld/pkg/utils/async"
	"github.com/m-mizutani/packweld/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		flags     weldFlags
	)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   append(serverCfg.Flags(), flags.Flags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			logger.Info("Starting packweld server",
				slog.String("addr", serverCfg.Addr),
				slog.String("temp_root", flags.workspace.TempRoot),
			)

			// Create use cases
			var pending async.Group
			weldUC, release, err := flags.newWeldUseCase(ctx, &pending)
			if err != nil {
				return err
			}
			defer release()
			jobUC := usecase.NewJob(flags.workspace.TempRoot)

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				weldUC,
				jobUC,
				controller.WithAddr(serverCfg.Addr),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			sweepCtx, stopSweep := context.WithCancel(ctx)
			sweepDone := make(chan struct{})
			go func() {
				defer close(sweepDone)
				runJobSweeper(sweepCtx, jobUC, serverCfg.JobTTL)
			}()

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			stopSweep()
			<-sweepDone

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			if err := pending.Wait(shutdownCtx); err != nil {
				logger.Warn("Pending result publishing did not finish", slog.Any("error", err))
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

// runJobSweeper expires job directories older than ttl every ttl/2 until ctx
// is done. A non-positive ttl disables it.
func runJobSweeper(ctx context.Context, jobUC interfaces.JobUseCase, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(max(ttl/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := jobUC.Expire(ctx, ttl); err != nil && ctx.Err() == nil {
				logging.From(ctx).Warn("Failed to expire jobs", slog.Any("error", err))
			}
		}
	}
}
