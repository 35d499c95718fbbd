package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nijaru/swing-analysis/handlers/api"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx)
		},
	}
}

func runServe(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(cfg,
		api.WithAnalysisService(a.service, a.validator),
		api.WithMetrics(a.metrics, a.registry),
		api.WithLogger(a.logger),
	)

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return pkgerrors.Wrap(err, "server error")
		}
		return nil
	case <-sigCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return pkgerrors.Wrap(err, "server shutdown")
	}
	return nil
}
