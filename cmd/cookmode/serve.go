package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/cookmode/internal/alert"
	"github.com/hammamikhairi/cookmode/internal/metrics"
	"github.com/hammamikhairi/cookmode/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cook-mode HTTP and websocket API",
	Long: `The serve command runs one cooking session per user behind an HTTP API.
Browsers stream transcripts and gestures over /ws and receive step, timer
and speech frames back.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(false)
		if err != nil {
			return err
		}
		defer a.close()
		return serve(cmd.Context(), a)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides http.addr)")
}

func serve(ctx context.Context, a *app) error {
	settings, err := serverSettings(a.cfg)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithMetrics(metrics.New()),
		server.WithDefaultUser(a.cfg.UserID),
		server.WithSettings(settings),
	}
	if a.cfg.Behavior.DesktopNotify {
		opts = append(opts, server.WithAlerter(alert.NewDesktop(true, a.log.With("alert"))))
	}
	srv, err := server.New(a.backend, a.recipes, a.log.With("server"), opts...)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	defer srv.Close()

	addr := a.cfg.HTTP.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening on %s (storage=%s)", addr, a.cfg.Storage.Driver)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
