package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"checkoutsdk/internal/config"
	"checkoutsdk/internal/connector"
	"checkoutsdk/internal/httpapi"
	"checkoutsdk/internal/manager"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the widget bridge daemon",
		Example: "  checkoutd serve --config checkoutd.yaml\n  CHECKOUTD_HOST_APP_NAME=Shop checkoutd serve --addr :9090",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, os.Getenv)
			if err != nil {
				return err
			}
			log, closer, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, log, nil)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", defaultAddr, "HTTP listen address, e.g. :8080 (defaults CHECKOUTD_ADDR)")
	return cmd
}

// runServer serves the bridge daemon until ctx is done, then drains HTTP
// and closes every widget session. ready, when set, receives the bound
// address.
func runServer(ctx context.Context, cfg config.Config, log zerolog.Logger, ready func(net.Addr)) error {
	bridge := connector.NewBridge(log.With().Str("component", "bridge").Logger())
	mgr := manager.New(manager.Config{
		Widget:       cfg.Widget,
		Viewport:     cfg.Viewport,
		HostURL:      cfg.HostURL,
		PollInterval: cfg.PollInterval(),
		MaxSessions:  cfg.MaxSessions,
		Bridge:       bridge,
		Log:          log.With().Str("component", "sessions").Logger(),
		Context:      ctx,
	})

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetRequestLogLevel(cfg.LogLevel)
	httpapi.SetAllowedOrigins(cfg.AllowedOrigins)
	httpapi.SetBaseContext(ctx)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	log.Info().Str("addr", ln.Addr().String()).Str("host_url", cfg.HostURL).Msg("checkoutd listening")
	if ready != nil {
		ready(ln.Addr())
	}

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := mgr.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("session shutdown error")
	}
	log.Info().Msg("checkoutd stopped")
	return serveErr
}
