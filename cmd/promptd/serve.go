package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"promptd/internal/httpapi"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = os.Getenv("PROMPTD_ADDR")
			}
			if addr != "" {
				opts.cfg.Addr = addr
			}
			return runServe(opts)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8080 (overrides config and PROMPTD_ADDR)")
	return cmd
}

func runServe(o *rootOptions) error {
	gw, eng := buildGateway(o)
	defer eng.Close()

	// Base context canceled on shutdown so in-flight generations stop.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(o.log)
	httpapi.SetCORSOptions(o.cfg.CORSEnabled, o.cfg.CORSOrigins,
		[]string{"GET", "POST", "OPTIONS"}, []string{"Content-Type", "X-Log-Level"})

	mux := httpapi.NewMux(gw)
	srv := &http.Server{Addr: o.cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		o.log.Info().Str("addr", o.cfg.Addr).Str("models_dir", o.cfg.ModelsDir).Msg("promptd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		o.log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
