package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"storyia/internal/ai"
	"storyia/internal/api"
	"storyia/internal/auth"
	"storyia/internal/logging"
	"storyia/internal/mcp"
	"storyia/internal/metrics"
	"storyia/internal/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, logger, st, err := setup()
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, st.Close(), logger.Sync())
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		aiLogger, closeAILog, err := logging.NewAI(logger, cfg.Log.AIFile)
		if err != nil {
			return err
		}
		defer closeAILog()

		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		aiMetrics, err := metrics.NewAIMetrics(registry)
		if err != nil {
			return err
		}

		services, err := ai.NewServices(ctx, cfg, &http.Client{}, aiLogger, aiMetrics)
		if err != nil {
			return err
		}
		signer := auth.NewSigner(cfg.Cookie)

		mux := http.NewServeMux()
		mux.Handle("GET /metrics", aiMetrics.Handler())
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		mux.Handle("/mcp", mcp.NewMCPServer(st).Handler())
		api.NewHandlers(st, services, cfg, signer, logger).Register(mux)

		// Logging -> Recover -> Auth
		handler := middleware.Logging(logger)(middleware.Recover(logger)(middleware.Auth(signer)(mux)))
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server started", zap.String("addr", cfg.Server.Addr), zap.String("db_driver", cfg.DB.Driver))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
