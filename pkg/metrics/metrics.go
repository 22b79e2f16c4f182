package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "net/http/pprof"

	"github.com/hearthchat/moderation/pkg/env"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

// Readiness probe for /ready; nil means always ready.
type ReadyFunc func(ctx context.Context) error

// Serves /metrics, /version, /ping, /ready and pprof on addr until ctx is cancelled. Cancels the parent when the listener exits.
func RunServer(ctx context.Context, cancel context.CancelFunc, addr string, ready ReadyFunc) error {
	if addr == "" {
		slog.Info("metrics server disabled")
		return nil
	}

	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/version", env.VersionHandler)
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, "OK")
	})
	mux.HandleFunc("/ready", readyHandler(ready))
	// pprof registers on the default mux
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down metrics server", "err", err)
		}
	}()

	slog.Info("metrics server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func readyHandler(ready ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				slog.Warn("readiness check failed", "err", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = fmt.Fprintf(w, StatusError)
				return
			}
		}
		_, _ = fmt.Fprintf(w, StatusOK)
	}
}
