// Package ops serves the operational HTTP endpoints: liveness with
// dependency checks and Prometheus metrics.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/leadbot/core/logger"
)

const (
	checkTimeout    = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Check is a named dependency probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Router builds the ops routes. A nil metrics handler serves the default
// Prometheus registry.
func Router(checks []Check, metrics http.Handler) http.Handler {
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", healthz(checks))
	r.Method(http.MethodGet, "/metrics", metrics)
	return r
}

func healthz(checks []Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := health{Status: "ok", Checks: make(map[string]string, len(checks))}
		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := c.Ping(ctx)
			cancel()
			if err != nil {
				res.Status = "fail"
				res.Checks[c.Name] = "fail: " + err.Error()
				continue
			}
			res.Checks[c.Name] = "ok"
		}
		code := http.StatusOK
		if res.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(res)
	}
}

// Server runs the ops router on addr.
type Server struct {
	addr    string
	handler http.Handler
}

// New returns a Server for addr, serving the given checks.
func New(addr string, checks ...Check) *Server {
	return &Server{addr: addr, handler: Router(checks, nil)}
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("ops listen %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info(ctx, "ops", "ops.listen",
		slog.String("status", "ok"),
		slog.String("addr", ln.Addr().String()),
	)

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ops serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ops shutdown: %w", err)
	}
	logger.Info(ctx, "ops", "ops.stop", slog.String("status", "ok"))
	return nil
}
