// Package gateway provides the admin and observability HTTP server: health,
// status, Prometheus metrics, and interceptor administration. It binds to
// loopback by default; the /api routes are only mounted when an auth token
// is configured.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tapline-dev/tapline/internal/config"
	"github.com/tapline-dev/tapline/internal/intercept"
)

// Gateway is the admin HTTP server over one session's interceptor registry.
type Gateway struct {
	cfg       config.GatewayConfig
	registry  *intercept.Registry
	metrics   *Metrics
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a gateway. The metrics instance doubles as the pipeline
// observer; install it on the registry via registry.Observe(gw.Metrics()).
func New(cfg config.GatewayConfig, registry *intercept.Registry, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Defaults()
	return &Gateway{
		cfg:      cfg,
		registry: registry,
		metrics:  NewMetrics(),
		logger:   logger.With("component", "gateway"),
	}
}

// Metrics returns the pipeline observer backing /metrics.
func (g *Gateway) Metrics() *Metrics { return g.metrics }

// Start listens and serves in a background goroutine.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.cfg.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.cfg.ReadTimeout,
		WriteTimeout: g.cfg.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.cfg.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", g.cfg.Bind, err)
	}

	g.logger.Info("gateway listening", "addr", ln.Addr().String())
	go func() {
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway: serve error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}
