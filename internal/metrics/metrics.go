// Package metrics exposes the process-wide prometheus registry over HTTP.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	addr   string
	srv    *http.Server
	logger *zap.Logger
}

func New(logger *zap.Logger, addr string) *Server {
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:         addr,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			Handler:      Handler(prometheus.DefaultGatherer),
		},
		logger: logger,
	}
}

func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

func (m *Server) Start() {
	go func() {
		m.logger.Info("Metrics server started", zap.String("addr", m.addr))
		if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("Metrics server error", zap.Error(err))
		}
	}()
}

func (m *Server) Close(ctx context.Context) error {
	m.logger.Info("Shutting down metrics server...")
	return m.srv.Shutdown(ctx)
}
