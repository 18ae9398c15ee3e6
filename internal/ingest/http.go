package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/zhukov-alex/flakeid/internal/issuer"
	"github.com/zhukov-alex/flakeid/internal/snowflake"
)

type HTTPServer struct {
	cfg     *HTTPConfig
	metrics *metrics
	srv     *http.Server
	logger  *zap.Logger
}

type idsResponse struct {
	IDs []string `json:"ids"`
}

type decodeResponse struct {
	ID           string    `json:"id"`
	Timestamp    int64     `json:"timestamp"`
	Time         time.Time `json:"time"`
	DataCenterID uint32    `json:"data_center_id"`
	WorkerID     uint32    `json:"worker_id"`
	Sequence     uint32    `json:"sequence"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPServer(logger *zap.Logger, cfg *HTTPConfig, registerMetrics bool) *HTTPServer {
	return &HTTPServer{
		cfg:     cfg,
		metrics: initMetrics(registerMetrics),
		srv: &http.Server{
			Addr:         cfg.BindAddr,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.ReadTimeout,
		},
		logger: logger,
	}
}

func (s *HTTPServer) Serve(ctx context.Context, svc issuer.Service) error {
	s.srv.Handler = s.routes(svc)

	lis, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		return err
	}
	s.logger.Info("HTTP server started", zap.String("addr", lis.Addr().String()))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Close(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...")
	return s.srv.Shutdown(ctx)
}

func (s *HTTPServer) routes(svc issuer.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimit, s.cfg.RateWindow))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case <-svc.Done():
			respondWithJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "issuer stopped"})
		default:
			respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}
	})

	r.Route("/v1/ids", func(r chi.Router) {
		r.Get("/", s.handleNextIDs(svc))
		r.Get("/{id}", s.handleDecode(svc))
	})
	return r
}

// handleNextIDs serves GET /v1/ids?count=N. Ids are rendered as decimal
// strings since JSON numbers lose precision above 2^53.
func (s *HTTPServer) handleNextIDs(svc issuer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

		count := 1
		if raw := r.URL.Query().Get("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				s.metrics.incError("http")
				respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: "count must be an integer"})
				return
			}
			count = n
		}

		ids, err := svc.NextN(r.Context(), count)
		if err != nil {
			logger.Error("NextN failed", zap.Int("count", count), zap.Error(err))
			s.metrics.incError("http")
			respondWithJSON(w, httpStatus(err), errorResponse{Error: err.Error()})
			return
		}

		resp := idsResponse{IDs: make([]string, len(ids))}
		for i, id := range ids {
			resp.IDs[i] = strconv.FormatUint(id, 10)
		}
		respondWithJSON(w, http.StatusOK, resp)
		s.metrics.requestLatency.WithLabelValues("http").Observe(time.Since(start).Seconds())
	}
}

func (s *HTTPServer) handleDecode(svc issuer.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "id")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: "id must be an unsigned decimal integer"})
			return
		}

		p := snowflake.Decompose(id)
		respondWithJSON(w, http.StatusOK, decodeResponse{
			ID:           raw,
			Timestamp:    p.Timestamp,
			Time:         p.Time(svc.Node().EpochMillis).UTC(),
			DataCenterID: p.DataCenterID,
			WorkerID:     p.WorkerID,
			Sequence:     p.Sequence,
		})
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
