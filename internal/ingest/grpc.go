package ingest

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/zhukov-alex/flakeid/internal/idpb"
	"github.com/zhukov-alex/flakeid/internal/issuer"
	"github.com/zhukov-alex/flakeid/internal/wire"
)

type GRPCServer struct {
	cfg     *GRPCConfig
	metrics *metrics
	logger  *zap.Logger
	server  *grpc.Server
}

func NewGRPCServer(logger *zap.Logger, cfg *GRPCConfig, registerMetrics bool) *GRPCServer {
	server := grpc.NewServer(
		grpc.ConnectionTimeout(cfg.ReadTimeout),
	)
	return &GRPCServer{
		cfg:     cfg,
		metrics: initMetrics(registerMetrics),
		logger:  logger,
		server:  server,
	}
}

func (s *GRPCServer) Serve(ctx context.Context, svc issuer.Service) error {
	lis, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		return err
	}
	return s.serveListener(ctx, lis, svc)
}

func (s *GRPCServer) serveListener(ctx context.Context, lis net.Listener, svc issuer.Service) error {
	idpb.RegisterGeneratorServer(s.server, &generatorService{
		svc:     svc,
		logger:  s.logger,
		metrics: s.metrics,
	})
	s.logger.Info("gRPC server started", zap.String("addr", lis.Addr().String()))

	go func() {
		<-ctx.Done()
		s.server.GracefulStop()
	}()

	err := s.server.Serve(lis)
	if err == grpc.ErrServerStopped {
		return nil
	}
	return err
}

func (s *GRPCServer) Close(ctx context.Context) error {
	s.logger.Info("gRPC server shutting down...")
	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gRPC server shutdown complete")
		return nil
	case <-ctx.Done():
		s.server.Stop()
		s.logger.Warn("gRPC server shutdown timeout", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

type generatorService struct {
	svc     issuer.Service
	logger  *zap.Logger
	metrics *metrics
}

func (g *generatorService) NextID(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.UInt64Value, error) {
	start := time.Now()
	id, err := g.svc.Next(ctx)
	if err != nil {
		g.logger.Error("Next failed", zap.Error(err))
		g.metrics.incError("grpc")
		return nil, status.Error(grpcCode(err), err.Error())
	}
	g.metrics.requestLatency.WithLabelValues("grpc").Observe(time.Since(start).Seconds())
	return wrapperspb.UInt64(id), nil
}

// NextIDs streams the ids of one batch in issuance order.
func (g *generatorService) NextIDs(req *wrapperspb.UInt32Value, stream idpb.Generator_NextIDsServer) error {
	start := time.Now()
	n := req.GetValue()
	if n == 0 || n > wire.MaxCount {
		g.metrics.incError("grpc")
		return status.Errorf(grpcCode(issuer.ErrInvalidCount), "count must be between 1 and %d, got %d", wire.MaxCount, n)
	}

	ids, err := g.svc.NextN(stream.Context(), int(n))
	if err != nil {
		g.logger.Error("NextN failed", zap.Uint32("count", n), zap.Error(err))
		g.metrics.incError("grpc")
		return status.Error(grpcCode(err), err.Error())
	}

	for _, id := range ids {
		if err := stream.Send(wrapperspb.UInt64(id)); err != nil {
			g.logger.Error("stream send failed", zap.Error(err))
			g.metrics.incError("grpc")
			return err
		}
	}
	g.metrics.requestLatency.WithLabelValues("grpc").Observe(time.Since(start).Seconds())
	return nil
}
