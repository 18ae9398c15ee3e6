package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhukov-alex/flakeid/internal/config"
	"github.com/zhukov-alex/flakeid/internal/ingest"
	"github.com/zhukov-alex/flakeid/internal/issuer"
	"github.com/zhukov-alex/flakeid/internal/logger"
	"github.com/zhukov-alex/flakeid/internal/metrics"
	"github.com/zhukov-alex/flakeid/internal/output"
)

const shutdownTimeout = 3 * time.Second

// ServeCmd runs the id service until a signal arrives or the issuer halts.
// A halted issuer makes the command fail so the process exits non-zero.
func ServeCmd(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New(viper.GetViper())
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	l, err := logger.New(cfg.Logger, logger.DevMode())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer l.Sync()

	return Serve(ctx, l, cfg)
}

func Serve(ctx context.Context, l *zap.Logger, cfg *config.Config) error {
	collectMetrics := cfg.MetricsAddr != ""

	outp, err := newOutput(l, &cfg.Output)
	if err != nil {
		return fmt.Errorf("output init error: %w", err)
	}

	ingestor, err := newIngest(l, &cfg.Ingest, collectMetrics)
	if err != nil {
		closeOutput(outp)
		return fmt.Errorf("ingest init error: %w", err)
	}

	svc := issuer.New(l, cfg.Issuer, outp, collectMetrics)
	if err := svc.Start(ctx); err != nil {
		closeOutput(outp)
		return fmt.Errorf("failed to start issuer: %w", err)
	}

	var metricsSrv *metrics.Server
	if collectMetrics {
		metricsSrv = metrics.New(l, cfg.MetricsAddr)
		metricsSrv.Start()
	}

	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()
	serveErr := make(chan error, 1)
	go func() { serveErr <- ingestor.Serve(serveCtx, svc) }()

	var ingestErr error
	select {
	case <-ctx.Done():
		l.Info("Shutdown signal received")
	case <-svc.Done():
		l.Error("Issuer stopped", zap.Error(svc.Err()))
	case err := <-serveErr:
		if err == nil && ctx.Err() != nil {
			l.Info("Shutdown signal received")
			break
		}
		if err == nil {
			err = fmt.Errorf("server stopped unexpectedly")
		}
		l.Error("server error", zap.Error(err))
		ingestErr = err
	}
	cancelServe()

	clCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := ingestor.Close(clCtx); err != nil {
		l.Error("error shutting down ingestor", zap.Error(err))
	}

	// the issuer drains pending audit batches into the output before it
	// returns, so the output is closed after it
	g, gctx := errgroup.WithContext(clCtx)
	g.Go(func() error {
		if err := svc.Close(gctx); err != nil {
			return err
		}
		if outp != nil {
			return outp.Close(gctx)
		}
		return nil
	})
	if collectMetrics {
		g.Go(func() error { return metricsSrv.Close(gctx) })
	}

	if err := g.Wait(); err != nil {
		l.Error("shutdown errors", zap.Error(err))
	} else {
		l.Info("Shutdown complete")
	}

	if ingestErr != nil {
		return fmt.Errorf("ingest serve error: %w", ingestErr)
	}
	if err := svc.Err(); err != nil {
		return fmt.Errorf("issuer halted: %w", err)
	}
	return nil
}

func closeOutput(outp output.Output) {
	if outp == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = outp.Close(ctx)
}

// newOutput returns a nil Output when auditing is disabled.
func newOutput(l *zap.Logger, cfg *output.Config) (output.Output, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	switch cfg.Type {
	case output.TypeKafka:
		if cfg.Kafka == nil {
			return nil, fmt.Errorf("kafka config is missing")
		}
		return output.NewKafkaBroker(l, cfg.Kafka)
	case output.TypeKafkaGo:
		if cfg.Kafka == nil {
			return nil, fmt.Errorf("kafka config is missing")
		}
		return output.NewKafkaGoWriter(l, cfg.Kafka), nil
	case output.TypeFile:
		if cfg.File == nil {
			return nil, fmt.Errorf("file config is missing")
		}
		return output.NewFileJournal(l, cfg.File)
	default:
		return nil, fmt.Errorf("unsupported output type: %s", cfg.Type)
	}
}

func newIngest(l *zap.Logger, cfg *ingest.Config, collectMetrics bool) (ingest.Ingest, error) {
	switch cfg.Type {
	case "tcp":
		if cfg.TCP == nil {
			return nil, fmt.Errorf("tcp config is missing")
		}
		return ingest.NewTCPServer(l, cfg.TCP, collectMetrics), nil
	case "grpc":
		if cfg.GRPC == nil {
			return nil, fmt.Errorf("grpc config is missing")
		}
		return ingest.NewGRPCServer(l, cfg.GRPC, collectMetrics), nil
	case "http":
		if cfg.HTTP == nil {
			return nil, fmt.Errorf("http config is missing")
		}
		return ingest.NewHTTPServer(l, cfg.HTTP, collectMetrics), nil
	default:
		return nil, fmt.Errorf("unsupported ingest type: %s", cfg.Type)
	}
}
