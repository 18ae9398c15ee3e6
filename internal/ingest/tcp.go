package ingest

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhukov-alex/flakeid/internal/issuer"
	"github.com/zhukov-alex/flakeid/internal/wire"
)

const writeTimeout = time.Second

var respBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 1+4+8*64)
		return &b
	},
}

type TCPServer struct {
	cfg       *TCPConfig
	metrics   *metrics
	listener  net.Listener
	ready     chan struct{}
	readyOnce sync.Once
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	logger    *zap.Logger
}

func NewTCPServer(logger *zap.Logger, cfg *TCPConfig, registerMetrics bool) *TCPServer {
	return &TCPServer{
		cfg:     cfg,
		metrics: initMetrics(registerMetrics),
		ready:   make(chan struct{}),
		logger:  logger,
	}
}

func (s *TCPServer) Serve(ctx context.Context, svc issuer.Service) error {
	listener, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		s.markReady()
		return err
	}
	return s.serveListener(ctx, listener, svc)
}

// Addr blocks until Serve either listens or fails, and returns the listening
// address or nil.
func (s *TCPServer) Addr() net.Addr {
	<-s.ready
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *TCPServer) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *TCPServer) serveListener(ctx context.Context, listener net.Listener, svc issuer.Service) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.listener = listener
	s.markReady()

	go func() {
		<-s.ctx.Done()
		_ = listener.Close()
	}()

	sem := make(chan struct{}, s.cfg.MaxConnections)
	s.logger.Info("TCP server started", zap.String("addr", listener.Addr().String()))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.ctx.Err() != nil {
				return nil // graceful shutdown
			}

			s.logger.Error("tcp accept failed", zap.Error(err))
			s.metrics.incError("tcp")
			continue
		}

		select {
		case sem <- struct{}{}:
			s.wg.Add(1)
			go func(c net.Conn) {
				defer func() {
					<-sem
					s.wg.Done()
				}()
				s.handleTCPConn(c, svc)
			}(conn)
		default:
			s.logger.Warn("too many connections - rejecting client")
			_ = wire.WriteStatus(conn, wire.StatusUnavailable)
			conn.Close()
		}
	}
}

func (s *TCPServer) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("TCPServer shutting down...")

		if s.cancel != nil {
			s.cancel()
		}
		if s.listener != nil {
			if cerr := s.listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
				err = cerr
			}
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			s.logger.Info("TCPServer shutdown complete")
		case <-ctx.Done():
			err = ctx.Err()
			s.logger.Warn("TCPServer shutdown timeout", zap.Error(err))
		}
	})
	return err
}

// handleTCPConn serves requests on conn until the client hangs up, a read
// times out or a request fails.
func (s *TCPServer) handleTCPConn(conn net.Conn, svc issuer.Service) {
	defer conn.Close()

	logger := s.logger.With(zap.String("method", "handleTCPConn"))

	for {
		select {
		case <-s.ctx.Done():
			logger.Info("context canceled - closing connection")
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		n, err := wire.ReadRequest(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if os.IsTimeout(err) {
				logger.Warn("timeout reading request")
			} else {
				logger.Error("read request error", zap.Error(err))
			}
			s.metrics.incError("tcp")
			return
		}

		startTime := time.Now()

		if n == 0 || n > wire.MaxCount {
			logger.Warn("invalid id count", zap.Uint32("count", n))
			s.metrics.incError("tcp")
			s.writeStatus(conn, wire.StatusInvalidCount)
			return
		}

		ids, err := svc.NextN(s.ctx, int(n))
		if err != nil {
			logger.Error("NextN error", zap.Uint32("count", n), zap.Error(err))
			s.metrics.incError("tcp")
			s.writeStatus(conn, wireStatus(err))
			return
		}

		bufp := respBufPool.Get().(*[]byte)
		frame := wire.AppendIDs((*bufp)[:0], ids)

		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_, err = conn.Write(frame)
		*bufp = frame
		respBufPool.Put(bufp)
		if err != nil {
			logger.Error("failed to write response", zap.Error(err))
			s.metrics.incError("tcp")
			return
		}

		s.metrics.requestLatency.WithLabelValues("tcp").Observe(time.Since(startTime).Seconds())
	}
}

func (s *TCPServer) writeStatus(conn net.Conn, status byte) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := wire.WriteStatus(conn, status); err != nil {
		s.logger.Debug("failed to write status", zap.Error(err))
	}
}
