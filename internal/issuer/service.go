package issuer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zhukov-alex/flakeid/internal/output"
	"github.com/zhukov-alex/flakeid/internal/snowflake"
	"go.uber.org/zap"
)

const drainTimeout = 2 * time.Second

// Service hands out ids from a single generator owned by one goroutine.
type Service interface {
	Start(ctx context.Context) error
	Next(ctx context.Context) (uint64, error)
	NextN(ctx context.Context, n int) ([]uint64, error)
	Node() Node
	// Done is closed once the service stops, either by Close or by halting.
	Done() <-chan struct{}
	// Err returns the error that halted the service, if any.
	Err() error
	Close(ctx context.Context) error
}

// Node describes the identity baked into every issued id.
type Node struct {
	DataCenterID uint32
	WorkerID     uint32
	EpochMillis  int64
}

type inRequest struct {
	n    int
	resp chan inResponse
}

type inResponse struct {
	ids []uint64
	err error
}

type ServiceImpl struct {
	cfg       Config
	genOpts   []snowflake.Option
	gen       *snowflake.Generator
	output    output.Output
	nodeKey   string
	inCh      chan inRequest
	outCh     chan output.AuditBatch
	metrics   *metrics
	haltErr   atomic.Pointer[error]
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
	logger    *zap.Logger
}

// New creates a new issuer. out may be nil, in which case issued ids are not
// audited. opts are passed to the underlying generator.
func New(logger *zap.Logger, cfg Config, out output.Output, registerMetrics bool, opts ...snowflake.Option) Service {
	return &ServiceImpl{
		cfg:     cfg,
		genOpts: opts,
		output:  out,
		nodeKey: output.NodeKey(cfg.DataCenterID, cfg.WorkerID),
		inCh:    make(chan inRequest, cfg.InChannelSize),
		outCh:   make(chan output.AuditBatch, cfg.AuditChannelSize),
		metrics: initMetrics(registerMetrics),
		logger:  logger,
	}
}

// Start creates the generator and launches the owning goroutine.
func (s *ServiceImpl) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	opts := []snowflake.Option{
		snowflake.WithPollInterval(s.cfg.PollInterval),
		snowflake.WithExhaustedHook(s.metrics.sequenceExhausted.Inc),
	}
	gen, err := snowflake.New(s.cfg.WorkerID, s.cfg.DataCenterID, s.cfg.EpochMillis, append(opts, s.genOpts...)...)
	if err != nil {
		s.cancel()
		return fmt.Errorf("create generator: %w", err)
	}
	s.gen = gen

	s.logger.Info("starting issuer",
		zap.Uint32("data_center_id", s.cfg.DataCenterID),
		zap.Uint32("worker_id", s.cfg.WorkerID),
		zap.Int64("epoch_millis", s.cfg.EpochMillis),
		zap.Bool("audit", s.output != nil),
	)

	if s.output != nil {
		s.wg.Add(1)
		go func() { defer s.wg.Done(); s.dispatchLoop() }()
	}

	s.wg.Add(1)
	go func() { defer s.wg.Done(); s.run() }()

	return nil
}

func (s *ServiceImpl) Next(ctx context.Context) (uint64, error) {
	ids, err := s.NextN(ctx, 1)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// NextN returns n ids issued back to back. If ctx is done before the ids are
// ready they are discarded.
func (s *ServiceImpl) NextN(ctx context.Context, n int) ([]uint64, error) {
	if n < 1 || n > s.cfg.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidCount, n, s.cfg.MaxBatchSize)
	}
	if s.ctx == nil {
		return nil, ErrNotStarted
	}

	req := inRequest{
		n:    n,
		resp: make(chan inResponse, 1),
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, s.stoppedErr()
	case s.inCh <- req:
	}

	select {
	case r := <-req.resp:
		return r.ids, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, s.stoppedErr()
	}
}

func (s *ServiceImpl) Node() Node {
	return Node{
		DataCenterID: s.cfg.DataCenterID,
		WorkerID:     s.cfg.WorkerID,
		EpochMillis:  s.cfg.EpochMillis,
	}
}

func (s *ServiceImpl) Done() <-chan struct{} {
	if s.ctx == nil {
		return nil
	}
	return s.ctx.Done()
}

func (s *ServiceImpl) Err() error {
	if errp := s.haltErr.Load(); errp != nil {
		return *errp
	}
	return nil
}

func (s *ServiceImpl) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("issuer shutting down...")

		if s.cancel != nil {
			s.cancel()
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			s.logger.Info("issuer shutdown complete.")
		case <-ctx.Done():
			err = ctx.Err()
			s.logger.Warn("issuer shutdown timeout", zap.Error(err))
		}
	})
	return err
}

func (s *ServiceImpl) stoppedErr() error {
	if err := s.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStopped, err)
	}
	return ErrStopped
}

// halt stops the service after an error that makes further issuance unsafe.
func (s *ServiceImpl) halt(err error) {
	s.haltErr.Store(&err)
	s.cancel()
}

func (s *ServiceImpl) run() {
	logger := s.logger.With(zap.String("method", "run"))
	defer close(s.outCh)

	interval := time.Duration(0)
	if s.output != nil {
		interval = s.cfg.FlushInterval
	}
	tickerChan, ticker := makeTickerChan(interval)
	if ticker != nil {
		defer ticker.Stop()
	}

	var pending []output.AuditRecord
	flush := func() {
		if len(pending) == 0 {
			return
		}
		s.outCh <- output.AuditBatch{Records: pending, NodeKey: s.nodeKey}
		pending = nil
	}

	for {
		select {
		case req := <-s.inCh:
			// select may still pick a queued request after a halt
			if s.ctx.Err() != nil {
				req.resp <- inResponse{err: s.stoppedErr()}
				continue
			}
			ids, err := s.generate(req.n)
			if err != nil {
				s.metrics.generateErrors.Inc()
				req.resp <- inResponse{err: err}

				if errors.Is(err, snowflake.ErrClockMovedBackwards) {
					s.metrics.clockRegressions.Inc()
					logger.Error("clock moved backwards", zap.Error(err))
					if s.cfg.HaltOnClockRegression {
						logger.Error("halting issuer on clock regression")
						s.halt(err)
					}
				} else {
					logger.Error("generate error", zap.Error(err))
				}
				continue
			}
			req.resp <- inResponse{ids: ids}

			if s.output == nil {
				continue
			}
			first, last := ids[0], ids[len(ids)-1]
			pending = append(pending, output.AuditRecord{
				DataCenterID: s.cfg.DataCenterID,
				WorkerID:     s.cfg.WorkerID,
				FirstID:      first,
				LastID:       last,
				Count:        len(ids),
				IssuedAt:     snowflake.Decompose(first).Time(s.cfg.EpochMillis).UTC(),
			})
			if len(pending) >= s.cfg.AuditBatchSize {
				flush()
			}

		case <-tickerChan:
			flush()

		case <-s.ctx.Done():
			if s.output != nil {
				flush()
			}
			return
		}
	}
}

// generate issues n ids. On error the ids issued so far are discarded; they
// are never handed out, so uniqueness is unaffected.
func (s *ServiceImpl) generate(n int) ([]uint64, error) {
	start := time.Now()
	ids := make([]uint64, 0, n)
	for len(ids) < n {
		id, err := s.gen.NextID()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	s.metrics.generateLatency.Observe(time.Since(start).Seconds())
	s.metrics.idsIssued.Add(float64(n))
	return ids, nil
}

// dispatchLoop delivers audit batches in order, retrying with backoff until
// the service stops. After that each remaining batch gets one last attempt.
func (s *ServiceImpl) dispatchLoop() {
	logger := s.logger.With(zap.String("method", "dispatchLoop"))

	var retryDelay time.Duration
	const maxDelay = 3 * time.Second

	for batch := range s.outCh {
		retryDelay = 0
		for {
			stopping := s.ctx.Err() != nil
			err := s.sendBatch(batch, stopping)
			if err == nil {
				logger.Debug("audit batch delivered", zap.Int("records", len(batch.Records)))
				break
			}
			if stopping {
				logger.Error("dropping audit batch on shutdown",
					zap.Int("records", len(batch.Records)),
					zap.Error(err),
				)
				break
			}

			logger.Error("audit SendBatch failed", zap.Error(err))
			retryDelay = nextBackoff(retryDelay, maxDelay)
			select {
			case <-time.After(retryDelay):
			case <-s.ctx.Done():
			}
		}
	}
}

func (s *ServiceImpl) sendBatch(batch output.AuditBatch, stopping bool) error {
	ctx := s.ctx
	if stopping {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
	}

	stop := s.metrics.auditBatchTimer()
	defer stop()
	return s.output.SendBatch(ctx, batch)
}
