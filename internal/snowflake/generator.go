package snowflake

import (
	"fmt"
	"time"
)

const DefaultPollInterval = 100 * time.Microsecond

type Option func(*Generator)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithPollInterval sets how often the clock is re-read while waiting for the
// next millisecond.
func WithPollInterval(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.pollInterval = d
		}
	}
}

// WithExhaustedHook registers fn to be called each time the sequence of a
// millisecond runs out and NextID starts waiting.
func WithExhaustedHook(fn func()) Option {
	return func(g *Generator) { g.onExhausted = fn }
}

// Generator issues identifiers for one (data center, worker) pair.
type Generator struct {
	workerID     uint64
	dataCenterID uint64
	epochMillis  int64

	lastMillis int64
	sequence   uint64

	clock        Clock
	pollInterval time.Duration
	onExhausted  func()
}

// New validates the node identity and seeds the generator from the clock.
func New(workerID, dataCenterID uint32, epochMillis int64, opts ...Option) (*Generator, error) {
	if workerID > MaxWorkerID {
		return nil, fmt.Errorf("%w: %d, must be between 0 and %d", ErrInvalidWorkerID, workerID, MaxWorkerID)
	}
	if dataCenterID > MaxDataCenterID {
		return nil, fmt.Errorf("%w: %d, must be between 0 and %d", ErrInvalidDataCenterID, dataCenterID, MaxDataCenterID)
	}
	if epochMillis < 0 {
		return nil, fmt.Errorf("%w: %d, must be >= 0", ErrInvalidEpoch, epochMillis)
	}

	g := &Generator{
		workerID:     uint64(workerID),
		dataCenterID: uint64(dataCenterID),
		epochMillis:  epochMillis,
		clock:        SystemClock{},
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(g)
	}

	now, err := g.now()
	if err != nil {
		return nil, err
	}
	g.lastMillis = now
	return g, nil
}

func (g *Generator) WorkerID() uint32     { return uint32(g.workerID) }
func (g *Generator) DataCenterID() uint32 { return uint32(g.dataCenterID) }
func (g *Generator) EpochMillis() int64   { return g.epochMillis }

// NextID returns the next identifier. It blocks while the sequence of the
// current millisecond is exhausted. State is left untouched on error.
func (g *Generator) NextID() (uint64, error) {
	now, err := g.now()
	if err != nil {
		return 0, err
	}

	if now < g.lastMillis {
		return 0, &ClockMovedBackwardsError{Last: g.lastMillis, Now: now}
	}

	var seq uint64
	if now == g.lastMillis {
		seq = (g.sequence + 1) & MaxSequence
		if seq == 0 {
			if g.onExhausted != nil {
				g.onExhausted()
			}
			if now, err = g.waitNextMillis(g.lastMillis); err != nil {
				return 0, err
			}
		}
	}

	if now > MaxTimestamp {
		return 0, fmt.Errorf("%w: %d ms since epoch", ErrTimestampOverflow, now)
	}

	g.lastMillis = now
	g.sequence = seq

	return uint64(now)<<TimestampShift |
		g.dataCenterID<<DataCenterIDShift |
		g.workerID<<WorkerIDShift |
		seq, nil
}

// waitNextMillis polls the clock until it reads past last.
func (g *Generator) waitNextMillis(last int64) (int64, error) {
	for {
		now, err := g.now()
		if err != nil {
			return 0, err
		}
		if now > last {
			return now, nil
		}
		time.Sleep(g.pollInterval)
	}
}

// now returns the clock reading relative to the epoch.
func (g *Generator) now() (int64, error) {
	ms, err := g.clock.NowMillis()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrClockUnavailable, err)
	}
	if ms < g.epochMillis {
		return 0, fmt.Errorf("%w: reading %d ms is before epoch %d ms", ErrClockUnavailable, ms, g.epochMillis)
	}
	return ms - g.epochMillis, nil
}
