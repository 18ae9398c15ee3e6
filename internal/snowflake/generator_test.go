package snowflake

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	ms  atomic.Int64
	err atomic.Pointer[error]
}

func newFakeClock(ms int64) *fakeClock {
	c := &fakeClock{}
	c.ms.Store(ms)
	return c
}

func (c *fakeClock) NowMillis() (int64, error) {
	if errp := c.err.Load(); errp != nil && *errp != nil {
		return 0, *errp
	}
	return c.ms.Load(), nil
}

func (c *fakeClock) set(ms int64) { c.ms.Store(ms) }

func (c *fakeClock) fail(err error) { c.err.Store(&err) }

func (c *fakeClock) recover() { c.err.Store(nil) }

func TestNew_RangeValidation(t *testing.T) {
	tests := []struct {
		name         string
		workerID     uint32
		dataCenterID uint32
		epoch        int64
		wantErr      error
	}{
		{name: "max ids", workerID: 31, dataCenterID: 31},
		{name: "zero ids", workerID: 0, dataCenterID: 0},
		{name: "worker out of range", workerID: 32, dataCenterID: 0, wantErr: ErrInvalidWorkerID},
		{name: "data center out of range", workerID: 0, dataCenterID: 32, wantErr: ErrInvalidDataCenterID},
		{name: "both out of range", workerID: 255, dataCenterID: 255, wantErr: ErrInvalidWorkerID},
		{name: "negative epoch", epoch: -1, wantErr: ErrInvalidEpoch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.workerID, tt.dataCenterID, tt.epoch)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, g)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.workerID, g.WorkerID())
			assert.Equal(t, tt.dataCenterID, g.DataCenterID())
		})
	}
}

func TestNew_ReportsViolatedBound(t *testing.T) {
	_, err := New(32, 0, 0)
	assert.ErrorContains(t, err, "between 0 and 31")
}

func TestNextID_UniqueAndMonotonic(t *testing.T) {
	g, err := New(3, 4, 0)
	require.NoError(t, err)

	const n = 20000
	seen := make(map[uint64]struct{}, n)
	var prev uint64
	for i := 0; i < n; i++ {
		id, err := g.NextID()
		require.NoError(t, err)

		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d at call %d", id, i)
		seen[id] = struct{}{}

		if i > 0 {
			require.Greater(t, id, prev)
		}
		prev = id
	}
}

func TestNextID_FieldRoundTrip(t *testing.T) {
	const epoch = 1704067200000 // 2024-01-01T00:00:00Z
	g, err := New(7, 19, epoch)
	require.NoError(t, err)

	before := time.Now().Truncate(time.Millisecond)
	id, err := g.NextID()
	require.NoError(t, err)
	after := time.Now().Add(time.Millisecond)

	p := Decompose(id)
	assert.Equal(t, uint32(19), p.DataCenterID)
	assert.Equal(t, uint32(7), p.WorkerID)

	ts := p.Time(epoch)
	assert.False(t, ts.Before(before), "decoded time %v before %v", ts, before)
	assert.False(t, ts.After(after), "decoded time %v after %v", ts, after)
}

func TestNextID_SameMillisecondAsConstruction(t *testing.T) {
	clk := newFakeClock(1000)
	g, err := New(1, 1, 0, WithClock(clk))
	require.NoError(t, err)

	id, err := g.NextID()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), Decompose(id).Sequence)
}

func TestNextID_NewMillisecondResetsSequence(t *testing.T) {
	clk := newFakeClock(1000)
	g, err := New(1, 1, 0, WithClock(clk))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := g.NextID()
		require.NoError(t, err)
	}

	clk.set(1001)
	id, err := g.NextID()
	require.NoError(t, err)

	p := Decompose(id)
	assert.Equal(t, int64(1001), p.Timestamp)
	assert.Equal(t, uint32(0), p.Sequence)
}

func TestNextID_SequenceRollover(t *testing.T) {
	const frozen = 5000
	clk := newFakeClock(frozen - 1)

	var exhausted atomic.Int32
	g, err := New(2, 3, 0,
		WithClock(clk),
		WithPollInterval(50*time.Microsecond),
		WithExhaustedHook(func() { exhausted.Add(1) }),
	)
	require.NoError(t, err)

	clk.set(frozen)

	var prev uint64
	for i := 0; i <= MaxSequence; i++ {
		id, err := g.NextID()
		require.NoError(t, err)

		p := Decompose(id)
		require.Equal(t, int64(frozen), p.Timestamp)
		require.Equal(t, uint32(i), p.Sequence)
		if i > 0 {
			require.Greater(t, id, prev)
		}
		prev = id
	}
	assert.Equal(t, int32(0), exhausted.Load())

	type result struct {
		id  uint64
		err error
	}
	res := make(chan result, 1)
	go func() {
		id, err := g.NextID()
		res <- result{id, err}
	}()

	select {
	case <-res:
		t.Fatal("4097th call returned while the clock was frozen")
	case <-time.After(20 * time.Millisecond):
	}

	clk.set(frozen + 1)

	select {
	case r := <-res:
		require.NoError(t, r.err)
		p := Decompose(r.id)
		assert.Equal(t, int64(frozen+1), p.Timestamp)
		assert.Equal(t, uint32(0), p.Sequence)
		assert.Greater(t, r.id, prev)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for the next millisecond")
	}
	assert.Equal(t, int32(1), exhausted.Load())
}

func TestNextID_ClockRegression(t *testing.T) {
	clk := newFakeClock(1000)
	g, err := New(1, 1, 0, WithClock(clk))
	require.NoError(t, err)

	first, err := g.NextID()
	require.NoError(t, err)

	clk.set(990)
	id, err := g.NextID()
	assert.Zero(t, id)
	require.ErrorIs(t, err, ErrClockMovedBackwards)

	var cmb *ClockMovedBackwardsError
	require.True(t, errors.As(err, &cmb))
	assert.Equal(t, int64(10), cmb.Regression())
	assert.Contains(t, err.Error(), "10 milliseconds")

	// state is untouched, so the recovered clock continues the sequence
	clk.set(1000)
	id, err = g.NextID()
	require.NoError(t, err)
	assert.Greater(t, id, first)
	assert.Equal(t, uint32(2), Decompose(id).Sequence)
}

func TestNextID_EpochOffset(t *testing.T) {
	const t0 = 1700000000000
	clk := newFakeClock(t0)
	g, err := New(0, 0, t0, WithClock(clk))
	require.NoError(t, err)

	clk.set(t0 + 5000)
	id, err := g.NextID()
	require.NoError(t, err)

	assert.Equal(t, uint64(5000), id>>TimestampShift)
	assert.Equal(t, int64(5000), Decompose(id).Timestamp)
	assert.Equal(t, time.UnixMilli(t0+5000), Decompose(id).Time(t0))
}

func TestClockUnavailable(t *testing.T) {
	t.Run("before epoch at construction", func(t *testing.T) {
		clk := newFakeClock(100)
		_, err := New(0, 0, 200, WithClock(clk))
		assert.ErrorIs(t, err, ErrClockUnavailable)
	})

	t.Run("clock error at construction", func(t *testing.T) {
		clk := newFakeClock(100)
		clk.fail(assert.AnError)
		_, err := New(0, 0, 0, WithClock(clk))
		assert.ErrorIs(t, err, ErrClockUnavailable)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("clock error on next id", func(t *testing.T) {
		clk := newFakeClock(100)
		g, err := New(0, 0, 0, WithClock(clk))
		require.NoError(t, err)

		clk.fail(assert.AnError)
		_, err = g.NextID()
		assert.ErrorIs(t, err, ErrClockUnavailable)
	})
}

func TestNextID_WaitFailureKeepsSequence(t *testing.T) {
	clk := newFakeClock(10)
	g, err := New(0, 0, 0, WithClock(clk), WithPollInterval(10*time.Microsecond))
	require.NoError(t, err)

	for i := 0; i < MaxSequence; i++ {
		_, err := g.NextID()
		require.NoError(t, err)
	}

	// the next call starts waiting; the clock breaks while it polls
	go func() {
		time.Sleep(5 * time.Millisecond)
		clk.fail(assert.AnError)
	}()
	_, err = g.NextID()
	require.ErrorIs(t, err, ErrClockUnavailable)

	clk.recover()
	clk.set(10)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = g.NextID()
	}()
	select {
	case <-done:
		t.Fatal("exhausted millisecond issued another id")
	case <-time.After(10 * time.Millisecond):
	}
	clk.set(11)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for the next millisecond")
	}
}

func TestNextID_TimestampOverflow(t *testing.T) {
	clk := newFakeClock(MaxTimestamp)
	g, err := New(0, 0, 0, WithClock(clk))
	require.NoError(t, err)

	clk.set(MaxTimestamp + 1)
	_, err = g.NextID()
	assert.ErrorIs(t, err, ErrTimestampOverflow)
}

func TestSystemClock(t *testing.T) {
	ms, err := SystemClock{}.NowMillis()
	require.NoError(t, err)
	assert.InDelta(t, time.Now().UnixMilli(), ms, 1000)
}
