package snowflake

// Clock reports wall-clock time in milliseconds since the Unix epoch.
type Clock interface {
	NowMillis() (int64, error)
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() (int64, error)

func (f ClockFunc) NowMillis() (int64, error) { return f() }

// SystemClock reads the host realtime clock.
type SystemClock struct{}
