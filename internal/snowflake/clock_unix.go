//go:build linux || darwin

package snowflake

import (
	"time"

	"golang.org/x/sys/unix"
)

func (SystemClock) NowMillis() (int64, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts); err != nil {
		return 0, err
	}
	return ts.Nano() / int64(time.Millisecond), nil
}
