//go:build !linux && !darwin

package snowflake

import "time"

func (SystemClock) NowMillis() (int64, error) {
	return time.Now().UnixMilli(), nil
}
