package snowflake

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWorkerID     = errors.New("invalid worker id")
	ErrInvalidDataCenterID = errors.New("invalid data center id")
	ErrInvalidEpoch        = errors.New("invalid epoch")
	ErrClockUnavailable    = errors.New("clock unavailable")
	ErrClockMovedBackwards = errors.New("clock moved backwards")
	ErrTimestampOverflow   = errors.New("timestamp overflows id layout")
)

// ClockMovedBackwardsError reports a clock reading below the last issued
// millisecond. Both values are relative to the generator epoch.
type ClockMovedBackwardsError struct {
	Last int64
	Now  int64
}

func (e *ClockMovedBackwardsError) Error() string {
	return fmt.Sprintf("clock moved backwards, refusing to generate id for %d milliseconds", e.Regression())
}

// Regression returns how far the clock went back, in milliseconds.
func (e *ClockMovedBackwardsError) Regression() int64 {
	return e.Last - e.Now
}

func (e *ClockMovedBackwardsError) Is(target error) bool {
	return target == ErrClockMovedBackwards
}
