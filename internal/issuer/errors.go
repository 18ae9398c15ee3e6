package issuer

import "errors"

var (
	ErrInvalidCount = errors.New("invalid id count")
	ErrNotStarted   = errors.New("issuer not started")
	ErrStopped      = errors.New("issuer stopped")
)
