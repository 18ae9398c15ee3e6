package ingest

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/zhukov-alex/flakeid/internal/issuer"
	"github.com/zhukov-alex/flakeid/internal/wire"
)

type failure int

const (
	failureInvalidCount failure = iota
	failureUnavailable
	failureGenerate
)

func classify(err error) failure {
	switch {
	case errors.Is(err, issuer.ErrInvalidCount):
		return failureInvalidCount
	case errors.Is(err, issuer.ErrStopped),
		errors.Is(err, issuer.ErrNotStarted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return failureUnavailable
	default:
		return failureGenerate
	}
}

func wireStatus(err error) byte {
	switch classify(err) {
	case failureInvalidCount:
		return wire.StatusInvalidCount
	case failureUnavailable:
		return wire.StatusUnavailable
	default:
		return wire.StatusGenerateFailed
	}
}

func grpcCode(err error) codes.Code {
	switch classify(err) {
	case failureInvalidCount:
		return codes.InvalidArgument
	case failureUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

func httpStatus(err error) int {
	switch classify(err) {
	case failureInvalidCount:
		return http.StatusBadRequest
	case failureUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
