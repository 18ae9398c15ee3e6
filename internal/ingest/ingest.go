package ingest

import (
	"context"

	"github.com/zhukov-alex/flakeid/internal/issuer"
)

// Ingest exposes an issuer over a network transport.
type Ingest interface {
	Serve(ctx context.Context, svc issuer.Service) error
	Close(ctx context.Context) error
}
