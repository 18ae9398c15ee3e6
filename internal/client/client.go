// Package client fetches ids from a flakeid TCP server.
package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/zhukov-alex/flakeid/internal/wire"
)

// Client holds one connection. Fetch calls are serialized.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(conn), nil
}

func New(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// Fetch requests n ids. A non-OK status is returned as *wire.StatusError and
// leaves the connection unusable, since the server hangs up after it.
func (c *Client) Fetch(ctx context.Context, n uint32) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// zero deadline clears any left from a previous call
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := wire.WriteRequest(c.conn, n); err != nil {
		return nil, c.wrap(ctx, "write request", err)
	}
	ids, err := wire.ReadResponse(c.conn)
	if err != nil {
		return nil, c.wrap(ctx, "read response", err)
	}
	if len(ids) != int(n) {
		return nil, fmt.Errorf("asked for %d ids, got %d", n, len(ids))
	}
	return ids, nil
}

func (c *Client) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
