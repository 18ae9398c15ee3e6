package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukov-alex/flakeid/internal/wire"
)

// fakeServer answers each request on conn with the result of respond.
func fakeServer(t *testing.T, conn net.Conn, respond func(n uint32) []byte) {
	t.Helper()
	go func() {
		defer conn.Close()
		for {
			n, err := wire.ReadRequest(conn)
			if err != nil {
				return
			}
			if _, err := conn.Write(respond(n)); err != nil {
				return
			}
		}
	}()
}

func TestClient_Fetch(t *testing.T) {
	t.Parallel()

	clientConn, serverConn := net.Pipe()
	next := uint64(1000)
	fakeServer(t, serverConn, func(n uint32) []byte {
		ids := make([]uint64, n)
		for i := range ids {
			ids[i] = next
			next++
		}
		return wire.AppendIDs(nil, ids)
	})

	c := New(clientConn)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ids, err := c.Fetch(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1000, 1001, 1002}, ids)

	ids, err = c.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1003}, ids)
}

func TestClient_Fetch_Status(t *testing.T) {
	t.Parallel()

	clientConn, serverConn := net.Pipe()
	fakeServer(t, serverConn, func(uint32) []byte { return []byte{wire.StatusUnavailable} })

	c := New(clientConn)
	defer c.Close()

	_, err := c.Fetch(context.Background(), 5)
	var statusErr *wire.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, wire.StatusUnavailable, statusErr.Status)
}

func TestClient_Fetch_ShortResponse(t *testing.T) {
	t.Parallel()

	clientConn, serverConn := net.Pipe()
	fakeServer(t, serverConn, func(uint32) []byte { return wire.AppendIDs(nil, []uint64{1}) })

	c := New(clientConn)
	defer c.Close()

	_, err := c.Fetch(context.Background(), 2)
	assert.ErrorContains(t, err, "asked for 2 ids, got 1")
}

func TestClient_Fetch_ContextCanceled(t *testing.T) {
	t.Parallel()

	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()
	// Server reads the request but never answers.
	go func() { _, _ = wire.ReadRequest(serverConn) }()

	c := New(clientConn)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := c.Fetch(ctx, 1)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestDial_Refused(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	_, err = Dial(addr, 200*time.Millisecond)
	assert.Error(t, err)
}
