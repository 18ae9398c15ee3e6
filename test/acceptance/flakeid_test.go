//go:build acceptance

package acceptance_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/zhukov-alex/flakeid/internal/client"
	"github.com/zhukov-alex/flakeid/internal/output"
)

// Runs against `flakeid serve` with config/config.yaml and a local kafka.
func TestFlakeIDEndToEnd(t *testing.T) {
	const (
		requests = 50
		perReq   = 20
	)

	c, err := client.Dial("localhost:7000", 2*time.Second)
	require.NoError(t, err)
	defer c.Close()

	issued := make(map[uint64]struct{}, requests*perReq)
	firstIDs := make(map[uint64][]uint64, requests)
	for i := 0; i < requests; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ids, err := c.Fetch(ctx, perReq)
		cancel()
		require.NoError(t, err)
		require.Len(t, ids, perReq)

		for _, id := range ids {
			_, dup := issued[id]
			require.False(t, dup, "duplicate id %d", id)
			issued[id] = struct{}{}
		}
		firstIDs[ids[0]] = ids
	}

	time.Sleep(2 * time.Second)

	records := readFromKafka(t, "flakeid-audit", firstIDs)
	for _, rec := range records {
		ids := firstIDs[rec.FirstID]
		require.Equal(t, ids[len(ids)-1], rec.LastID)
		require.Equal(t, perReq, rec.Count)
	}
}

// readFromKafka reads audit records until every request in want is seen.
func readFromKafka(t *testing.T, topic string, want map[uint64][]uint64) []output.AuditRecord {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{"localhost:9092"},
		Topic:    topic,
		GroupID:  "acceptance-test-group",
		MaxWait:  1 * time.Second,
		MinBytes: 1,
		MaxBytes: 1_000_000,
	})
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var results []output.AuditRecord
	for len(results) < len(want) {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			t.Fatalf("failed to read from kafka: %v", err)
		}
		var rec output.AuditRecord
		require.NoError(t, json.Unmarshal(m.Value, &rec))
		if _, ok := want[rec.FirstID]; ok {
			results = append(results, rec)
		}
	}
	return results
}
