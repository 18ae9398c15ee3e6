package output

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// AuditRecord describes one served request: the contiguous run of ids
// handed out to a single caller.
type AuditRecord struct {
	DataCenterID uint32    `json:"data_center_id"`
	WorkerID     uint32    `json:"worker_id"`
	FirstID      uint64    `json:"first_id,string"`
	LastID       uint64    `json:"last_id,string"`
	Count        int       `json:"count"`
	IssuedAt     time.Time `json:"issued_at"`
}

type AuditBatch struct {
	Records []AuditRecord
	NodeKey string
}

type Output interface {
	SendBatch(ctx context.Context, batch AuditBatch) error
	Close(ctx context.Context) error
}

// NodeKey identifies a generator node, used as the partitioning key.
func NodeKey(dataCenterID, workerID uint32) string {
	return fmt.Sprintf("%d-%d", dataCenterID, workerID)
}

func encodeRecord(r AuditRecord) ([]byte, error) {
	return json.Marshal(r)
}

func decodeRecord(data []byte, r *AuditRecord) error {
	return json.Unmarshal(data, r)
}
