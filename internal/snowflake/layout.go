package snowflake

import "time"

const (
	SequenceBits     = 12
	WorkerIDBits     = 5
	DataCenterIDBits = 5
	TimestampBits    = 64 - TimestampShift

	WorkerIDShift     = SequenceBits
	DataCenterIDShift = SequenceBits + WorkerIDBits
	TimestampShift    = SequenceBits + WorkerIDBits + DataCenterIDBits

	MaxSequence     = 1<<SequenceBits - 1
	MaxWorkerID     = 1<<WorkerIDBits - 1
	MaxDataCenterID = 1<<DataCenterIDBits - 1
	MaxTimestamp    = 1<<TimestampBits - 1
)

// Parts holds the decoded bit fields of an identifier.
type Parts struct {
	Timestamp    int64 // milliseconds since the generator epoch
	DataCenterID uint32
	WorkerID     uint32
	Sequence     uint32
}

// Decompose splits id into its bit fields.
func Decompose(id uint64) Parts {
	return Parts{
		Timestamp:    int64(id >> TimestampShift),
		DataCenterID: uint32((id >> DataCenterIDShift) & MaxDataCenterID),
		WorkerID:     uint32((id >> WorkerIDShift) & MaxWorkerID),
		Sequence:     uint32(id & MaxSequence),
	}
}

// Compose packs p into an identifier. Fields wider than their bit width are
// truncated.
func Compose(p Parts) uint64 {
	return uint64(p.Timestamp&MaxTimestamp)<<TimestampShift |
		uint64(p.DataCenterID&MaxDataCenterID)<<DataCenterIDShift |
		uint64(p.WorkerID&MaxWorkerID)<<WorkerIDShift |
		uint64(p.Sequence&MaxSequence)
}

// Time returns the wall-clock time encoded in p for the given epoch.
func (p Parts) Time(epochMillis int64) time.Time {
	return time.UnixMilli(p.Timestamp + epochMillis)
}
