// Package snowflake generates 64-bit, time-ordered identifiers without
// coordination between nodes.
//
// # Layout
//
// An identifier is packed most-significant first:
//
//	| timestamp (42 bits) | data center (5) | worker (5) | sequence (12) |
//
// The timestamp is the number of milliseconds elapsed since the generator's
// epoch. The sequence disambiguates identifiers issued within the same
// millisecond and resets to 0 whenever the clock advances.
//
// # Guarantees
//
// Identifiers from one Generator are strictly increasing in issuance order.
// Identifiers from generators with distinct (data center, worker) pairs never
// collide. A clock reading earlier than the last issued millisecond fails with
// ErrClockMovedBackwards instead of risking a duplicate. When all 4096
// sequence values of a millisecond are used up, NextID blocks until the clock
// reaches the next millisecond.
//
// A Generator is not safe for concurrent use. Serialize calls to NextID, or
// give every goroutine its own Generator with a distinct worker ID.
//
// Usage
//
//	g, err := snowflake.New(workerID, dataCenterID, epochMillis)
//	if err != nil {
//		return err
//	}
//	id, err := g.NextID()
package snowflake
