//go:build !linux && !darwin

package wal

// NewMmapWriter falls back to the buffered writer where mmap is unavailable.
func NewMmapWriter(_ int) Writer {
	return NewBufferedWriter()
}
