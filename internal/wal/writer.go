package wal

import "fmt"

// Writer appends to one segment file at a time. Open always starts the
// segment empty.
type Writer interface {
	Open(filename string) error
	Write(p []byte) (n int, err error)
	Flush() error
	Close() error
}

// New returns a writer of the given kind. segmentSize is only used by the
// mmap writer, which preallocates whole segments.
func New(kind string, segmentSize int) (Writer, error) {
	switch kind {
	case "", "buffered":
		return NewBufferedWriter(), nil
	case "mmap":
		if segmentSize <= 0 {
			return nil, fmt.Errorf("mmap writer requires a positive segment size")
		}
		return NewMmapWriter(segmentSize), nil
	default:
		return nil, fmt.Errorf("unsupported wal writer: %q", kind)
	}
}
