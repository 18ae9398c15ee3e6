//go:build linux || darwin

package wal

import (
	"os"

	"golang.org/x/sys/unix"
)

// MmapWriter maps a whole preallocated segment and copies records into it.
// Close truncates the file to the bytes actually written.
type MmapWriter struct {
	file           *os.File
	data           []byte
	offset         int
	segmentSize    int
	lastSyncOffset int
}

func NewMmapWriter(size int) *MmapWriter {
	return &MmapWriter{segmentSize: size}
}

func (w *MmapWriter) Open(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}

	// drop old contents so unwritten space reads as zero padding
	if err := f.Truncate(0); err != nil {
		f.Close()
		return err
	}
	if err := f.Truncate(int64(w.segmentSize)); err != nil {
		f.Close()
		return err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, w.segmentSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return err
	}

	w.file = f
	w.data = data
	w.offset = 0
	w.lastSyncOffset = 0
	return nil
}

func (w *MmapWriter) Write(p []byte) (int, error) {
	if w.data == nil {
		return 0, os.ErrInvalid
	}
	if len(p)+w.offset > w.segmentSize {
		return 0, unix.ENOMEM
	}
	copy(w.data[w.offset:], p)
	w.offset += len(p)
	return len(p), nil
}

// Flush msyncs the pages written since the previous flush.
func (w *MmapWriter) Flush() error {
	if w.data == nil || w.offset == 0 {
		return nil
	}

	pageSize := unix.Getpagesize()
	start := w.lastSyncOffset - (w.lastSyncOffset % pageSize)
	end := w.offset
	if end-start <= 0 {
		return nil
	}

	if err := unix.Msync(w.data[start:end], unix.MS_SYNC); err != nil {
		return err
	}
	w.lastSyncOffset = end
	return nil
}

func (w *MmapWriter) Close() error {
	if w.data != nil {
		_ = unix.Munmap(w.data)
		w.data = nil
	}

	if w.file != nil {
		f := w.file
		w.file = nil
		if err := f.Truncate(int64(w.offset)); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}
