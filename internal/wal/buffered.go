package wal

import (
	"bufio"
	"os"
)

// BufferedWriter writes through a bufio.Writer and fsyncs on Flush.
type BufferedWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func NewBufferedWriter() *BufferedWriter {
	return &BufferedWriter{}
}

func (w *BufferedWriter) Open(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.writer = bufio.NewWriter(f)
	return nil
}

func (w *BufferedWriter) Write(p []byte) (int, error) {
	if w.writer == nil {
		return 0, os.ErrInvalid
	}
	return w.writer.Write(p)
}

func (w *BufferedWriter) Flush() error {
	if w.writer == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *BufferedWriter) Close() error {
	if w.writer != nil {
		if err := w.writer.Flush(); err != nil {
			return err
		}
	}
	if w.file != nil {
		err := w.file.Close()
		w.file, w.writer = nil, nil
		return err
	}
	return nil
}

