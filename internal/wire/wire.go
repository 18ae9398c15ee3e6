// Package wire implements the binary TCP protocol for fetching ids.
//
// A request is a 4-byte little-endian count. A response starts with a status
// byte; on StatusOK it continues with a 4-byte little-endian count n and n
// 8-byte little-endian ids. Any other status ends the exchange and the server
// closes the connection.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	StatusOK             byte = 0x00
	StatusInvalidCount   byte = 0x01
	StatusGenerateFailed byte = 0x02
	StatusUnavailable    byte = 0x03
)

// MaxCount caps the ids requested in one frame, independently of the server's
// own batch limit.
const MaxCount = 1 << 16

type StatusError struct {
	Status byte
}

func (e *StatusError) Error() string {
	switch e.Status {
	case StatusInvalidCount:
		return "server rejected id count"
	case StatusGenerateFailed:
		return "server failed to generate ids"
	case StatusUnavailable:
		return "server unavailable"
	default:
		return fmt.Sprintf("unexpected status 0x%02X", e.Status)
	}
}

func WriteRequest(w io.Writer, n uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], n)
	_, err := w.Write(buf[:])
	return err
}

func ReadRequest(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// AppendIDs appends a StatusOK response carrying ids to dst.
func AppendIDs(dst []byte, ids []uint64) []byte {
	dst = append(dst, StatusOK)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(ids)))
	for _, id := range ids {
		dst = binary.LittleEndian.AppendUint64(dst, id)
	}
	return dst
}

func WriteStatus(w io.Writer, status byte) error {
	_, err := w.Write([]byte{status})
	return err
}

// ReadResponse reads one response. A non-OK status is returned as
// *StatusError.
func ReadResponse(r io.Reader) ([]uint64, error) {
	var status [1]byte
	if _, err := io.ReadFull(r, status[:]); err != nil {
		return nil, err
	}
	if status[0] != StatusOK {
		return nil, &StatusError{Status: status[0]}
	}

	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n > MaxCount {
		return nil, fmt.Errorf("response carries %d ids, limit is %d", n, MaxCount)
	}

	body := make([]byte, 8*int(n))
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint64(body[8*i:])
	}
	return ids, nil
}
