// Package switchtab decodes packed-switch and sparse-switch payloads from
// the raw bytes of a dex file.
//
// A payload starts with a little-endian u16 identifier and a u16 entry
// count. Packed payloads (0x0100) hold a first key followed by one target
// per consecutive key. Sparse payloads (0x0200) hold all keys followed by
// all targets. Targets are relative to the address of the switch
// instruction, in 16-bit code units.
package switchtab

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/deepnoodle-ai/dexcfg/errors"
)

// Payload identifiers.
const (
	PackedIdent uint16 = 0x0100
	SparseIdent uint16 = 0x0200
)

// Kind is the encoding of a switch payload.
type Kind uint8

const (
	Packed Kind = iota + 1
	Sparse
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Packed:
		return "packed"
	case Sparse:
		return "sparse"
	default:
		return ""
	}
}

// Entry maps one switch key to a relative target.
type Entry struct {
	Key    int32
	Target int32
}

// Table is a decoded switch payload. Entries are in payload order.
type Table struct {
	Kind    Kind
	Entries []Entry
}

// Len returns the number of entries.
func (t Table) Len() int {
	return len(t.Entries)
}

// Reader fetches the switch table for a method whose first instruction
// is at file offset base. table is the absolute address of the payload
// within the method, in code units.
type Reader interface {
	ReadSwitchTable(base, table uint32) (Table, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(base, table uint32) (Table, error)

// ReadSwitchTable calls f(base, table).
func (f ReaderFunc) ReadSwitchTable(base, table uint32) (Table, error) {
	return f(base, table)
}

// Offset returns the file offset of a payload.
func Offset(base, table uint32) int64 {
	return int64(base) + 2*int64(table)
}

// Decode reads the payload at Offset(base, table) from r.
func Decode(r io.ReaderAt, base, table uint32) (Table, error) {
	off := Offset(base, table)
	var header [4]byte
	if err := readAt(r, header[:], off); err != nil {
		return Table{}, fmt.Errorf("reading switch payload header at 0x%x: %w", off, err)
	}
	ident := binary.LittleEndian.Uint16(header[0:2])
	size := int(binary.LittleEndian.Uint16(header[2:4]))

	switch ident {
	case PackedIdent:
		body := make([]byte, 4+4*size)
		if err := readAt(r, body, off+4); err != nil {
			return Table{}, fmt.Errorf("reading packed switch payload at 0x%x: %w", off, err)
		}
		first := int32(binary.LittleEndian.Uint32(body[0:4]))
		entries := make([]Entry, size)
		for i := range entries {
			at := 4 + 4*i
			entries[i] = Entry{
				Key:    first + int32(i),
				Target: int32(binary.LittleEndian.Uint32(body[at : at+4])),
			}
		}
		return Table{Kind: Packed, Entries: entries}, nil
	case SparseIdent:
		body := make([]byte, 8*size)
		if err := readAt(r, body, off+4); err != nil {
			return Table{}, fmt.Errorf("reading sparse switch payload at 0x%x: %w", off, err)
		}
		keys, targets := body[:4*size], body[4*size:]
		entries := make([]Entry, size)
		for i := range entries {
			at := 4 * i
			entries[i] = Entry{
				Key:    int32(binary.LittleEndian.Uint32(keys[at : at+4])),
				Target: int32(binary.LittleEndian.Uint32(targets[at : at+4])),
			}
		}
		return Table{Kind: Sparse, Entries: entries}, nil
	default:
		return Table{}, errors.Formatf(errors.E1004, "unknown switch payload identifier 0x%04x at file offset 0x%x", ident, off)
	}
}

// readAt fills buf, accepting io.EOF when the read was complete.
func readAt(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// BytesReader decodes payloads from an io.ReaderAt holding a whole dex file.
type BytesReader struct {
	r io.ReaderAt
}

// NewReader returns a Reader backed by r.
func NewReader(r io.ReaderAt) *BytesReader {
	return &BytesReader{r: r}
}

// ReadSwitchTable implements Reader.
func (b *BytesReader) ReadSwitchTable(base, table uint32) (Table, error) {
	return Decode(b.r, base, table)
}
