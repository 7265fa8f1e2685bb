package alc

import (
	"encoding/binary"
	"fmt"
)

// Symbol is one encoding symbol extracted from a packet's payload: its
// source block number, encoding symbol id, and a zero-copy view of its
// bytes within the original datagram.
type Symbol struct {
	Sbn  uint32
	Esi  uint32
	Data []byte
}

// ErrShortPayload is returned when a payload is too short to carry even its
// FEC payload ID.
var ErrShortPayload = fmt.Errorf("%w: payload shorter than the FEC payload ID", ErrMalformedHeader)

// ParseSymbols splits an ALC payload (FEC payload ID + symbol data) into
// one or more Symbols. Both CompactNoCode and Raptor10 share the same
// 32-bit FEC payload ID layout (SBN:16 || ESI:16, network order); when the
// payload carries more than one symbol's worth of data (remaining > T) the
// extra symbols are implicitly contiguous, with ESI incrementing by one per
// emitted symbol.
func ParseSymbols(payload []byte, symbolLength uint32) ([]Symbol, error) {
	if len(payload) < 4 {
		return nil, ErrShortPayload
	}
	if symbolLength == 0 {
		return nil, fmt.Errorf("%w: zero encoding symbol length", ErrMalformedHeader)
	}

	sbn := binary.BigEndian.Uint16(payload[0:2])
	esi := binary.BigEndian.Uint16(payload[2:4])
	data := payload[4:]

	var symbols []Symbol
	for remaining := len(data); remaining > 0; {
		n := symbolLength
		if uint32(remaining) < n {
			n = uint32(remaining)
		}
		offset := len(data) - remaining
		symbols = append(symbols, Symbol{
			Sbn:  uint32(sbn),
			Esi:  uint32(esi),
			Data: data[offset : offset+int(n)],
		})
		remaining -= int(n)
		esi++
	}

	return symbols, nil
}

// PushSymbol appends a single symbol's FEC payload ID + data onto data,
// used by tests to build well-formed ALC payloads.
func PushSymbol(buf *[]byte, sbn, esi uint32, symbolData []byte) {
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(sbn))
	binary.BigEndian.PutUint16(hdr[2:4], uint16(esi))
	*buf = append(*buf, hdr[:]...)
	*buf = append(*buf, symbolData...)
}
