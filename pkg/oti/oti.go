// Package oti models FEC Object Transmission Information (FEC OTI, RFC
// 5052 §3.2): the encoding id and the per-scheme parameters a receiver
// needs to reconstruct a file's block partitioning before a single symbol
// arrives.
package oti

import (
	"errors"
	"fmt"
)

// FECEncodingID enumerates the FEC schemes this receiver recognizes. Only
// NoCode and Raptor10 are implemented; the rest are accepted at the
// FDT/FTI-parsing layer so a session using them is reported with
// ErrUnknownScheme rather than silently misparsed.
type FECEncodingID uint8

const (
	NoCode FECEncodingID = iota
	Raptor10
	ReedSolomonGF2M
	LDPCStaircase
	LDPCTriangle
	ReedSolomonGF28
	RaptorQ
)

func (f FECEncodingID) String() string {
	switch f {
	case NoCode:
		return "CompactNoCode"
	case Raptor10:
		return "Raptor10"
	case ReedSolomonGF2M:
		return "ReedSolomonGF2M"
	case LDPCStaircase:
		return "LDPCStaircase"
	case LDPCTriangle:
		return "LDPCTriangle"
	case ReedSolomonGF28:
		return "ReedSolomonGF28"
	case RaptorQ:
		return "RaptorQ"
	default:
		return fmt.Sprintf("Unknown FECEncodingID (%d)", uint8(f))
	}
}

// Implemented reports whether this receiver has a File backend for f.
func (f FECEncodingID) Implemented() bool {
	return f == NoCode || f == Raptor10
}

// FECEncodingIDFromByte decodes the LCT codepoint byte into a FECEncodingID.
// Unlike the sender side, the receiver must not reject values it merely
// doesn't implement here — that rejection happens when a File is allocated,
// so an unsupported scheme is reported per-file (spec §3) instead of
// dropping the packet that carries its FTI.
func FECEncodingIDFromByte(v byte) (FECEncodingID, error) {
	if v > uint8(RaptorQ) {
		return 0, fmt.Errorf("oti: codepoint %d is not a recognized FEC encoding id", v)
	}
	return FECEncodingID(v), nil
}

// ErrMissingSchemeSpecific is returned when a Raptor10 FEC OTI carries a
// scheme_specific_info field of the wrong length (must be exactly 4 bytes).
var ErrMissingSchemeSpecific = errors.New("oti: missing or malformed scheme-specific info")

// FecOti is the fully resolved FEC Object Transmission Information for one
// file (or the session default, before any per-file override is applied).
type FecOti struct {
	FecEncodingID FECEncodingID

	// TransferLength is the total number of octets in the object — this is
	// the FEC OTI Transfer-Length, independent of (and authoritative over)
	// any Content-Length value in the FDT.
	TransferLength uint64

	// EncodingSymbolLength is T, the fixed size in bytes of every encoding
	// symbol in this object (the last source symbol may be shorter).
	EncodingSymbolLength uint32

	// MaxSourceBlockLength is K_max, the largest number of source symbols
	// permitted in a single source block.
	MaxSourceBlockLength uint32

	// SchemeSpecific carries the raw scheme_specific_info bytes. For
	// Raptor10 this is exactly 4 bytes: (Z hi, Z lo, N, Al) per RFC 5053
	// §3.2 — number of source blocks (16-bit BE), number of sub-blocks,
	// and the symbol alignment parameter.
	SchemeSpecific []byte
}

// RaptorParams unpacks the Raptor10 scheme-specific info.
func (o FecOti) RaptorParams() (sourceBlocks uint16, subBlocks uint8, alignment uint8, err error) {
	if len(o.SchemeSpecific) != 4 {
		return 0, 0, 0, ErrMissingSchemeSpecific
	}
	sourceBlocks = uint16(o.SchemeSpecific[0])<<8 | uint16(o.SchemeSpecific[1])
	subBlocks = o.SchemeSpecific[2]
	alignment = o.SchemeSpecific[3]
	return sourceBlocks, subBlocks, alignment, nil
}

// NewNoCode builds FEC OTI for the Compact No-Code scheme (RFC 5052 §9.1).
func NewNoCode(encodingSymbolLength uint32, maxSourceBlockLength uint32, transferLength uint64) FecOti {
	return FecOti{
		FecEncodingID:        NoCode,
		TransferLength:       transferLength,
		EncodingSymbolLength: encodingSymbolLength,
		MaxSourceBlockLength: maxSourceBlockLength,
	}
}

// NewRaptor10 builds FEC OTI for the Raptor10 scheme (RFC 5053), packing
// sourceBlocks/subBlocks/alignment into the scheme_specific_info bytes.
func NewRaptor10(encodingSymbolLength uint32, transferLength uint64, sourceBlocks uint16, subBlocks uint8, alignment uint8) FecOti {
	return FecOti{
		FecEncodingID:        Raptor10,
		TransferLength:       transferLength,
		EncodingSymbolLength: encodingSymbolLength,
		MaxSourceBlockLength: 8192, // RFC 5053 §4.2 Kmax
		SchemeSpecific:       []byte{byte(sourceBlocks >> 8), byte(sourceBlocks), subBlocks, alignment},
	}
}

// MaxSourceBlockNumber returns the largest Source Block Number this scheme's
// wire format can represent, used to bounds-check an incoming SBN.
func (o FecOti) MaxSourceBlockNumber() uint64 {
	switch o.FecEncodingID {
	case NoCode, Raptor10, ReedSolomonGF2M:
		return uint64(^uint16(0))
	case ReedSolomonGF28:
		return uint64(^uint8(0))
	default:
		return uint64(^uint32(0))
	}
}
