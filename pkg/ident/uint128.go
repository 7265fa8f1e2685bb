// Package ident provides the 128-bit identifier type used for LCT's CCI and
// TOI fields (RFC 5651 §4.2), along with the big-endian wire conversions the
// ALC/LCT layer needs to pack/unpack fields of variable byte width.
package ident

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Uint128 is a 128-bit unsigned integer, stored as two 64-bit halves.
// TOI only ever uses the low 112 bits and CCI the full 128, but one type
// serves both since LCT treats them identically on the wire.
type Uint128 struct {
	High uint64
	Low  uint64
}

// Zero is the TOI reserved for the FDT (RFC 6726 §3.2).
var Zero = Uint128{}

// FromUint64 builds a Uint128 from a plain 64-bit value.
func FromUint64(v uint64) Uint128 { return Uint128{Low: v} }

// ToBytesBE renders u as 16 big-endian bytes.
func (u Uint128) ToBytesBE() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], u.High)
	binary.BigEndian.PutUint64(buf[8:], u.Low)
	return buf
}

// FromBytesBE reconstructs a Uint128 from 16 big-endian bytes.
func FromBytesBE(b []byte) (Uint128, error) {
	if len(b) != 16 {
		return Uint128{}, fmt.Errorf("ident: FromBytesBE needs 16 bytes, got %d", len(b))
	}
	return Uint128{
		High: binary.BigEndian.Uint64(b[:8]),
		Low:  binary.BigEndian.Uint64(b[8:]),
	}, nil
}

// Equal reports whether u and v hold the same value.
func (u Uint128) Equal(v Uint128) bool {
	return u.High == v.High && u.Low == v.Low
}

// IsZero reports whether u is the reserved FDT TOI.
func (u Uint128) IsZero() bool {
	return u.High == 0 && u.Low == 0
}

// Less reports whether u < v.
func (u Uint128) Less(v Uint128) bool {
	if u.High != v.High {
		return u.High < v.High
	}
	return u.Low < v.Low
}

// Add computes u + v, reporting carry-out.
func (u Uint128) Add(v Uint128) (res Uint128, carry bool) {
	lo, c := bits.Add64(u.Low, v.Low, 0)
	hi, c2 := bits.Add64(u.High, v.High, c)
	return Uint128{High: hi, Low: lo}, c2 != 0
}

// ToUint64 truncates u to its low 64 bits, the range every TOI/TSI in this
// receiver actually uses (TOI is bounded to 112 bits by LCT but session
// identifiers in practice fit comfortably in 64).
func (u Uint128) ToUint64() uint64 {
	return u.Low
}

// String renders u as 32 lowercase hex digits (16 bytes, high half first).
func (u Uint128) String() string {
	return fmt.Sprintf("%016x%016x", u.High, u.Low)
}
