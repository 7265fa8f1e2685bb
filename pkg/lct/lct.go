// Package lct implements the Layered Coding Transport header (RFC 5651)
// that ALC (RFC 5775) wraps: congestion control info (CCI), transport
// session/object identifiers (TSI/TOI), and the header extension chain
// FDT/FTI/CENC ride on.
package lct

import (
	"encoding/binary"
	"errors"
	"fmt"

	"flutecore/pkg/ident"
)

// Cenc identifies the content encoding applied to an object's payload
// before FEC encoding (EXT_CENC, RFC 5775 §4.1).
type Cenc uint8

const (
	CencNull Cenc = iota
	CencZlib
	CencDeflate
	CencGzip
)

// Ext identifies an LCT header extension type (HET byte).
type Ext uint8

const (
	ExtFdt  Ext = 192
	ExtFti  Ext = 64
	ExtCenc Ext = 193
	ExtTime Ext = 2
)

// TOIFdt is the TOI reserved for File Delivery Table objects (RFC 6726 §3.2).
var TOIFdt = ident.Zero

// Header is a parsed (or about-to-be-built) LCT header.
type Header struct {
	Len             uint64        // header length in bytes
	Cci             ident.Uint128 // congestion control information
	Tsi             uint64        // transport session identifier
	Toi             ident.Uint128 // transport object identifier
	Cp              uint8         // codepoint (FEC encoding id hint)
	CloseObject     bool
	CloseSession    bool
	HeaderExtOffset uint32 // byte offset of the first header extension
}

func (e Ext) String() string {
	switch e {
	case ExtFdt:
		return "FDT"
	case ExtFti:
		return "FTI"
	case ExtCenc:
		return "Cenc"
	case ExtTime:
		return "Time"
	default:
		return "Unknown"
	}
}

func (c Cenc) String() string {
	switch c {
	case CencNull:
		return "Null"
	case CencZlib:
		return "Zlib"
	case CencDeflate:
		return "Deflate"
	case CencGzip:
		return "Gzip"
	default:
		return "Unknown"
	}
}

// fieldWidths records, in bytes, how wide each variable-length identifier
// (CCI/TSI/TOI) is going to be encoded on the wire. RFC 5651 only allows
// each width to land on a 2-byte boundary, which is what lets the flag
// word describe it with one or two bits instead of a byte count.
type fieldWidths struct {
	cci int
	tsi int
	toi int
}

// significantBytes reports how many trailing bytes of a big-endian value
// are needed to represent its highest set bit; 0 for an all-zero value.
func significantBytes(be []byte) int {
	for i, b := range be {
		if b != 0 {
			return len(be) - i
		}
	}
	return 0
}

// ceilToStep rounds n up to the next multiple of step, never going below
// floor. Used to turn a raw byte count into a wire-legal field width.
func ceilToStep(n, step, floor int) int {
	if n == 0 {
		return floor
	}
	w := (n + step - 1) / step * step
	if w < floor {
		return floor
	}
	return w
}

// widthsFor picks wire widths for one header's identifier triple. TSI and
// TOI widths double as the S/O/H presence bits directly, so they stay on
// 2-byte boundaries; CCI is computed the same way and then coarsened to a
// 4-byte boundary by presenceBits below, since the C field only has two
// bits to name four widths (4/8/12/16).
func widthsFor(cci ident.Uint128, tsi uint64, toi ident.Uint128) fieldWidths {
	var tsiBuf [8]byte
	binary.BigEndian.PutUint64(tsiBuf[:], tsi)

	return fieldWidths{
		cci: ceilToStep(significantBytes(cci.ToBytesBE()), 2, 0),
		tsi: ceilToStep(significantBytes(tsiBuf[:]), 2, 2),
		toi: ceilToStep(significantBytes(toi.ToBytesBE()), 2, 2),
	}
}

// presenceBits derives the flag-word C/S/O/H groups from a set of chosen
// field widths (RFC 5651 §4).
func (w fieldWidths) presenceBits() (c, s, o, h uint32) {
	switch {
	case w.cci <= 4:
		c = 0
	case w.cci <= 8:
		c = 1
	case w.cci <= 12:
		c = 2
	default:
		c = 3
	}
	halfWordTSI := uint32(w.tsi&2) >> 1
	halfWordTOI := uint32(w.toi&2) >> 1
	h = halfWordTSI | halfWordTOI
	o = uint32(w.toi>>2) & 0x3
	s = uint32(w.tsi>>2) & 1
	return
}

// headerWord is the fixed 4-byte prefix of an LCT header: version, the
// C/PSI/S/O/H presence bits, the close-object/close-session flags, the
// header length in words, and the codepoint byte. PushHeader and
// ParseHeader share this type so the bit layout is defined exactly once.
type headerWord struct {
	version      uint8
	cciBits      uint32
	psi          uint8
	tsiBit       uint32
	toiBits      uint32
	halfWord     uint32
	closeSession bool
	closeObject  bool
	hdrLenWords  uint8
	codepoint    uint8
}

func (w headerWord) encode() [4]byte {
	var a, b uint32
	if w.closeSession {
		a = 1
	}
	if w.closeObject {
		b = 1
	}

	word := uint32(w.codepoint) |
		uint32(w.hdrLenWords)<<8 |
		b<<16 |
		a<<17 |
		w.halfWord<<20 |
		w.toiBits<<21 |
		w.tsiBit<<23 |
		uint32(w.psi)<<24 |
		w.cciBits<<26 |
		uint32(w.version)<<28

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], word)
	return buf
}

func decodeHeaderWord(b []byte) headerWord {
	flags0, flags1, codepoint := b[0], b[1], b[3]
	return headerWord{
		version:      flags0 >> 4,
		cciBits:      uint32(flags0>>2) & 0x3,
		tsiBit:       uint32(flags1>>7) & 0x1,
		toiBits:      uint32(flags1>>5) & 0x3,
		halfWord:     uint32(flags1>>4) & 0x1,
		closeSession: (flags1>>1)&0x1 != 0,
		closeObject:  flags1&0x1 != 0,
		hdrLenWords:  b[2],
		codepoint:    codepoint,
	}
}

// fieldSpans translates a decoded headerWord's presence bits back into
// byte lengths for the CCI, TSI and TOI fields that follow it.
func (w headerWord) fieldSpans() (cciLen, tsiLen, toiLen uint32) {
	cciLen = (w.cciBits + 1) << 2
	tsiLen = (w.tsiBit << 2) + (w.halfWord << 1)
	toiLen = (w.toiBits << 2) + (w.halfWord << 1)
	return
}

// PushHeader appends a built LCT header to data.
func PushHeader(
	data *[]byte,
	psi uint8,
	cci ident.Uint128,
	tsi uint64,
	toi ident.Uint128,
	codepoint uint8,
	closeObject bool,
	closeSession bool,
) {
	widths := widthsFor(cci, tsi, toi)
	c, s, o, h := widths.presenceBits()

	hw := headerWord{
		version:      1,
		cciBits:      c,
		psi:          psi,
		tsiBit:       s,
		toiBits:      o,
		halfWord:     h,
		closeSession: closeSession,
		closeObject:  closeObject,
		hdrLenWords:  uint8(2 + o + s + h + c),
		codepoint:    codepoint,
	}
	word := hw.encode()
	*data = append(*data, word[:]...)

	cciNet := cci.ToBytesBE()
	*data = append(*data, cciNet[len(cciNet)-int((c+1)<<2):]...)

	var tsiBuf [8]byte
	binary.BigEndian.PutUint64(tsiBuf[:], tsi)
	*data = append(*data, tsiBuf[8-int((s<<2)+(h<<1)):]...)

	toiNet := toi.ToBytesBE()
	*data = append(*data, toiNet[len(toiNet)-int((o<<2)+(h<<1)):]...)
}

// IncHdrLen bumps the header-length byte of an already-pushed LCT header by
// val 32-bit words, used after appending header extensions.
func IncHdrLen(data []byte, val uint8) {
	data[2] += val
}

// ParseHeader parses an LCT header at the start of data.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < 4 {
		return nil, errors.New("lct: packet too short for header length field")
	}

	hdrLenBytes := int(data[2]) << 2
	if hdrLenBytes > len(data) {
		return nil, fmt.Errorf("lct: header size %d exceeds packet size %d", hdrLenBytes, len(data))
	}

	hw := decodeHeaderWord(data)
	if hw.version != 1 {
		return nil, fmt.Errorf("lct: unsupported LCT version %d", hw.version)
	}

	cciLen, tsiLen, toiLen := hw.fieldSpans()
	if cciLen > 16 || tsiLen > 8 || toiLen > 16 {
		return nil, fmt.Errorf("lct: implausible field widths cci=%d tsi=%d toi=%d", cciLen, tsiLen, toiLen)
	}

	cciFrom := 4
	cciTo := cciFrom + int(cciLen)
	tsiTo := cciTo + int(tsiLen)
	toiTo := tsiTo + int(toiLen)
	extOffset := uint32(toiTo)

	if toiTo > len(data) {
		return nil, fmt.Errorf("lct: TOI ends at offset %d but packet is %d bytes", toiTo, len(data))
	}
	if extOffset > uint32(hdrLenBytes) {
		return nil, errors.New("lct: header extension offset falls outside the LCT header")
	}

	var cciBuf [16]byte
	var tsiBuf [8]byte
	var toiBuf [16]byte
	copy(cciBuf[16-int(cciLen):], data[cciFrom:cciTo])
	copy(tsiBuf[8-int(tsiLen):], data[cciTo:tsiTo])
	copy(toiBuf[16-int(toiLen):], data[tsiTo:toiTo])

	cci, err := ident.FromBytesBE(cciBuf[:])
	if err != nil {
		return nil, fmt.Errorf("lct: decoding CCI: %w", err)
	}
	toi, err := ident.FromBytesBE(toiBuf[:])
	if err != nil {
		return nil, fmt.Errorf("lct: decoding TOI: %w", err)
	}

	return &Header{
		Len:             uint64(hdrLenBytes),
		Cci:             cci,
		Tsi:             binary.BigEndian.Uint64(tsiBuf[:]),
		Toi:             toi,
		Cp:              hw.codepoint,
		CloseObject:     hw.closeObject,
		CloseSession:    hw.closeSession,
		HeaderExtOffset: extOffset,
	}, nil
}

// extHeader is one entry of the header extension chain that follows the
// fixed LCT fields: a type byte (HET), a length in 32-bit words for
// variable-length extensions, and the raw bytes including that prefix.
type extHeader struct {
	typ   byte
	bytes []byte
}

// nextExt peels the first extension off the front of buf, RFC 5651 §4.2:
// HET >= 128 marks a fixed 4-byte extension with no explicit length byte;
// anything else carries its length in the second byte.
func nextExt(buf []byte) (extHeader, []byte, error) {
	het := buf[0]

	length := 4
	if het < 128 {
		length = int(buf[1]) << 2
	}
	if length == 0 || length > len(buf) {
		return extHeader{}, nil, fmt.Errorf("lct: bad extension size %d/%d het=%d", length, len(buf), het)
	}

	return extHeader{typ: het, bytes: buf[:length]}, buf[length:], nil
}

// GetExt scans the header extension chain for the first extension matching
// ext, returning its raw bytes (HET/HEL included) or nil if absent.
func GetExt(data []byte, lct *Header, ext uint8) ([]byte, error) {
	if uint64(lct.HeaderExtOffset) > lct.Len {
		return nil, fmt.Errorf("lct: invalid header_ext_offset=%d len=%d", lct.HeaderExtOffset, lct.Len)
	}

	remaining := data[lct.HeaderExtOffset:lct.Len]
	for len(remaining) >= 4 {
		ent, rest, err := nextExt(remaining)
		if err != nil {
			return nil, err
		}
		if ent.typ == ext {
			return ent.bytes, nil
		}
		remaining = rest
	}
	return nil, nil
}
