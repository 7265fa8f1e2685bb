// Package alc parses ALC datagrams (RFC 5775 §3): the LCT header, its
// EXT_FDT/EXT_FTI/EXT_CENC extensions, and the FEC payload ID + symbol data
// that follow. Parsing is zero-copy — returned views alias the input slice.
package alc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"flutecore/pkg/ident"
	"flutecore/pkg/lct"
	"flutecore/pkg/oti"
)

var (
	// ErrMalformedHeader covers any structurally invalid LCT/ALC header.
	ErrMalformedHeader = errors.New("alc: malformed header")
	// ErrUnsupportedEncoding is returned when EXT_CENC names anything but
	// the null content encoding — this receiver never transparently
	// decompresses object payloads.
	ErrUnsupportedEncoding = errors.New("alc: unsupported content encoding")
)

// FDTExt is the decoded EXT_FDT extension: the FDT instance id, taken from
// the low 16 bits of the extension word. No other bit of the extension is
// decoded.
type FDTExt struct {
	InstanceID uint16
}

// Packet is one parsed ALC datagram.
type Packet struct {
	Tsi uint64
	Toi ident.Uint128
	Cp  uint8 // LCT codepoint; parseExtFTI takes the FEC encoding id from it

	CloseObject  bool
	CloseSession bool

	Oti            oti.FecOti
	HasOti         bool
	FDT            *FDTExt
	ContentEncoding lct.Cenc

	// Data is the full original datagram; Payload is the FEC-payload-ID +
	// symbol-data region starting at PayloadOffset.
	Data          []byte
	PayloadOffset int
}

// Payload returns the FEC payload ID + symbol data region of the datagram.
func (p *Packet) Payload() []byte {
	return p.Data[p.PayloadOffset:]
}

// Parse decodes one ALC datagram. LCT version must be 1, and EXT_CENC (when
// present) must name the null content encoding — anything else is rejected
// outright rather than silently passed through.
func Parse(data []byte) (*Packet, error) {
	hdr, err := lct.ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	cenc := lct.CencNull
	if ext, err := lct.GetExt(data, hdr, uint8(lct.ExtCenc)); err == nil && ext != nil {
		c, err := parseCenc(ext)
		if err != nil {
			return nil, err
		}
		if c != lct.CencNull {
			return nil, fmt.Errorf("%w: content encoding %s", ErrUnsupportedEncoding, c)
		}
		cenc = c
	}

	var fdtExt *FDTExt
	if hdr.Toi.Equal(lct.TOIFdt) {
		if ext, err := lct.GetExt(data, hdr, uint8(lct.ExtFdt)); err == nil && ext != nil {
			f, err := parseExtFDT(ext)
			if err != nil {
				return nil, err
			}
			fdtExt = f
		}
	}

	var fecOti oti.FecOti
	hasOti := false
	if ext, err := lct.GetExt(data, hdr, uint8(lct.ExtFti)); err == nil && ext != nil {
		o, err := parseExtFTI(ext, hdr.Cp)
		if err != nil {
			return nil, err
		}
		fecOti = o
		hasOti = true
	}

	payloadOffset := int(hdr.Len)
	if payloadOffset > len(data) {
		return nil, fmt.Errorf("%w: header length exceeds packet size", ErrMalformedHeader)
	}

	return &Packet{
		Tsi:             hdr.Tsi,
		Toi:             hdr.Toi,
		Cp:              hdr.Cp,
		CloseObject:     hdr.CloseObject,
		CloseSession:    hdr.CloseSession,
		Oti:             fecOti,
		HasOti:          hasOti,
		FDT:             fdtExt,
		ContentEncoding: cenc,
		Data:            data,
		PayloadOffset:   payloadOffset,
	}, nil
}

func parseCenc(ext []byte) (lct.Cenc, error) {
	if len(ext) != 4 {
		return lct.CencNull, fmt.Errorf("%w: wrong EXT_CENC length %d", ErrMalformedHeader, len(ext))
	}
	return lct.Cenc(ext[1]), nil
}

func parseExtFDT(ext []byte) (*FDTExt, error) {
	if len(ext) != 4 {
		return nil, fmt.Errorf("%w: wrong EXT_FDT length %d", ErrMalformedHeader, len(ext))
	}
	val := binary.BigEndian.Uint32(ext)
	instanceID := uint16(val & 0xFFFF)
	return &FDTExt{InstanceID: instanceID}, nil
}

// parseExtFTI decodes this receiver's EXT_FTI wire layout:
//
//	byte 0:     HET (64)
//	byte 1:     HEL, in 32-bit words (4 for CompactNoCode, 5 for Raptor10)
//	bytes 2-3:  reserved
//	bytes 4-9:  Transfer-Length, 48-bit big-endian
//	bytes 10-11: reserved
//	bytes 12-13: Encoding-Symbol-Length, 16-bit big-endian
//	bytes 14-15: Maximum-Source-Block-Length, 16-bit big-endian
//	bytes 16-19 (Raptor10 only): scheme_specific_info (Z hi, Z lo, N, Al)
func parseExtFTI(ext []byte, codepoint uint8) (oti.FecOti, error) {
	if len(ext) != 16 && len(ext) != 20 {
		return oti.FecOti{}, fmt.Errorf("%w: wrong EXT_FTI length %d", ErrMalformedHeader, len(ext))
	}

	encID, err := oti.FECEncodingIDFromByte(codepoint)
	if err != nil {
		return oti.FecOti{}, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	var transferLenBuf [8]byte
	copy(transferLenBuf[2:], ext[4:10])
	transferLength := binary.BigEndian.Uint64(transferLenBuf[:])

	esl := binary.BigEndian.Uint16(ext[12:14])
	maxSBL := binary.BigEndian.Uint16(ext[14:16])

	var schemeSpecific []byte
	if len(ext) == 20 {
		schemeSpecific = append([]byte(nil), ext[16:20]...)
	}

	return oti.FecOti{
		FecEncodingID:        encID,
		TransferLength:       transferLength,
		EncodingSymbolLength: uint32(esl),
		MaxSourceBlockLength: uint32(maxSBL),
		SchemeSpecific:       schemeSpecific,
	}, nil
}

// PushExtFTI appends an EXT_FTI extension for o onto data, incrementing the
// already-pushed LCT header's length field. Used by tests to construct
// well-formed packets, and is the wire-format mirror of parseExtFTI.
func PushExtFTI(data *[]byte, o oti.FecOti) {
	hel := uint8(4)
	if o.FecEncodingID == oti.Raptor10 {
		hel = 5
	}

	buf := make([]byte, hel*4)
	buf[0] = uint8(lct.ExtFti)
	buf[1] = hel

	var tl [8]byte
	binary.BigEndian.PutUint64(tl[:], o.TransferLength)
	copy(buf[4:10], tl[2:])

	binary.BigEndian.PutUint16(buf[12:14], uint16(o.EncodingSymbolLength))
	binary.BigEndian.PutUint16(buf[14:16], uint16(o.MaxSourceBlockLength))

	if o.FecEncodingID == oti.Raptor10 {
		copy(buf[16:20], o.SchemeSpecific)
	}

	*data = append(*data, buf...)
	lct.IncHdrLen(*data, hel)
}

// PushExtFDT appends an EXT_FDT extension carrying instanceID.
func PushExtFDT(data *[]byte, instanceID uint16) {
	val := uint32(lct.ExtFdt)<<24 | uint32(instanceID)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], val)
	*data = append(*data, buf[:]...)
	lct.IncHdrLen(*data, 1)
}
