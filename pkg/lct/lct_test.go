package lct

import (
	"testing"

	"flutecore/pkg/ident"
)

func TestPushParseHeaderRoundTrip(t *testing.T) {
	var data []byte
	tsi := uint64(42)
	toi := ident.FromUint64(7)
	PushHeader(&data, 0, ident.Zero, tsi, toi, 0, false, false)

	hdr, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if hdr.Tsi != tsi {
		t.Errorf("Tsi = %d, want %d", hdr.Tsi, tsi)
	}
	if !hdr.Toi.Equal(toi) {
		t.Errorf("Toi = %v, want %v", hdr.Toi, toi)
	}
	if hdr.Len != uint64(len(data)) {
		t.Errorf("Len = %d, want %d", hdr.Len, len(data))
	}
}

func TestParseHeaderRejectsShortPacket(t *testing.T) {
	if _, err := ParseHeader([]byte{0, 0}); err == nil {
		t.Error("expected error for packet shorter than the header length field")
	}
}

func TestParseHeaderRejectsBadVersion(t *testing.T) {
	var data []byte
	PushHeader(&data, 0, ident.Zero, 1, ident.Zero, 0, false, false)
	data[0] = (data[0] &^ 0xF0) | (2 << 4) // force version 2
	if _, err := ParseHeader(data); err == nil {
		t.Error("expected rejection of LCT version != 1")
	}
}

func TestGetExtFindsPushedExtension(t *testing.T) {
	var data []byte
	PushHeader(&data, 0, ident.Zero, 1, ident.Zero, 0, false, false)

	ext := []byte{byte(ExtFdt), 1, 0, 5}
	data = append(data, ext...)
	IncHdrLen(data, 1)

	hdr, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	got, err := GetExt(data, hdr, uint8(ExtFdt))
	if err != nil {
		t.Fatalf("GetExt: %v", err)
	}
	if len(got) != 4 || got[3] != 5 {
		t.Errorf("GetExt returned %v, want a 4-byte EXT_FDT ending in 5", got)
	}
}

func TestGetExtAbsentReturnsNil(t *testing.T) {
	var data []byte
	PushHeader(&data, 0, ident.Zero, 1, ident.Zero, 0, false, false)
	hdr, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	got, err := GetExt(data, hdr, uint8(ExtFti))
	if err != nil {
		t.Fatalf("GetExt: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for an absent extension, got %v", got)
	}
}
