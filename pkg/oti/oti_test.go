package oti

import "testing"

func TestNewNoCode(t *testing.T) {
	o := NewNoCode(1024, 64, 100000)
	if o.FecEncodingID != NoCode {
		t.Fatalf("expected NoCode, got %v", o.FecEncodingID)
	}
	if !o.FecEncodingID.Implemented() {
		t.Error("NoCode should be implemented")
	}
}

func TestNewRaptor10RoundTrip(t *testing.T) {
	o := NewRaptor10(1024, 500000, 12, 4, 4)
	sb, nb, al, err := o.RaptorParams()
	if err != nil {
		t.Fatalf("RaptorParams: %v", err)
	}
	if sb != 12 || nb != 4 || al != 4 {
		t.Errorf("got (%d,%d,%d), want (12,4,4)", sb, nb, al)
	}
}

func TestRaptorParamsMissing(t *testing.T) {
	o := NewNoCode(1024, 64, 100)
	if _, _, _, err := o.RaptorParams(); err == nil {
		t.Error("expected ErrMissingSchemeSpecific for a non-Raptor10 OTI")
	}
}

func TestFECEncodingIDFromByte(t *testing.T) {
	id, err := FECEncodingIDFromByte(1)
	if err != nil || id != Raptor10 {
		t.Fatalf("got (%v, %v), want (Raptor10, nil)", id, err)
	}
	if _, err := FECEncodingIDFromByte(200); err == nil {
		t.Error("expected error for out-of-range codepoint")
	}
}

func TestImplemented(t *testing.T) {
	if ReedSolomonGF28.Implemented() {
		t.Error("ReedSolomonGF28 should not be reported implemented")
	}
	if !Raptor10.Implemented() {
		t.Error("Raptor10 should be reported implemented")
	}
}

func TestMaxSourceBlockNumber(t *testing.T) {
	o := NewNoCode(1024, 64, 100)
	if o.MaxSourceBlockNumber() != uint64(^uint16(0)) {
		t.Errorf("NoCode MaxSourceBlockNumber = %d, want %d", o.MaxSourceBlockNumber(), uint64(^uint16(0)))
	}
}
