package ident

import "testing"

func TestBytesRoundTrip(t *testing.T) {
	u := Uint128{High: 0x1122334455667788, Low: 0x99aabbccddeeff00}
	b := u.ToBytesBE()
	got, err := FromBytesBE(b)
	if err != nil {
		t.Fatalf("FromBytesBE: %v", err)
	}
	if !got.Equal(u) {
		t.Fatalf("round trip mismatch: got %v want %v", got, u)
	}
}

func TestFromBytesBEWrongLength(t *testing.T) {
	if _, err := FromBytesBE([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short buffer")
	}
}

func TestZeroIsTOIReservedForFDT(t *testing.T) {
	if !Zero.IsZero() {
		t.Fatal("Zero should report IsZero")
	}
	if !FromUint64(0).Equal(Zero) {
		t.Fatal("FromUint64(0) should equal Zero")
	}
}

func TestLess(t *testing.T) {
	a := FromUint64(5)
	b := FromUint64(6)
	if !a.Less(b) || b.Less(a) {
		t.Fatalf("Less ordering wrong for %v, %v", a, b)
	}
	hi := Uint128{High: 1, Low: 0}
	if !b.Less(hi) {
		t.Fatal("any nonzero High should outrank a pure-Low value")
	}
}

func TestAddCarry(t *testing.T) {
	u := Uint128{Low: ^uint64(0)}
	res, carry := u.Add(FromUint64(1))
	if carry {
		t.Fatal("unexpected 128-bit carry-out: the sum fits in High after Low overflows")
	}
	if res.High != 1 || res.Low != 0 {
		t.Fatalf("unexpected add result: %+v", res)
	}
}
