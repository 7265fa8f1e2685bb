package fdt

import (
	"testing"
	"time"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<FDT-Instance Expires="3900000000" FEC-OTI-FEC-Encoding-ID="0" FEC-OTI-Encoding-Symbol-Length="1400" FEC-OTI-Maximum-Source-Block-Length="64">
  <File TOI="1" Content-Location="a.bin" Content-Length="4096"/>
  <File TOI="2" Content-Location="b.bin" Content-Length="2048" FEC-OTI-FEC-Encoding-ID="1" FEC-OTI-Encoding-Symbol-Length="512" FEC-OTI-Maximum-Source-Block-Length="8192" FEC-OTI-Scheme-Specific-Info="AAEBAQ=="/>
</FDT-Instance>`

func TestParseBasicDocument(t *testing.T) {
	doc, err := Parse([]byte(sampleXML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Files) != 2 {
		t.Fatalf("got %d files, want 2", len(doc.Files))
	}
	f, ok := doc.FileByTOI(2)
	if !ok {
		t.Fatal("expected to find TOI=2")
	}
	if f.ContentLocation != "b.bin" {
		t.Errorf("Content-Location = %q, want b.bin", f.ContentLocation)
	}
}

func TestParseRejectsMissingRequiredAttribute(t *testing.T) {
	bad := `<FDT-Instance Expires="1"><File Content-Location="x"/></FDT-Instance>`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Error("expected ErrMissingRequiredAttribute for a File with no TOI")
	}
}

func TestEffectiveOtiFallsBackToSessionDefault(t *testing.T) {
	doc, err := Parse([]byte(sampleXML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f, _ := doc.FileByTOI(1)
	o, err := doc.EffectiveOti(f)
	if err != nil {
		t.Fatalf("EffectiveOti: %v", err)
	}
	if o.EncodingSymbolLength != 1400 || o.MaxSourceBlockLength != 64 {
		t.Errorf("got T=%d Kmax=%d, want 1400/64", o.EncodingSymbolLength, o.MaxSourceBlockLength)
	}
}

func TestEffectiveOtiPerFileOverride(t *testing.T) {
	doc, err := Parse([]byte(sampleXML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f, _ := doc.FileByTOI(2)
	o, err := doc.EffectiveOti(f)
	if err != nil {
		t.Fatalf("EffectiveOti: %v", err)
	}
	if o.EncodingSymbolLength != 512 || len(o.SchemeSpecific) != 4 {
		t.Errorf("got T=%d scheme_specific=%v, want T=512 and 4 bytes", o.EncodingSymbolLength, o.SchemeSpecific)
	}
}

func TestSerializeParseRoundTrip(t *testing.T) {
	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	doc, err := NewDocument(expires, []FileEntry{
		{TOI: "9", ContentLocation: "c.bin"},
	})
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}

	out, err := doc.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	back, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse(Serialize(doc)): %v", err)
	}
	if len(back.Files) != 1 || back.Files[0].TOI != "9" || back.Files[0].ContentLocation != "c.bin" {
		t.Fatalf("round-tripped files = %+v, want one File TOI=9 c.bin", back.Files)
	}

	gotExpires, err := back.ExpirationDate()
	if err != nil {
		t.Fatalf("ExpirationDate: %v", err)
	}
	if gotExpires.Unix() != expires.Unix() {
		t.Errorf("round-tripped Expires = %v, want %v", gotExpires, expires)
	}
}

func TestIsNewerInstance(t *testing.T) {
	cases := []struct {
		candidate, current uint16
		newer              bool
	}{
		{11, 10, true},
		{10, 10, false},
		{3, 10, false},        // behind, even though 3 < 10 numerically
		{0, 65535, true},      // wraps forward by one
		{30000, 40000, false}, // more than half the window behind
	}
	for _, c := range cases {
		if got := IsNewerInstance(c.candidate, c.current); got != c.newer {
			t.Errorf("IsNewerInstance(%d,%d) = %v, want %v", c.candidate, c.current, got, c.newer)
		}
	}
}
