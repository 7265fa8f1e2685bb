package receiver

import (
	"fmt"
	"testing"
	"time"

	"flutecore/pkg/alc"
	"flutecore/pkg/file"
	"flutecore/pkg/ident"
	"flutecore/pkg/lct"
	"flutecore/pkg/oti"
)

const testTSI = uint64(55)

func fdtXML(expires time.Time, toi uint64, contentLocation string, contentLength uint64) string {
	ntpSec := uint64(expires.Unix() + 2208988800)
	return fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?>`+
			`<FDT-Instance Expires="%d" FEC-OTI-FEC-Encoding-ID="0" FEC-OTI-Encoding-Symbol-Length="4" FEC-OTI-Maximum-Source-Block-Length="64">`+
			`<File TOI="%d" Content-Location="%s" Content-Length="%d"/>`+
			`</FDT-Instance>`,
		ntpSec, toi, contentLocation, contentLength)
}

func buildFDTPacket(instanceID uint16, body []byte) []byte {
	var data []byte
	lct.PushHeader(&data, 0, ident.Zero, testTSI, lct.TOIFdt, 0, false, false)
	alc.PushExtFDT(&data, instanceID)
	o := oti.NewNoCode(uint32(len(body)), 64, uint64(len(body)))
	alc.PushExtFTI(&data, o)
	alc.PushSymbol(&data, 0, 0, body)
	return data
}

func buildFilePacket(toi ident.Uint128, content []byte) []byte {
	var data []byte
	lct.PushHeader(&data, 0, ident.Zero, testTSI, toi, 0, false, false)
	o := oti.NewNoCode(uint32(len(content)), 64, uint64(len(content)))
	alc.PushExtFTI(&data, o)
	alc.PushSymbol(&data, 0, 0, content)
	return data
}

func TestBootstrapAndDeliverFile(t *testing.T) {
	content := []byte("hi!!")
	fdtBody := []byte(fdtXML(time.Now().Add(time.Hour), 5, "hello.txt", uint64(len(content))))

	var got *file.File
	core := New(Config{
		TSI: testTSI,
		Sink: func(f *file.File) {
			got = f
		},
	})

	core.HandleReceivedPacket(buildFDTPacket(1, fdtBody))
	if core.fdtDoc == nil {
		t.Fatal("expected the FDT to be parsed after its single symbol completed TOI=0")
	}

	core.HandleReceivedPacket(buildFilePacket(ident.FromUint64(5), content))
	if got == nil {
		t.Fatal("expected the completion sink to fire for toi=5")
	}
	if string(got.Buffer) != "hi!!" {
		t.Errorf("delivered content = %q, want %q", got.Buffer, "hi!!")
	}
}

func TestFDTInstanceMonotonicity(t *testing.T) {
	fdtBody1 := []byte(fdtXML(time.Now().Add(time.Hour), 5, "a.txt", 4))
	fdtBody2 := []byte(fdtXML(time.Now().Add(2*time.Hour), 5, "b.txt", 4))

	core := New(Config{TSI: testTSI})
	core.HandleReceivedPacket(buildFDTPacket(10, fdtBody1))
	if core.fdtDoc == nil || core.fdtDoc.Files[0].ContentLocation != "a.txt" {
		t.Fatal("expected first FDT instance to be accepted")
	}

	// Instance id 3 is behind 10 in the 16-bit modulo window, must be ignored.
	core.HandleReceivedPacket(buildFDTPacket(3, fdtBody2))
	if core.fdtDoc.Files[0].ContentLocation != "a.txt" {
		t.Error("an older FDT instance id must not replace the current FDT")
	}

	// Instance id 11 is strictly newer, must replace it.
	core.HandleReceivedPacket(buildFDTPacket(11, fdtBody2))
	if core.fdtDoc.Files[0].ContentLocation != "b.txt" {
		t.Error("a strictly newer FDT instance id must replace the current FDT")
	}
}

func TestTSIMismatchIsIgnored(t *testing.T) {
	var data []byte
	lct.PushHeader(&data, 0, ident.Zero, testTSI+1, ident.FromUint64(1), 0, false, false)
	o := oti.NewNoCode(4, 64, 4)
	alc.PushExtFTI(&data, o)
	alc.PushSymbol(&data, 0, 0, []byte("abcd"))

	core := New(Config{TSI: testTSI})
	core.HandleReceivedPacket(data)
	if len(core.files) != 0 {
		t.Error("a packet for a different TSI must be dropped without allocating state")
	}
}
