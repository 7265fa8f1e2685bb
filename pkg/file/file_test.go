package file

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"testing"

	"flutecore/pkg/ident"
	"flutecore/pkg/oti"

	rqq "github.com/xssnick/raptorq"
)

func TestFileCompactNoCodeCompletion(t *testing.T) {
	content := []byte("abcdefgh") // 8 bytes, T=4 -> 2 symbols, 1 block
	o := oti.NewNoCode(4, 10, uint64(len(content)))
	f, err := New(Meta{TOI: ident.FromUint64(1), ContentLength: uint64(len(content)), FecOti: o}, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done, err := f.PutSymbol(0, 0, content[0:4])
	if err != nil || done {
		t.Fatalf("first symbol: done=%v err=%v", done, err)
	}
	done, err = f.PutSymbol(0, 1, content[4:8])
	if err != nil {
		t.Fatalf("second symbol: %v", err)
	}
	if !done || !f.IsComplete() {
		t.Fatal("expected file to complete after its last symbol")
	}
	if !bytes.Equal(f.Buffer, content) {
		t.Errorf("buffer = %q, want %q", f.Buffer, content)
	}
}

func TestFilePutSymbolIsIdempotent(t *testing.T) {
	content := []byte("abcd")
	o := oti.NewNoCode(4, 10, uint64(len(content)))
	f, err := New(Meta{ContentLength: uint64(len(content)), FecOti: o}, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := f.PutSymbol(0, 0, content); err != nil {
		t.Fatalf("PutSymbol: %v", err)
	}
	if _, err := f.PutSymbol(0, 0, []byte("zzzz")); err != nil {
		t.Fatalf("repeat PutSymbol: %v", err)
	}
	if !bytes.Equal(f.Buffer, content) {
		t.Errorf("repeated delivery to a complete slot altered the buffer: got %q", f.Buffer)
	}
}

func TestFilePutSymbolOutOfRange(t *testing.T) {
	o := oti.NewNoCode(4, 10, 4)
	f, err := New(Meta{ContentLength: 4, FecOti: o}, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := f.PutSymbol(5, 0, []byte("abcd")); err == nil {
		t.Error("expected ErrOutOfRange for an out-of-range SBN")
	}
}

func TestFileMD5MismatchResets(t *testing.T) {
	content := []byte("abcd")
	sum := md5.Sum([]byte("wrong content"))
	o := oti.NewNoCode(4, 10, uint64(len(content)))
	f, err := New(Meta{
		ContentLength: uint64(len(content)),
		ContentMD5:    base64.StdEncoding.EncodeToString(sum[:]),
		FecOti:        o,
	}, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = f.PutSymbol(0, 0, content)
	if err == nil {
		t.Fatal("expected Content-MD5 mismatch error")
	}
	if f.IsComplete() {
		t.Error("file should not be complete after an MD5 mismatch")
	}
}

func TestFileRaptor10Completion(t *testing.T) {
	const k, symLen = 4, 16
	content := bytes.Repeat([]byte{0x42}, k*symLen)

	o := oti.NewRaptor10(symLen, uint64(len(content)), 1, 1, 1)
	f, err := New(Meta{ContentLength: uint64(len(content)), FecOti: o}, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rq := rqq.NewRaptorQ(uint32(symLen))
	enc, err := rq.CreateEncoder(content)
	if err != nil {
		t.Fatalf("CreateEncoder: %v", err)
	}

	var done bool
	for esi := uint32(0); esi < k; esi++ {
		done, err = f.PutSymbol(0, esi, enc.GenSymbol(esi))
		if err != nil {
			t.Fatalf("PutSymbol(%d): %v", esi, err)
		}
	}
	if !done || !f.IsComplete() {
		t.Fatal("expected the Raptor10 block to complete once K source symbols arrive")
	}
	if !bytes.Equal(f.Buffer, content) {
		t.Errorf("decoded buffer mismatch")
	}
}
