// Package file implements the receive-side object reassembly contract: a
// File accumulates encoding symbols into a buffer under one of two FEC
// schemes (CompactNoCode, Raptor10), verifies Content-MD5 on completion,
// and resets itself on a mismatch so a retransmission can be accepted.
package file

import (
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"flutecore/pkg/ident"
	"flutecore/pkg/oti"
)

var (
	// ErrOutOfRange is returned when a symbol names a source block or
	// symbol index outside this file's partitioning.
	ErrOutOfRange = errors.New("file: symbol index out of range")
	// ErrUnknownScheme is returned when a file's FEC OTI names a scheme
	// this receiver does not implement.
	ErrUnknownScheme = errors.New("file: unsupported FEC scheme")
	// ErrFecDecodeFailed is returned when a Raptor10 source block could
	// not be decoded within its repair-symbol retry budget.
	ErrFecDecodeFailed = errors.New("file: FEC decode failed within retry budget")
)

// Meta is the File Delivery Table-derived metadata for one object.
type Meta struct {
	TOI             ident.Uint128
	ContentLocation string
	ContentType     string
	ContentLength   uint64
	ContentMD5      string // base64 of a 16-byte MD5 digest; empty if absent
	Expires         time.Time
	FecOti          oti.FecOti
	FDTInstanceID   uint16
}

// blockScheme is the FEC-scheme-specific half of reassembly: placing
// symbols into (and, for Raptor10, decoding into) the shared buffer.
type blockScheme interface {
	putSymbol(sbn, esi uint32, data []byte) error
	allBlocksComplete() bool
	reset()
}

// File is one object being reassembled from FLUTE symbols.
type File struct {
	Meta   Meta
	Buffer []byte

	ReceivedAt  time.Time
	AccessCount uint64

	complete  bool
	enableMD5 bool
	scheme    blockScheme
}

// New allocates a File for meta, enable/disabling Content-MD5 verification
// on completion. It fails with ErrUnknownScheme for any FEC encoding id this
// receiver does not implement.
func New(meta Meta, enableMD5 bool) (*File, error) {
	f := &File{
		Meta:       meta,
		Buffer:     make([]byte, meta.ContentLength),
		ReceivedAt: time.Now(),
		enableMD5:  enableMD5 && meta.ContentMD5 != "",
	}

	switch meta.FecOti.FecEncodingID {
	case oti.NoCode:
		s, err := newCompactNoCodeScheme(f.Buffer, meta.FecOti)
		if err != nil {
			return nil, err
		}
		f.scheme = s
	case oti.Raptor10:
		s, err := newRaptor10Scheme(f.Buffer, meta.FecOti)
		if err != nil {
			return nil, err
		}
		f.scheme = s
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, meta.FecOti.FecEncodingID)
	}

	return f, nil
}

// IsComplete reports whether the file has finished reassembly (and, when
// MD5 verification is enabled, passed it).
func (f *File) IsComplete() bool {
	return f.complete
}

// PutSymbol places one encoding symbol into the file. It is idempotent:
// placing into an already-complete file, or a slot that is already
// complete, is a silent no-op. It returns justCompleted = true exactly on
// the transition into complete = true, so callers can dispatch a
// completion notification exactly once.
func (f *File) PutSymbol(sbn, esi uint32, data []byte) (justCompleted bool, err error) {
	f.AccessCount++
	if f.complete {
		return false, nil
	}

	if err := f.scheme.putSymbol(sbn, esi, data); err != nil {
		return false, err
	}

	if !f.scheme.allBlocksComplete() {
		return false, nil
	}

	if f.enableMD5 && !f.checkMD5() {
		f.Reset()
		return false, fmt.Errorf("file %q: %w", f.Meta.ContentLocation, ErrMd5Mismatch)
	}

	f.complete = true
	return true, nil
}

// ErrMd5Mismatch is returned from PutSymbol when MD5 verification fails on
// the completion transition; the file has already been reset by the time
// this error is observed.
var ErrMd5Mismatch = errors.New("file: Content-MD5 mismatch")

// checkMD5 compares the buffer's MD5 against Meta.ContentMD5.
func (f *File) checkMD5() bool {
	want, err := base64.StdEncoding.DecodeString(f.Meta.ContentMD5)
	if err != nil || len(want) != md5.Size {
		return false
	}
	got := md5.Sum(f.Buffer)
	return got == [md5.Size]byte(want)
}

// Reset returns the file to its empty state: all slots incomplete, the
// buffer zeroed, complete = false.
func (f *File) Reset() {
	for i := range f.Buffer {
		f.Buffer[i] = 0
	}
	f.scheme.reset()
	f.complete = false
}
