package file

import (
	"fmt"

	"flutecore/pkg/oti"
)

// compactNoCodeScheme implements File::CompactNoCode (RFC 5052 §9.1 no
// actual coding): each ESI is the byte-offset symbol index within its
// source block, and a symbol's bytes are copied directly into the aliased
// span of the shared buffer.
type compactNoCodeScheme struct {
	buffer []byte
	t      uint64

	ns, nsb uint64
	kl, ks  uint64
	zl      uint64

	received      [][]bool // received[sbn][esi]
	receivedCount []uint64 // distinct symbols received per block
}

func newCompactNoCodeScheme(buffer []byte, o oti.FecOti) (*compactNoCodeScheme, error) {
	if o.EncodingSymbolLength == 0 || o.MaxSourceBlockLength == 0 {
		return nil, fmt.Errorf("file: CompactNoCode requires nonzero T and K_max")
	}
	ns, nsb, kl, ks, zl := partitionCompactNoCode(o.TransferLength, uint64(o.EncodingSymbolLength), o.MaxSourceBlockLength)

	s := &compactNoCodeScheme{
		buffer:        buffer,
		t:             uint64(o.EncodingSymbolLength),
		ns:            ns,
		nsb:           nsb,
		kl:            kl,
		ks:            ks,
		zl:            zl,
		received:      make([][]bool, nsb),
		receivedCount: make([]uint64, nsb),
	}
	for sbn := range s.received {
		s.received[sbn] = make([]bool, blockSymbolCount(uint32(sbn), kl, ks, zl))
	}
	return s, nil
}

func (s *compactNoCodeScheme) symbolsInBlock(sbn uint32) uint64 {
	return blockSymbolCount(sbn, s.kl, s.ks, s.zl)
}

func (s *compactNoCodeScheme) putSymbol(sbn, esi uint32, data []byte) error {
	if uint64(sbn) >= s.nsb {
		return fmt.Errorf("%w: sbn=%d nof_source_blocks=%d", ErrOutOfRange, sbn, s.nsb)
	}
	k := s.symbolsInBlock(sbn)
	if uint64(esi) >= k {
		return fmt.Errorf("%w: esi=%d K=%d", ErrOutOfRange, esi, k)
	}
	if s.received[sbn][esi] {
		return nil // idempotent: slot already complete
	}

	blockOffset := blockByteOffset(sbn, s.kl, s.ks, s.zl, s.t)
	symOffset := blockOffset + uint64(esi)*s.t

	if symOffset < uint64(len(s.buffer)) {
		end := symOffset + s.t
		if end > uint64(len(s.buffer)) {
			end = uint64(len(s.buffer)) // last symbol of the file may be short
		}
		copy(s.buffer[symOffset:end], data)
	}

	s.received[sbn][esi] = true
	s.receivedCount[sbn]++
	return nil
}

func (s *compactNoCodeScheme) allBlocksComplete() bool {
	if s.nsb == 0 {
		return false
	}
	for sbn, count := range s.receivedCount {
		if count < uint64(len(s.received[sbn])) {
			return false
		}
	}
	return true
}

func (s *compactNoCodeScheme) reset() {
	for sbn := range s.received {
		for esi := range s.received[sbn] {
			s.received[sbn][esi] = false
		}
		s.receivedCount[sbn] = 0
	}
}
