package file

import (
	"fmt"

	"flutecore/pkg/oti"
	"flutecore/pkg/raptor10"
)

// overheadBudget caps how many symbols beyond K a source block accepts
// before its Raptor10 decode is declared permanently failed (spec §4.F).
const overheadBudget = 10

// raptor10Block is one source block's Raptor10 decode state. The block's
// on-the-wire T-byte symbols are interleaved across subCount sub-blocks
// (RFC 5053 §5.3); each sub-block runs its own independent decode over K
// sub-symbols, and a block is reconstructed once every sub-block decodes.
type raptor10Block struct {
	k uint64

	subDecoders []*raptor10.Decoder
	subSizes    []uint64 // sizeN(n), bytes
	subPrefix   []uint64 // byte offset of sub-block n within a T-byte symbol

	distinctESI map[uint32]bool
	complete    bool
	failed      bool
}

func newRaptor10Block(k uint64, subSizes, subPrefix []uint64) (*raptor10Block, error) {
	b := &raptor10Block{
		k:           k,
		subSizes:    subSizes,
		subPrefix:   subPrefix,
		distinctESI: make(map[uint32]bool),
		subDecoders: make([]*raptor10.Decoder, len(subSizes)),
	}
	if err := b.makeDecoders(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *raptor10Block) makeDecoders() error {
	for n, size := range b.subSizes {
		if size == 0 {
			continue
		}
		dec, err := raptor10.NewDecoder(int(b.k), int(size))
		if err != nil {
			return fmt.Errorf("file: raptor10 sub-block %d: %w", n, err)
		}
		b.subDecoders[n] = dec
	}
	return nil
}

func (b *raptor10Block) reset() {
	b.distinctESI = make(map[uint32]bool)
	b.complete = false
	b.failed = false
	_ = b.makeDecoders() // fresh decoder state; construction cannot fail twice with the same sizes
}

// raptor10Scheme implements File::Raptor10 (RFC 5053 §5.3).
type raptor10Scheme struct {
	buffer []byte
	t      uint64

	kl, ks, zl uint64 // Partition(Kt, Z)
	blocks     []*raptor10Block
}

func newRaptor10Scheme(buffer []byte, o oti.FecOti) (*raptor10Scheme, error) {
	z, n, al, err := o.RaptorParams()
	if err != nil {
		return nil, err
	}
	if o.EncodingSymbolLength == 0 || z == 0 || n == 0 || al == 0 {
		return nil, fmt.Errorf("file: Raptor10 requires nonzero T, Z, N, Al")
	}

	t := uint64(o.EncodingSymbolLength)
	kt := (o.TransferLength + t - 1) / t

	kl, ks, zl, _ := raptor10.Partition(kt, uint64(z))
	tl, ts, nl, _ := raptor10.Partition(t/uint64(al), uint64(n))

	subSizes := make([]uint64, n)
	subPrefix := make([]uint64, n)
	var prefix uint64
	for i := 0; i < int(n); i++ {
		var size uint64
		if uint64(i) < nl {
			size = tl * uint64(al)
		} else {
			size = ts * uint64(al)
		}
		subSizes[i] = size
		subPrefix[i] = prefix
		prefix += size
	}

	s := &raptor10Scheme{
		buffer: buffer,
		t:      t,
		kl:     kl,
		ks:     ks,
		zl:     zl,
		blocks: make([]*raptor10Block, z),
	}
	for sbn := range s.blocks {
		k := s.symbolsInBlock(uint32(sbn))
		b, err := newRaptor10Block(k, subSizes, subPrefix)
		if err != nil {
			return nil, err
		}
		s.blocks[sbn] = b
	}
	return s, nil
}

func (s *raptor10Scheme) symbolsInBlock(sbn uint32) uint64 {
	return blockSymbolCount(sbn, s.kl, s.ks, s.zl)
}

func (s *raptor10Scheme) blockByteOffset(sbn uint32) uint64 {
	return blockByteOffset(sbn, s.kl, s.ks, s.zl, s.t)
}

func (s *raptor10Scheme) putSymbol(sbn, esi uint32, data []byte) error {
	if int(sbn) >= len(s.blocks) {
		return fmt.Errorf("%w: sbn=%d nof_source_blocks=%d", ErrOutOfRange, sbn, len(s.blocks))
	}
	block := s.blocks[sbn]
	if block.complete || block.failed {
		return nil
	}
	if uint64(esi) >= block.k+overheadBudget {
		return fmt.Errorf("%w: esi=%d K=%d overhead_budget=%d", ErrOutOfRange, esi, block.k, overheadBudget)
	}
	if uint64(len(data)) != s.t {
		return fmt.Errorf("%w: symbol length %d != T=%d", ErrOutOfRange, len(data), s.t)
	}
	if block.distinctESI[esi] {
		return nil // idempotent
	}

	for n, dec := range block.subDecoders {
		if dec == nil {
			continue
		}
		start := block.subPrefix[n]
		end := start + block.subSizes[n]
		if _, err := dec.Submit(esi, data[start:end]); err != nil {
			return fmt.Errorf("file: submitting symbol to raptor10 sub-decoder: %w", err)
		}
	}
	block.distinctESI[esi] = true

	if uint64(len(block.distinctESI)) < block.k {
		return nil
	}

	if err := s.tryDecodeBlock(sbn, block); err != nil {
		if uint64(len(block.distinctESI)) >= block.k+overheadBudget {
			block.failed = true
			return fmt.Errorf("%w: source block %d: %v", ErrFecDecodeFailed, sbn, err)
		}
		// Not enough symbols yet despite reaching K distinct IDs (loss
		// pattern unfavorable to this generation); wait for more.
		return nil
	}

	return nil
}

func (s *raptor10Scheme) tryDecodeBlock(sbn uint32, block *raptor10Block) error {
	blockOffset := s.blockByteOffset(sbn)

	decoded := make([][][]byte, len(block.subDecoders))
	for n, dec := range block.subDecoders {
		if dec == nil {
			continue
		}
		syms, err := dec.TryDecode()
		if err != nil {
			return err
		}
		decoded[n] = syms
	}

	for i := uint64(0); i < block.k; i++ {
		symOffset := blockOffset + i*s.t
		for n := range block.subDecoders {
			if decoded[n] == nil {
				continue
			}
			dst := symOffset + block.subPrefix[n]
			end := dst + block.subSizes[n]
			if end > uint64(len(s.buffer)) {
				end = uint64(len(s.buffer))
			}
			if dst >= uint64(len(s.buffer)) {
				continue
			}
			copy(s.buffer[dst:end], decoded[n][i])
		}
	}

	block.complete = true
	return nil
}

func (s *raptor10Scheme) allBlocksComplete() bool {
	if len(s.blocks) == 0 {
		return false
	}
	for _, b := range s.blocks {
		if !b.complete {
			return false
		}
	}
	return true
}

func (s *raptor10Scheme) reset() {
	for _, b := range s.blocks {
		b.reset()
	}
}
