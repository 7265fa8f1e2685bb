package raptor10

import (
	"errors"
	"fmt"

	rqq "github.com/xssnick/raptorq"
)

// ErrDecodeFailed is returned when the underlying decoder could not
// reconstruct the source block from the symbols submitted so far.
var ErrDecodeFailed = errors.New("raptor10: decode failed with symbols submitted so far")

// Decoder is the black-box contract a Raptor10 source block needs: submit
// symbols by ESI, then ask whether the block can now be decoded. The
// wrapping (partitioning, retry budget, scatter into sub-blocks) lives in
// pkg/file; this package only adapts a concrete linear-algebra backend to
// that contract.
type Decoder struct {
	k int
	t int
	d *rqq.Decoder
}

// NewDecoder creates a decoder for a source block of k symbols, each t
// bytes long.
func NewDecoder(k, t int) (*Decoder, error) {
	if k <= 0 || t <= 0 {
		return nil, fmt.Errorf("raptor10: invalid K=%d T=%d", k, t)
	}
	rq := rqq.NewRaptorQ(uint32(t))
	dec, err := rq.CreateDecoder(uint32(k * t))
	if err != nil {
		return nil, fmt.Errorf("raptor10: creating decoder: %w", err)
	}
	return &Decoder{k: k, t: t, d: dec}, nil
}

// Submit feeds one symbol (source, esi < K, or repair, esi >= K) to the
// decoder. The returned bool reports whether the library believes decoding
// can now be attempted — callers still call TryDecode themselves once their
// own distinct-symbol-count policy says to.
func (dec *Decoder) Submit(esi uint32, data []byte) (bool, error) {
	return dec.d.AddSymbol(esi, data)
}

// TryDecode attempts to reconstruct the source block. On success it
// returns K slices of T bytes each, in source-symbol order (ESI 0..K-1).
func (dec *Decoder) TryDecode() ([][]byte, error) {
	ok, out, err := dec.d.Decode()
	if err != nil {
		return nil, fmt.Errorf("raptor10: %w: %v", ErrDecodeFailed, err)
	}
	if !ok {
		return nil, ErrDecodeFailed
	}

	symbols := make([][]byte, dec.k)
	for i := 0; i < dec.k; i++ {
		start := i * dec.t
		end := start + dec.t
		if end > len(out) {
			end = len(out)
		}
		sym := make([]byte, dec.t)
		copy(sym, out[start:end])
		symbols[i] = sym
	}
	return symbols, nil
}
