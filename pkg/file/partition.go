package file

import "flutecore/pkg/tools"

// partitionCompactNoCode implements the RFC 5052 §9.1 block partitioning
// algorithm: split a file of contentLength bytes, encoded with symbols of
// size t and at most kMax symbols per block, into source blocks.
//
// Returns:
//   - ns:  total number of source symbols
//   - nsb: number of source blocks
//   - kl:  length (in symbols) of each of the first zl blocks
//   - ks:  length of each of the remaining blocks
//   - zl:  number of large (kl-length) blocks
func partitionCompactNoCode(contentLength, t uint64, kMax uint32) (ns, nsb uint64, kl, ks uint64, zl uint64) {
	if t == 0 || kMax == 0 {
		return 0, 0, 0, 0, 0
	}
	ns = tools.DivCeil(contentLength, t)
	nsb = tools.DivCeil(ns, uint64(kMax))
	if nsb == 0 {
		return ns, 0, 0, 0, 0
	}
	kl = tools.DivCeil(ns, nsb)
	ks = tools.DivFloor(ns, nsb)
	zl = ns - ks*nsb
	return ns, nsb, kl, ks, zl
}

// blockSymbolCount returns the number of source symbols in source block sbn.
func blockSymbolCount(sbn uint32, kl, ks, zl uint64) uint64 {
	if uint64(sbn) < zl {
		return kl
	}
	return ks
}

// blockByteOffset returns the byte offset within the file buffer where
// source block sbn begins.
func blockByteOffset(sbn uint32, kl, ks, zl, t uint64) uint64 {
	var offset uint64
	if uint64(sbn) < zl {
		offset = uint64(sbn) * kl * t
	} else {
		offset = zl*kl*t + (uint64(sbn)-zl)*ks*t
	}
	return offset
}
