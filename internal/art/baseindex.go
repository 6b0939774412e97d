// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

// Package art provides the octet/prefix-length <-> complete-binary-tree
// index arithmetic used to expand a prefix across a 256-entry group.
//
// Grounded on github.com/gaissmai/bart's internal/art/base_index.go —
// the same baseIndex mapping function from the ART paper, reused here for
// its octet/range arithmetic only; DIR-24-8 and Stride-8 store a next-hop
// or child pointer directly in the 256-entry group rather than walking a
// complete binary tree of baseIndex slots, so the question answered here
// is only "which octets does (octet, pfxLen) cover" (OctetRange), with
// PfxToIdx serving as the key of a precomputed table of those ranges.
package art

// PfxToIdx maps an (octet, pfxLen) pair onto its complete-binary-tree
// base index, in [1, 511]. pfxLen must be in [0, 8].
func PfxToIdx(octet byte, pfxLen int) uint {
	return uint(octet>>uint8(8-pfxLen)) + (1 << uint8(pfxLen))
}

// NetMask returns the pfxLen-bit network mask in the high bits of a byte.
func NetMask(pfxLen int) uint8 {
	return 0b1111_1111 << (8 - uint8(pfxLen))
}

// OctetRange returns the first and last octet ([0,255]) covered by a
// prefix of length pfxLen (0..8) whose high pfxLen bits equal octet's.
func OctetRange(octet byte, pfxLen int) (first, last uint8) {
	first = octet & NetMask(pfxLen)
	last = first | ^NetMask(pfxLen)
	return first, last
}
