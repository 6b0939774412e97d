// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

package lpmtable

import "github.com/netforge/lpmtable/internal/art"

// rangeSpan is a precomputed [first,last] octet range.
type rangeSpan struct{ first, last uint8 }

// allot8Table precomputes, for every (octet, sub-length) pair with
// sub-length in [0,7], the octet range art.OctetRange would otherwise
// compute on demand during every insert and delete.
//
// Grounded on the teacher's internal/allot package
// (internal/allot/lookupHostRoutes.go): a static lookup table, indexed
// by the same ART base-index arithmetic, standing in for a
// mask-and-or recomputed on every mutation. The teacher precomputes full
// 256-bit membership sets for prefix-overlap testing; DIR-24-8 and
// Stride-8 only ever need a covered range's two endpoints, so this table
// stores a (first,last) pair per base index instead of a bitset.
var allot8Table [256]rangeSpan

func init() {
	for subLen := 0; subLen <= 7; subLen++ {
		count := 1 << uint(subLen)
		for o := 0; o < count; o++ {
			octet := byte(o << uint(8-subLen))
			idx := art.PfxToIdx(octet, subLen)
			first, last := art.OctetRange(octet, subLen)
			allot8Table[idx] = rangeSpan{first, last}
		}
	}
}

// octetRange8 returns the octet range a sub-prefix of length subLen
// (0..8, relative to the start of a single 256-entry stride) covers. The
// partial-stride cases (subLen < 8) are served from allot8Table; the
// fringe/exact case (subLen == 8, a single host octet) needs no table
// lookup at all.
func octetRange8(octet byte, subLen int) (first, last uint8) {
	if subLen >= 8 {
		return octet, octet
	}
	idx := art.PfxToIdx(octet, subLen)
	span := allot8Table[idx]
	return span.first, span.last
}
