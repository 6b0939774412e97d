// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

package lpmtable

import "github.com/netforge/lpmtable/internal/arena"

// strideSlot is one entry of a Stride-8 or Wide-16 trie level: a packed
// VALID/next-hop entry (see entry.go) plus an independent child
// reference.
//
// Unlike DIR-24-8 — where a slot is either a terminal next-hop or a
// pointer to a TBL8 group, never both — Stride-8 and Wide-16 are genuine
// multi-level multibit tries, where a single octet slot can
// simultaneously be a terminal prefix AND the root of a deeper,
// more-specific subtree (data model invariant 3's "(valid, extended):
// both"). A single 32-bit word cannot carry a next-hop payload and a
// child index at once, so the child reference lives in its own field;
// the entry word's EXT bit is kept in lockstep with it so a slot's state
// is still legible as VALID/EXT alone, matching the distinction the
// teacher's node types draw between prefixes-only, children-only and
// "full" nodes holding both (internal/nodes/nodecommon.go).
type strideSlot struct {
	e      entry
	length uint8  // prefix length that wrote e's next-hop; valid only if e.valid()
	child  uint32 // 0 = no child; else 1+childArenaIndex
}

func (s *strideSlot) hasChild() bool   { return s.child != 0 }
func (s *strideSlot) childIdx() uint32 { return s.child - 1 }

func (s *strideSlot) setChild(idx uint32) {
	s.child = idx + 1
	s.e |= entryExtFlag
}

// clearValid removes the terminal next-hop from a slot while leaving any
// child subtree untouched (interior nodes are never reclaimed, per the
// specification's non-goal on delete reclamation).
func (s *strideSlot) clearValid() {
	if s.hasChild() {
		s.e = entryExtFlag
	} else {
		s.e = 0
	}
	s.length = 0
}

// applyDominance overwrites slot's terminal next-hop iff slot is
// currently invalid, or currently reflects a length no more specific
// than the incoming one (spec §4.2's tie-break rule, generalized to
// every multibit-trie level).
func (s *strideSlot) applyDominance(length uint8, nextHop uint32) {
	if !s.e.valid() || s.length <= length {
		s.e = s.e.withHop(nextHop)
		s.length = length
	}
}

// node8 is one 256-entry level of a Stride-8 trie, or one of the NODE8
// levels beneath a Wide-16 root.
type node8 [256]strideSlot

// coveredRange returns the [base, base+count) indices a prefix whose
// remaining length is `remaining` bits covers within a stride of width
// strideWidth, given the stride's key value. remaining must be <=
// strideWidth; remaining == strideWidth degenerates to a single exact
// index (count == 1).
func coveredRange(key uint32, strideWidth, remaining int) (base, count uint32) {
	count = uint32(1) << uint(strideWidth-remaining)
	base = key &^ (count - 1)
	return base, count
}

// nodeArena is an index-addressed store of node8s, shared by Stride-8's
// interior levels and Wide-16's NODE8 levels.
type nodeArena = arena.Arena[node8]
