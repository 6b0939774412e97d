// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

package lpmtable

import "net/netip"

// Stride8Table is the Stride-8 lookup engine (spec §4.4): a uniform
// 8-bit-stride multibit trie usable for either address family. An IPv4
// table descends at most 4 levels (one per octet); an IPv6 table at most
// 16. Every level is a node8 — the same 256-entry node type the Wide-16
// engine uses for its non-root levels — so the two engines share their
// node storage and walk logic almost entirely (stridenode.go), differing
// only in root width and the number of levels.
//
// Stride8Table exists both as a standalone engine and as the reference
// implementation the equivalence tests (spec §8) check DIR-24-8 and
// Wide-16 against, since it never special-cases a first stride.
type Stride8Table struct {
	family Family
	depth  int // 4 for IPv4, 16 for IPv6

	root  node8
	nodes nodeArena

	hasDefault bool
	defaultHop uint32
	prefixCnt  int
}

// NewStride8IPv4 creates an empty Stride-8 table over 32-bit addresses.
func NewStride8IPv4() *Stride8Table {
	return &Stride8Table{family: FamilyIPv4, depth: 4}
}

// NewStride8IPv6 creates an empty Stride-8 table over 128-bit addresses.
func NewStride8IPv6() *Stride8Table {
	return &Stride8Table{family: FamilyIPv6, depth: 16}
}

func (t *Stride8Table) addrBytes(addr netip.Addr) ([]byte, error) {
	switch t.family {
	case FamilyIPv4:
		if !addr.Is4() {
			return nil, ErrWrongFamily
		}
		b := addr.As4()
		return b[:], nil
	default:
		if addr.Is4() {
			return nil, ErrWrongFamily
		}
		b := addr.As16()
		return b[:], nil
	}
}

// Insert installs prefix pfx with the given next-hop, masking off any
// bits beyond pfx's length. Re-inserting the same (prefix, length) with
// a different next-hop replaces the prior value.
func (t *Stride8Table) Insert(pfx netip.Prefix, nextHop uint32) error {
	if !pfx.IsValid() {
		return ErrInvalidPrefixLength
	}
	if err := validateNextHop(nextHop); err != nil {
		return err
	}
	if _, err := t.addrBytes(pfx.Addr()); err != nil {
		return err
	}

	length := pfx.Bits()
	if length < 0 || length > t.depth*8 {
		return ErrInvalidPrefixLength
	}
	if length == 0 {
		t.hasDefault = true
		t.defaultHop = nextHop
		t.prefixCnt++
		return nil
	}

	pfx = pfx.Masked()
	bytes, _ := t.addrBytes(pfx.Addr())

	levelIdx := rootLevel
	remaining := length
	for b := 0; ; b++ {
		key := uint32(bytes[b])
		if remaining > 8 {
			slot := &t.levelAt(levelIdx)[key]
			if !slot.hasChild() {
				idx := t.nodes.New()
				// New may have grown the arena and moved the backing array
				// slot points into; re-resolve before writing the child link.
				slot = &t.levelAt(levelIdx)[key]
				slot.setChild(idx)
			}
			levelIdx = slot.childIdx()
			remaining -= 8
			continue
		}

		level := t.levelAt(levelIdx)
		base, count := coveredRange(key, 8, remaining)
		for i := base; i < base+count; i++ {
			level[i].applyDominance(uint8(length), nextHop)
		}
		t.prefixCnt++
		return nil
	}
}

// rootLevel is the sentinel levelIdx denoting t.root itself rather than an
// arena-allocated node8 — t.root is a fixed-size field that never moves, so
// no arena index is needed (or valid) for it.
const rootLevel = ^uint32(0)

// levelAt resolves levelIdx to its node8, fetched fresh from the arena on
// every call: holding a *node8 across a t.nodes.New() call is unsafe,
// since New may grow and relocate the arena's backing array.
func (t *Stride8Table) levelAt(levelIdx uint32) *node8 {
	if levelIdx == rootLevel {
		return &t.root
	}
	return t.nodes.Get(levelIdx)
}

// Delete removes the exact (prefix, length) previously inserted. It is
// idempotent: deleting a prefix that was never inserted returns
// (false, nil). Interior nodes along the path are never reclaimed, and
// cleared ranges are not re-painted with a shorter enclosing prefix
// (spec §4.2, §9 open questions 1-2).
func (t *Stride8Table) Delete(pfx netip.Prefix) (removed bool, err error) {
	if !pfx.IsValid() {
		return false, ErrInvalidPrefixLength
	}
	if _, err := t.addrBytes(pfx.Addr()); err != nil {
		return false, err
	}

	length := pfx.Bits()
	if length == 0 {
		removed = t.hasDefault
		t.hasDefault = false
		if removed {
			t.prefixCnt--
		}
		return removed, nil
	}

	pfx = pfx.Masked()
	bytes, _ := t.addrBytes(pfx.Addr())

	level := &t.root
	remaining := length
	for b := 0; ; b++ {
		key := uint32(bytes[b])
		if remaining > 8 {
			slot := &level[key]
			if !slot.hasChild() {
				return false, nil
			}
			level = t.nodes.Get(slot.childIdx())
			remaining -= 8
			continue
		}

		base, count := coveredRange(key, 8, remaining)
		for i := base; i < base+count; i++ {
			slot := &level[i]
			if slot.e.valid() && int(slot.length) == length {
				removed = true
			}
			slot.clearValid()
		}
		if removed {
			t.prefixCnt--
		}
		return removed, nil
	}
}

// Lookup returns the next-hop of the longest matching prefix for addr,
// the default route's next-hop if one is installed and no prefix
// matches, or InvalidNextHop otherwise.
func (t *Stride8Table) Lookup(addr netip.Addr) uint32 {
	bytes, err := t.addrBytes(addr)
	if err != nil {
		return InvalidNextHop
	}
	return t.lookupBytes(bytes)
}

// LookupIPv4 is the raw fixed-width form of Lookup (spec §6) for a
// Stride-8 table built with NewStride8IPv4.
func (t *Stride8Table) LookupIPv4(addr uint32) uint32 {
	if t.family != FamilyIPv4 {
		return InvalidNextHop
	}
	bytes := []byte{byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)}
	return t.lookupBytes(bytes)
}

// LookupIPv6 is the raw fixed-width form of Lookup (spec §6) for a
// Stride-8 table built with NewStride8IPv6.
func (t *Stride8Table) LookupIPv6(addr [16]byte) uint32 {
	if t.family != FamilyIPv6 {
		return InvalidNextHop
	}
	return t.lookupBytes(addr[:])
}

func (t *Stride8Table) lookupBytes(bytes []byte) uint32 {
	best := t.defaultHopOrInvalid()
	level := &t.root
	for b := 0; b < t.depth; b++ {
		slot := &level[bytes[b]]
		if slot.e.valid() {
			best = slot.e.hop()
		}
		if !slot.hasChild() {
			break
		}
		level = t.nodes.Get(slot.childIdx())
	}
	return best
}

func (t *Stride8Table) defaultHopOrInvalid() uint32 {
	if t.hasDefault {
		return t.defaultHop
	}
	return InvalidNextHop
}

// LookupBatch populates out[i] with the Lookup result for addrs[i], for
// every i. out must have at least as many elements as addrs.
func (t *Stride8Table) LookupBatch(addrs []netip.Addr, out []uint32) {
	dispatchedStride8Batch(t, addrs, out)
}

// Stats returns the table's introspection snapshot.
func (t *Stride8Table) Stats() Stats {
	return Stats{
		PrefixCount: t.prefixCnt,
		NodeCount:   t.nodes.Len() + 1, // +1 for the root level
		Family:      t.family,
		Algorithm:   AlgorithmStride8,
	}
}
