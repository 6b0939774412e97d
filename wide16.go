// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

package lpmtable

import "net/netip"

// wideFirstStrideBits is the width of Wide-16's root level: the first
// two bytes of an IPv6 address, consumed in one indirection instead of
// two (spec §4.3's rationale: halves the depth of the first, hottest
// level of an IPv6 walk at the cost of a 65536-entry root).
const wideFirstStrideBits = 16

// maxWideRootChildIndex is the largest NODE8 arena index a root slot's
// wideEntry can reference through its 29-bit payload (wideEntryPayloadMask,
// see wideentry.go). Insert refuses to allocate a new root child past it
// rather than silently truncating the reference.
const maxWideRootChildIndex = uint32(wideEntryPayloadMask)

// Wide16Table is the Wide-16 IPv6 lookup engine (spec §4.3): a
// 65536-entry root covering the first 16 bits, followed by up to 14
// levels of 8-bit-stride NODE8 nodes for the remaining 112 bits. NODE8
// levels reuse Stride8Table's node8/strideSlot representation
// (stridenode.go) verbatim; the root uses wideRootSlot (wideentry.go)
// instead, since only the root's packed word needs the WIDE_NODE
// discriminant bit spec §4.3 describes.
type Wide16Table struct {
	root  []wideRootSlot // len 1<<16
	nodes nodeArena

	hasDefault bool
	defaultHop uint32
	prefixCnt  int
}

// NewWide16Table creates an empty Wide-16 IPv6 table.
func NewWide16Table() *Wide16Table {
	return &Wide16Table{root: make([]wideRootSlot, 1<<wideFirstStrideBits)}
}

func ipv6Bytes(addr netip.Addr) ([16]byte, error) {
	if !addr.Is6() || addr.Is4In6() {
		return [16]byte{}, ErrWrongFamily
	}
	return addr.As16(), nil
}

// Insert installs prefix pfx with the given next-hop, masking off any
// bits beyond pfx's length. Re-inserting the same (prefix, length) with
// a different next-hop replaces the prior value.
func (t *Wide16Table) Insert(pfx netip.Prefix, nextHop uint32) error {
	if !pfx.IsValid() {
		return ErrInvalidPrefixLength
	}
	if err := validateNextHop(nextHop); err != nil {
		return err
	}
	if _, err := ipv6Bytes(pfx.Addr()); err != nil {
		return err
	}

	length := pfx.Bits()
	if length < 0 || length > 128 {
		return ErrInvalidPrefixLength
	}
	if length == 0 {
		t.hasDefault = true
		t.defaultHop = nextHop
		t.prefixCnt++
		return nil
	}

	pfx = pfx.Masked()
	bytes, _ := ipv6Bytes(pfx.Addr())

	if length > wideFirstStrideBits {
		rootKey := uint32(bytes[0])<<8 | uint32(bytes[1])
		slot := &t.root[rootKey]
		if !slot.hasChild() {
			// A root child's arena index is packed into its wideEntry's
			// 29-bit payload (wideEntryPayloadMask), unlike a NODE8's own
			// children below it, which carry their index in a full
			// uint32 field (strideSlot.child) instead — so only this
			// allocation, the one a root slot will reference directly,
			// needs the width check.
			if uint32(t.nodes.Len()) >= maxWideRootChildIndex {
				return ErrResourceExhausted
			}
			idx := t.nodes.New()
			// t.root is a fixed-size slice allocated once in
			// NewWide16Table and never regrown, so slot stays valid
			// across New() — unlike the node8 levels insertNode8 walks.
			slot.setChild(idx, false)
		}
		t.insertNode8(slot.childIdx(), bytes[2:], length-wideFirstStrideBits, nextHop, length)
		t.prefixCnt++
		return nil
	}

	rootKey := uint32(bytes[0])<<8 | uint32(bytes[1])
	base, count := coveredRange(rootKey, wideFirstStrideBits, length)
	for i := base; i < base+count; i++ {
		t.root[i].applyDominance(uint8(length), nextHop)
	}
	t.prefixCnt++
	return nil
}

// insertNode8 walks the 8-bit-stride levels beneath the root, mirroring
// Stride8Table.Insert's loop exactly (same node type, same dominance
// rule); absoluteLength is recorded on slots for cross-insert dominance
// comparisons, remaining is this call's bits left to place.
//
// levelIdx is an arena index, not a raw *node8: a pointer held across a
// t.nodes.New() call a few lines later would go stale the moment New
// grows and relocates the arena's backing array, so every level is
// re-resolved via t.nodes.Get right before use instead.
func (t *Wide16Table) insertNode8(levelIdx uint32, bytes []byte, remaining int, nextHop uint32, absoluteLength int) {
	for b := 0; ; b++ {
		key := uint32(bytes[b])
		if remaining > 8 {
			slot := &t.nodes.Get(levelIdx)[key]
			if !slot.hasChild() {
				idx := t.nodes.New()
				slot = &t.nodes.Get(levelIdx)[key]
				slot.setChild(idx)
			}
			levelIdx = slot.childIdx()
			remaining -= 8
			continue
		}

		level := t.nodes.Get(levelIdx)
		base, count := coveredRange(key, 8, remaining)
		for i := base; i < base+count; i++ {
			level[i].applyDominance(uint8(absoluteLength), nextHop)
		}
		return
	}
}

// Delete removes the exact (prefix, length) previously inserted. It is
// idempotent: deleting a prefix that was never inserted returns
// (false, nil). Interior nodes along the path are never reclaimed, and
// cleared ranges are not re-painted with a shorter enclosing prefix
// (spec §4.2, §9 open questions 1-2).
func (t *Wide16Table) Delete(pfx netip.Prefix) (removed bool, err error) {
	if !pfx.IsValid() {
		return false, ErrInvalidPrefixLength
	}
	if _, err := ipv6Bytes(pfx.Addr()); err != nil {
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
	bytes, _ := ipv6Bytes(pfx.Addr())

	if length > wideFirstStrideBits {
		rootKey := uint32(bytes[0])<<8 | uint32(bytes[1])
		slot := &t.root[rootKey]
		if !slot.hasChild() {
			return false, nil
		}
		level := t.nodes.Get(slot.childIdx())
		removed = t.deleteNode8(level, bytes[2:], length-wideFirstStrideBits, length)
		if removed {
			t.prefixCnt--
		}
		return removed, nil
	}

	rootKey := uint32(bytes[0])<<8 | uint32(bytes[1])
	base, count := coveredRange(rootKey, wideFirstStrideBits, length)
	for i := base; i < base+count; i++ {
		slot := &t.root[i]
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

func (t *Wide16Table) deleteNode8(level *node8, bytes []byte, remaining int, absoluteLength int) (removed bool) {
	for b := 0; ; b++ {
		key := uint32(bytes[b])
		if remaining > 8 {
			slot := &level[key]
			if !slot.hasChild() {
				return false
			}
			level = t.nodes.Get(slot.childIdx())
			remaining -= 8
			continue
		}

		base, count := coveredRange(key, 8, remaining)
		for i := base; i < base+count; i++ {
			slot := &level[i]
			if slot.e.valid() && int(slot.length) == absoluteLength {
				removed = true
			}
			slot.clearValid()
		}
		return removed
	}
}

// Lookup returns the next-hop of the longest matching prefix for addr,
// the default route's next-hop if one is installed and no prefix
// matches, or InvalidNextHop otherwise.
func (t *Wide16Table) Lookup(addr netip.Addr) uint32 {
	bytes, err := ipv6Bytes(addr)
	if err != nil {
		return InvalidNextHop
	}
	return t.lookupBytes(bytes)
}

// LookupIPv6 is the raw fixed-width form of Lookup (spec §6): addr is
// the 16-byte address in network order.
func (t *Wide16Table) LookupIPv6(addr [16]byte) uint32 {
	return t.lookupBytes(addr)
}

func (t *Wide16Table) lookupBytes(bytes [16]byte) uint32 {
	best := t.defaultHopOrInvalid()
	rootKey := uint32(bytes[0])<<8 | uint32(bytes[1])
	rootSlot := &t.root[rootKey]
	if rootSlot.e.valid() {
		best = rootSlot.e.hop()
	}
	if !rootSlot.hasChild() {
		return best
	}

	level := t.nodes.Get(rootSlot.childIdx())
	for b := 2; b < 16; b++ {
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

func (t *Wide16Table) defaultHopOrInvalid() uint32 {
	if t.hasDefault {
		return t.defaultHop
	}
	return InvalidNextHop
}

// LookupBatch populates out[i] with the Lookup result for addrs[i], for
// every i. out must have at least as many elements as addrs.
func (t *Wide16Table) LookupBatch(addrs []netip.Addr, out []uint32) {
	dispatchedWide16Batch(t, addrs, out)
}

// Stats returns the table's introspection snapshot.
func (t *Wide16Table) Stats() Stats {
	return Stats{
		PrefixCount: t.prefixCnt,
		NodeCount:   t.nodes.Len() + 1,
		Family:      FamilyIPv6,
		Algorithm:   AlgorithmWide16,
	}
}
