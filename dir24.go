// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

package lpmtable

import (
	"net/netip"

	"github.com/netforge/lpmtable/internal/arena"
)

// Dir24Table is the DIR-24-8 IPv4 lookup engine (spec §4.2): a 2^24-entry
// direct table for the first 24 bits, backed by an arena of 256-entry
// TBL8 groups for the more-specific /25-/32 routes. Any lookup costs at
// most two memory indirections.
//
// A Dir24Table is not safe for concurrent mutation, nor for a mutator
// running concurrently with readers (spec §5); concurrent readers alone
// are safe.
type Dir24Table struct {
	dir24 []dirSlot // len 1<<24

	groups    arena.Arena[tbl8Group]
	prefixCnt int

	hasDefault bool
	defaultHop uint32
}

// dirSlot pairs a packed entry with the prefix length that last wrote its
// terminal value, so that insert order never matters for longest-match
// dominance (spec §4.2's tie-break rule: a slot is only overwritten by an
// incoming prefix that is at least as specific as whatever wrote it
// before).
type dirSlot struct {
	e      entry
	length uint8
}

type tbl8Group [256]dirSlot

const dir24Bits = 24

// NewDir24Table creates an empty DIR-24-8 IPv4 table.
func NewDir24Table() *Dir24Table {
	return &Dir24Table{
		dir24: make([]dirSlot, 1<<dir24Bits),
	}
}

func ipv4Octets(pfx netip.Prefix) ([4]byte, error) {
	addr := pfx.Addr()
	if !addr.Is4() {
		return [4]byte{}, ErrWrongFamily
	}
	return addr.As4(), nil
}

// Insert installs prefix pfx with the given next-hop. Bits beyond pfx's
// length are masked off. Re-inserting the same (prefix, length) with a
// different next-hop replaces the prior value.
func (t *Dir24Table) Insert(pfx netip.Prefix, nextHop uint32) error {
	if !pfx.IsValid() {
		return ErrInvalidPrefixLength
	}
	if err := validateNextHop(nextHop); err != nil {
		return err
	}

	octets, err := ipv4Octets(pfx)
	if err != nil {
		return err
	}

	length := pfx.Bits()
	if length < 0 || length > 32 {
		return ErrInvalidPrefixLength
	}

	if length == 0 {
		t.hasDefault = true
		t.defaultHop = nextHop
		t.prefixCnt++
		return nil
	}

	pfx = pfx.Masked()
	octets, _ = ipv4Octets(pfx)

	ip24 := uint32(octets[0])<<16 | uint32(octets[1])<<8 | uint32(octets[2])
	lastOctet := octets[3]

	if length <= 24 {
		base := ip24 &^ (1<<(24-length) - 1)
		count := uint32(1) << (24 - length)
		for i := base; i < base+count; i++ {
			slot := &t.dir24[i]
			if slot.e.ext() {
				t.propagateIntoGroup(slot.e.child(), uint8(length), nextHop)
				continue
			}
			if !slot.e.valid() || slot.length <= uint8(length) {
				slot.e = newHopEntry(nextHop)
				slot.length = uint8(length)
			}
		}
		t.prefixCnt++
		return nil
	}

	// length > 24: ensure a TBL8 group exists for this /24.
	top := &t.dir24[ip24]
	var groupIdx uint32
	if top.e.ext() {
		groupIdx = top.e.child()
	} else {
		var err error
		groupIdx, err = t.allocGroup(top)
		if err != nil {
			return err
		}
		top.e = newChildEntry(groupIdx)
	}

	sub := length - 24
	first, last := octetRange8(lastOctet, sub)
	group := t.groups.Get(groupIdx)
	absLen := uint8(length)
	for o := int(first); o <= int(last); o++ {
		slot := &group[o]
		if !slot.e.valid() || slot.length <= absLen {
			slot.e = newHopEntry(nextHop)
			slot.length = absLen
		}
	}
	t.prefixCnt++
	return nil
}

// maxGroupIndex is the largest TBL8 group index a DIR24 entry's 30-bit
// packed payload can hold (entryPayloadMask, see entry.go); allocGroup
// refuses to grow t.groups past it rather than silently truncating a
// group reference.
const maxGroupIndex = uint32(entryPayloadMask)

// allocGroup allocates a fresh TBL8 group, seeding every entry with the
// DIR24 slot's current terminal value (spec §4.2: "initialize all 256
// entries to (VALID, NH') where NH' is the current terminal next-hop").
func (t *Dir24Table) allocGroup(top *dirSlot) (uint32, error) {
	if uint32(t.groups.Len()) >= maxGroupIndex {
		return 0, ErrResourceExhausted
	}
	idx := t.groups.New()
	if top.e.valid() {
		g := t.groups.Get(idx)
		for i := range g {
			g[i] = dirSlot{e: newHopEntry(top.e.hop()), length: top.length}
		}
	}
	return idx, nil
}

// propagateIntoGroup applies the length-dominance rule across all 256
// entries of an already-allocated group, for a prefix of length <= 24
// that covers the group's entire /24 (spec §4.2, "leave DIR24 untouched
// but propagate the new prefix into the full 256-entry group").
func (t *Dir24Table) propagateIntoGroup(groupIdx uint32, length uint8, nextHop uint32) {
	group := t.groups.Get(groupIdx)
	for i := range group {
		slot := &group[i]
		if !slot.e.valid() || slot.length <= length {
			slot.e = newHopEntry(nextHop)
			slot.length = length
		}
	}
}

// Delete removes the exact (prefix, length) previously inserted. It is
// idempotent: deleting a prefix that was never inserted returns
// (false, nil) rather than an error (spec §9, open question 2).
//
// For a prefix of length <= 24, DIR24 slots that already point to a TBL8
// group are skipped: the prefix's next-hop stays in those groups, and if
// every slot in its range is such a slot, Delete returns (false, nil) and
// the prefix count is unchanged.
//
// Per spec §4.2's documented asymmetry, delete does not re-paint cleared
// entries with a shorter enclosing prefix; a consumer needing that
// fallback must re-insert the enclosing prefix.
func (t *Dir24Table) Delete(pfx netip.Prefix) (removed bool, err error) {
	if !pfx.IsValid() {
		return false, ErrInvalidPrefixLength
	}
	if _, err := ipv4Octets(pfx); err != nil {
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
	octets, _ := ipv4Octets(pfx)
	ip24 := uint32(octets[0])<<16 | uint32(octets[1])<<8 | uint32(octets[2])
	lastOctet := octets[3]

	if length <= 24 {
		base := ip24 &^ (1<<(24-length) - 1)
		count := uint32(1) << (24 - length)
		for i := base; i < base+count; i++ {
			slot := &t.dir24[i]
			if slot.e.ext() {
				continue
			}
			if slot.e.valid() && int(slot.length) == length {
				removed = true
			}
			slot.e = 0
			slot.length = 0
		}
		if removed {
			t.prefixCnt--
		}
		return removed, nil
	}

	top := &t.dir24[ip24]
	if !top.e.ext() {
		return false, nil
	}
	group := t.groups.Get(top.e.child())
	first, last := octetRange8(lastOctet, length-24)
	absLen := uint8(length)
	for o := int(first); o <= int(last); o++ {
		slot := &group[o]
		if slot.e.valid() && slot.length == absLen {
			removed = true
		}
		slot.e = 0
		slot.length = 0
	}
	if removed {
		t.prefixCnt--
	}
	return removed, nil
}

// Lookup returns the next-hop of the longest matching prefix for ip, the
// default route's next-hop if one is installed and no prefix matches, or
// InvalidNextHop otherwise.
func (t *Dir24Table) Lookup(ip netip.Addr) uint32 {
	if !ip.Is4() {
		return InvalidNextHop
	}
	return t.LookupIPv4(ipv4ToUint32(ip.As4()))
}

func ipv4ToUint32(a [4]byte) uint32 {
	return uint32(a[0])<<24 | uint32(a[1])<<16 | uint32(a[2])<<8 | uint32(a[3])
}

// LookupIPv4 is the raw-integer form of Lookup (spec §6): addr is the
// address as a native-endian uint32 whose most significant byte is the
// first address octet (i.e. the value produced by htonl on a
// network-order byte sequence).
func (t *Dir24Table) LookupIPv4(addr uint32) uint32 {
	best := t.defaultHopOrInvalid()

	i24 := addr >> 8
	slot := t.dir24[i24]
	if !slot.e.ext() {
		return slot.e.resolve(best)
	}
	group := t.groups.Get(slot.e.child())
	last := uint8(addr)
	return group[last].e.resolve(best)
}

func (t *Dir24Table) defaultHopOrInvalid() uint32 {
	if t.hasDefault {
		return t.defaultHop
	}
	return InvalidNextHop
}

// LookupBatch populates out[i] with the Lookup result for addrs[i], for
// every i. out must have at least as many elements as addrs. See batch.go
// for the runtime SIMD-dispatch contract this follows.
func (t *Dir24Table) LookupBatch(addrs []uint32, out []uint32) {
	dispatchedDir24Batch(t, addrs, out)
}

// Stats returns the table's introspection snapshot.
func (t *Dir24Table) Stats() Stats {
	return Stats{
		PrefixCount: t.prefixCnt,
		NodeCount:   t.groups.Len(),
		Family:      FamilyIPv4,
		Algorithm:   AlgorithmDir24,
	}
}
