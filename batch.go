// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

package lpmtable

import (
	"net/netip"
	"sync"

	"golang.org/x/sys/cpu"

	"github.com/netforge/lpmtable/internal/bitset"
)

// batchChunk bounds how many lookups the wide batch variants process
// before re-examining their gather bitset: it matches BitSet256's width
// so one bitset instance tracks one chunk.
const batchChunk = 256

type dir24BatchFunc func(t *Dir24Table, addrs []uint32, out []uint32)
type stride8BatchFunc func(t *Stride8Table, addrs []netip.Addr, out []uint32)
type wide16BatchFunc func(t *Wide16Table, addrs []netip.Addr, out []uint32)

var (
	dispatchOnce sync.Once
	dir24Batch   dir24BatchFunc
	stride8Batch stride8BatchFunc
	wide16Batch  wide16BatchFunc
)

// bindBatchDispatch chooses the batch lookup implementations for the
// running CPU, once, the first time any LookupBatch call is made (spec
// §4.5: "an immutable function-pointer table, bound once at load time").
//
// This module has no access to a vector ISA or explicit prefetch
// intrinsics from pure Go, so every variant below is scalar — but the
// "wide" variants keep the two-phase gather/second-indirection shape a
// real SIMD batch lookup uses (split direct hits from the ones needing a
// second, dependent load, and walk the second group with a dense
// bitset-driven iterator rather than branching inline), so the hot loop
// has no data-dependent branch misprediction on the EXT test and the
// second indirection's latency is free to overlap across lanes. Swapping
// in real vector code later replaces these functions, not their
// callers. golang.org/x/sys/cpu is the same feature-probing mechanism
// used throughout the retrieved pack for runtime dispatch.
func bindBatchDispatch() {
	wide := cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD
	if wide {
		dir24Batch = dir24BatchWide
		stride8Batch = stride8BatchWide
		wide16Batch = wide16BatchWide
		return
	}
	dir24Batch = dir24BatchScalar
	stride8Batch = stride8BatchScalar
	wide16Batch = wide16BatchScalar
}

func dispatchedDir24Batch(t *Dir24Table, addrs []uint32, out []uint32) {
	if len(addrs) == 0 {
		return
	}
	dispatchOnce.Do(bindBatchDispatch)
	dir24Batch(t, addrs, out)
}

func dispatchedStride8Batch(t *Stride8Table, addrs []netip.Addr, out []uint32) {
	if len(addrs) == 0 {
		return
	}
	dispatchOnce.Do(bindBatchDispatch)
	stride8Batch(t, addrs, out)
}

func dispatchedWide16Batch(t *Wide16Table, addrs []netip.Addr, out []uint32) {
	if len(addrs) == 0 {
		return
	}
	dispatchOnce.Do(bindBatchDispatch)
	wide16Batch(t, addrs, out)
}

// --- scalar fallbacks: always correct, used on any CPU without a wide
// vector unit, and as the semantic reference the wide variants must
// match (see the algorithm-equivalence tests).

func dir24BatchScalar(t *Dir24Table, addrs []uint32, out []uint32) {
	for i, a := range addrs {
		out[i] = t.LookupIPv4(a)
	}
}

func stride8BatchScalar(t *Stride8Table, addrs []netip.Addr, out []uint32) {
	for i, a := range addrs {
		out[i] = t.Lookup(a)
	}
}

func wide16BatchScalar(t *Wide16Table, addrs []netip.Addr, out []uint32) {
	for i, a := range addrs {
		out[i] = t.Lookup(a)
	}
}

// --- wide variants

// dir24BatchWide resolves every address's first indirection (the direct
// DIR24 slot) in one tight pass, marking in a bitset which lanes need a
// second, dependent load into a TBL8 group; a second pass then only
// visits the lanes the bitset has set, via FirstSet/NextSet, instead of
// re-testing the EXT bit for every lane a second time.
func dir24BatchWide(t *Dir24Table, addrs []uint32, out []uint32) {
	best := t.defaultHopOrInvalid()

	for base := 0; base < len(addrs); base += batchChunk {
		end := base + batchChunk
		if end > len(addrs) {
			end = len(addrs)
		}
		chunk := addrs[base:end]

		var needsGroup bitset.BitSet256
		var groupIdx [batchChunk]uint32
		var lastOctet [batchChunk]uint8

		for i, a := range chunk {
			slot := t.dir24[a>>8]
			if slot.e.ext() {
				needsGroup.Set(uint(i))
				groupIdx[i] = slot.e.child()
				lastOctet[i] = uint8(a)
				continue
			}
			out[base+i] = slot.e.resolve(best)
		}

		for i, ok := needsGroup.FirstSet(); ok; i, ok = needsGroup.NextSet(i + 1) {
			group := t.groups.Get(groupIdx[i])
			out[base+int(i)] = group[lastOctet[i]].e.resolve(best)
		}
	}
}

// stride8BatchWide and wide16BatchWide apply the same split — resolve
// the root level for every lane first, gather the lanes that still need
// to descend, then walk only those — generalized to an arbitrary number
// of further levels instead of DIR-24-8's fixed single second level.

func stride8BatchWide(t *Stride8Table, addrs []netip.Addr, out []uint32) {
	best := t.defaultHopOrInvalid()

	for base := 0; base < len(addrs); base += batchChunk {
		end := base + batchChunk
		if end > len(addrs) {
			end = len(addrs)
		}
		chunk := addrs[base:end]

		var descend bitset.BitSet256
		var bestHop [batchChunk]uint32
		var level [batchChunk]*node8
		var bytesOf [batchChunk][]byte

		for i, a := range chunk {
			bestHop[i] = best
			b, err := t.addrBytes(a)
			if err != nil {
				out[base+i] = InvalidNextHop
				continue
			}
			bytesOf[i] = b

			slot := &t.root[b[0]]
			if slot.e.valid() {
				bestHop[i] = slot.e.hop()
			}
			if !slot.hasChild() {
				out[base+i] = bestHop[i]
				continue
			}
			level[i] = t.nodes.Get(slot.childIdx())
			descend.Set(uint(i))
		}

		for depth := 1; depth < t.depth && !descend.IsEmpty(); depth++ {
			var next bitset.BitSet256
			for i, ok := descend.FirstSet(); ok; i, ok = descend.NextSet(i + 1) {
				slot := &level[i][bytesOf[i][depth]]
				if slot.e.valid() {
					bestHop[i] = slot.e.hop()
				}
				if !slot.hasChild() {
					out[base+int(i)] = bestHop[i]
					continue
				}
				level[i] = t.nodes.Get(slot.childIdx())
				next.Set(i)
			}
			descend = next
		}
		for i, ok := descend.FirstSet(); ok; i, ok = descend.NextSet(i + 1) {
			out[base+int(i)] = bestHop[i]
		}
	}
}

func wide16BatchWide(t *Wide16Table, addrs []netip.Addr, out []uint32) {
	best := t.defaultHopOrInvalid()

	for base := 0; base < len(addrs); base += batchChunk {
		end := base + batchChunk
		if end > len(addrs) {
			end = len(addrs)
		}
		chunk := addrs[base:end]

		var descend bitset.BitSet256
		var bestHop [batchChunk]uint32
		var level [batchChunk]*node8
		var bytesOf [batchChunk][16]byte

		for i, a := range chunk {
			bestHop[i] = best
			b, err := ipv6Bytes(a)
			if err != nil {
				out[base+i] = InvalidNextHop
				continue
			}
			bytesOf[i] = b

			rootKey := uint32(b[0])<<8 | uint32(b[1])
			slot := &t.root[rootKey]
			if slot.e.valid() {
				bestHop[i] = slot.e.hop()
			}
			if !slot.hasChild() {
				out[base+i] = bestHop[i]
				continue
			}
			level[i] = t.nodes.Get(slot.childIdx())
			descend.Set(uint(i))
		}

		for depth := 2; depth < 16 && !descend.IsEmpty(); depth++ {
			var next bitset.BitSet256
			for i, ok := descend.FirstSet(); ok; i, ok = descend.NextSet(i + 1) {
				slot := &level[i][bytesOf[i][depth]]
				if slot.e.valid() {
					bestHop[i] = slot.e.hop()
				}
				if !slot.hasChild() {
					out[base+int(i)] = bestHop[i]
					continue
				}
				level[i] = t.nodes.Get(slot.childIdx())
				next.Set(i)
			}
			descend = next
		}
		for i, ok := descend.FirstSet(); ok; i, ok = descend.NextSet(i + 1) {
			out[base+int(i)] = bestHop[i]
		}
	}
}
