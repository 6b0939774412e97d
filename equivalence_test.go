// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

package lpmtable

import (
	"math/rand/v2"
	"net/netip"
	"testing"
)

// TestDir24Stride8Equivalence checks spec §8's required property: for any
// sequence of IPv4 inserts/deletes, DIR-24-8 and Stride-8 must agree on
// every lookup.
func TestDir24Stride8Equivalence(t *testing.T) {
	t.Parallel()

	prng := rand.New(rand.NewPCG(11, 22))
	dir24 := NewDir24Table()
	stride8 := NewStride8IPv4()

	randPfx := func() netip.Prefix {
		bits := prng.IntN(33)
		addr := netip.AddrFrom4([4]byte{byte(prng.IntN(256)), byte(prng.IntN(256)), byte(prng.IntN(256)), byte(prng.IntN(256))})
		pfx, err := addr.Prefix(bits)
		if err != nil {
			t.Fatal(err)
		}
		return pfx
	}

	var inserted []netip.Prefix
	for i := 0; i < 2000; i++ {
		pfx := randPfx()
		hop := uint32(prng.IntN(1000))
		if err := dir24.Insert(pfx, hop); err != nil {
			t.Fatal(err)
		}
		if err := stride8.Insert(pfx, hop); err != nil {
			t.Fatal(err)
		}
		inserted = append(inserted, pfx)

		if prng.IntN(5) == 0 && len(inserted) > 0 {
			victim := inserted[prng.IntN(len(inserted))]
			if _, err := dir24.Delete(victim); err != nil {
				t.Fatal(err)
			}
			if _, err := stride8.Delete(victim); err != nil {
				t.Fatal(err)
			}
		}
	}

	for i := 0; i < 5000; i++ {
		addr := netip.AddrFrom4([4]byte{byte(prng.IntN(256)), byte(prng.IntN(256)), byte(prng.IntN(256)), byte(prng.IntN(256))})
		a := dir24.Lookup(addr)
		b := stride8.Lookup(addr)
		if a != b {
			t.Fatalf("Lookup(%s): Dir24=%d Stride8=%d disagree", addr, a, b)
		}
	}
}

// TestWide16Stride8Equivalence checks spec §8's required property: for any
// sequence of IPv6 inserts/deletes, Wide-16 and Stride-8 must agree on
// every lookup.
func TestWide16Stride8Equivalence(t *testing.T) {
	t.Parallel()

	prng := rand.New(rand.NewPCG(33, 44))
	wide16 := NewWide16Table()
	stride8 := NewStride8IPv6()

	randAddr := func() netip.Addr {
		var b [16]byte
		for j := range b {
			b[j] = byte(prng.IntN(256))
		}
		return netip.AddrFrom16(b)
	}

	var inserted []netip.Prefix
	for i := 0; i < 2000; i++ {
		bits := prng.IntN(129)
		pfx, err := randAddr().Prefix(bits)
		if err != nil {
			t.Fatal(err)
		}
		hop := uint32(prng.IntN(1000))
		if err := wide16.Insert(pfx, hop); err != nil {
			t.Fatal(err)
		}
		if err := stride8.Insert(pfx, hop); err != nil {
			t.Fatal(err)
		}
		inserted = append(inserted, pfx)

		if prng.IntN(5) == 0 && len(inserted) > 0 {
			victim := inserted[prng.IntN(len(inserted))]
			if _, err := wide16.Delete(victim); err != nil {
				t.Fatal(err)
			}
			if _, err := stride8.Delete(victim); err != nil {
				t.Fatal(err)
			}
		}
	}

	for i := 0; i < 5000; i++ {
		addr := randAddr()
		a := wide16.Lookup(addr)
		b := stride8.Lookup(addr)
		if a != b {
			t.Fatalf("Lookup(%s): Wide16=%d Stride8=%d disagree", addr, a, b)
		}
	}
}
