// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

package lpmtable

import (
	"math/rand/v2"
	"net/netip"
	"testing"
)

func TestStride8IPv4Dominance(t *testing.T) {
	t.Parallel()

	tbl := NewStride8IPv4()
	_ = tbl.Insert(mustPfx(t, "10.0.0.0/8"), 1)
	_ = tbl.Insert(mustPfx(t, "10.1.0.0/16"), 2)
	_ = tbl.Insert(mustPfx(t, "10.1.2.0/24"), 3)
	_ = tbl.Insert(mustPfx(t, "10.1.2.128/25"), 4)

	cases := []struct {
		addr string
		want uint32
	}{
		{"10.1.2.200", 4},
		{"10.1.2.3", 3},
		{"10.1.3.1", 2},
		{"10.2.0.1", 1},
	}
	for _, c := range cases {
		if got := tbl.Lookup(mustAddr(t, c.addr)); got != c.want {
			t.Errorf("Lookup(%s) = %d, want %d", c.addr, got, c.want)
		}
	}
}

func TestStride8IPv4DualValidAndChild(t *testing.T) {
	t.Parallel()

	// a /24 and a /32 beneath it share one octet slot at the node8 below
	// the root: the slot must be simultaneously terminal (for the /24)
	// and the anchor of a deeper child (for the /32).
	tbl := NewStride8IPv4()
	_ = tbl.Insert(mustPfx(t, "192.0.2.0/24"), 10)
	_ = tbl.Insert(mustPfx(t, "192.0.2.55/32"), 20)

	if got := tbl.Lookup(mustAddr(t, "192.0.2.55")); got != 20 {
		t.Errorf("Lookup(192.0.2.55) = %d, want 20", got)
	}
	if got := tbl.Lookup(mustAddr(t, "192.0.2.1")); got != 10 {
		t.Errorf("Lookup(192.0.2.1) = %d, want 10", got)
	}

	removed, err := tbl.Delete(mustPfx(t, "192.0.2.55/32"))
	if err != nil || !removed {
		t.Fatalf("Delete(/32) = (%v, %v), want (true, nil)", removed, err)
	}
	if got := tbl.Lookup(mustAddr(t, "192.0.2.55")); got != 10 {
		t.Errorf("Lookup(192.0.2.55) after delete = %d, want 10 (falls back within the same node)", got)
	}
}

func TestStride8IPv6HostRoute(t *testing.T) {
	t.Parallel()

	tbl := NewStride8IPv6()
	_ = tbl.Insert(mustPfx(t, "2001:db8::/32"), 1)
	_ = tbl.Insert(mustPfx(t, "2001:db8::1/128"), 2)

	if got := tbl.Lookup(mustAddr(t, "2001:db8::1")); got != 2 {
		t.Errorf("Lookup(2001:db8::1) = %d, want 2", got)
	}
	if got := tbl.Lookup(mustAddr(t, "2001:db8::2")); got != 1 {
		t.Errorf("Lookup(2001:db8::2) = %d, want 1", got)
	}
}

func TestStride8WrongFamily(t *testing.T) {
	t.Parallel()

	ipv4 := NewStride8IPv4()
	if err := ipv4.Insert(mustPfx(t, "2001:db8::/32"), 1); err == nil {
		t.Fatal("IPv4 table accepted an IPv6 prefix")
	}

	ipv6 := NewStride8IPv6()
	if err := ipv6.Insert(mustPfx(t, "10.0.0.0/8"), 1); err == nil {
		t.Fatal("IPv6 table accepted an IPv4 prefix")
	}
}

func TestStride8BatchMatchesLookup(t *testing.T) {
	t.Parallel()

	tbl := NewStride8IPv6()
	prng := rand.New(rand.NewPCG(7, 9))
	for i := 0; i < 300; i++ {
		var b [16]byte
		for j := range b {
			b[j] = byte(prng.IntN(256))
		}
		addr := netip.AddrFrom16(b)
		bits := 16 + prng.IntN(113)
		pfx, err := addr.Prefix(bits)
		if err != nil {
			t.Fatal(err)
		}
		if err := tbl.Insert(pfx, uint32(i)); err != nil {
			t.Fatal(err)
		}
	}

	n := 1000
	addrs := make([]netip.Addr, n)
	for i := range addrs {
		var b [16]byte
		for j := range b {
			b[j] = byte(prng.IntN(256))
		}
		addrs[i] = netip.AddrFrom16(b)
	}
	out := make([]uint32, n)
	tbl.LookupBatch(addrs, out)

	for i, a := range addrs {
		want := tbl.Lookup(a)
		if out[i] != want {
			t.Fatalf("LookupBatch[%d] = %d, want %d", i, out[i], want)
		}
	}
}

func TestStride8DeleteIdempotent(t *testing.T) {
	t.Parallel()

	tbl := NewStride8IPv4()
	removed, err := tbl.Delete(mustPfx(t, "198.51.100.0/24"))
	if err != nil || removed {
		t.Fatalf("Delete of never-inserted prefix = (%v, %v), want (false, nil)", removed, err)
	}
}
