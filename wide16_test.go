// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

package lpmtable

import (
	"math/rand/v2"
	"net/netip"
	"testing"
)

func TestWide16Dominance(t *testing.T) {
	t.Parallel()

	tbl := NewWide16Table()
	_ = tbl.Insert(mustPfx(t, "2001:db8::/32"), 1)
	_ = tbl.Insert(mustPfx(t, "2001:db8:1::/48"), 2)
	_ = tbl.Insert(mustPfx(t, "2001:db8:1:2::/64"), 3)

	cases := []struct {
		addr string
		want uint32
	}{
		{"2001:db8:1:2::1", 3},
		{"2001:db8:1:3::1", 2},
		{"2001:db8:2::1", 1},
	}
	for _, c := range cases {
		if got := tbl.Lookup(mustAddr(t, c.addr)); got != c.want {
			t.Errorf("Lookup(%s) = %d, want %d", c.addr, got, c.want)
		}
	}
}

func TestWide16RootPartialStride(t *testing.T) {
	t.Parallel()

	// a prefix shorter than 16 bits must expand over a range of root
	// entries rather than requiring an exact 16-bit key.
	tbl := NewWide16Table()
	_ = tbl.Insert(mustPfx(t, "2000::/3"), 1)

	if got := tbl.Lookup(mustAddr(t, "2001:db8::1")); got != 1 {
		t.Errorf("Lookup(2001:db8::1) = %d, want 1", got)
	}
	if got := tbl.Lookup(mustAddr(t, "3fff::1")); got != 1 {
		t.Errorf("Lookup(3fff::1) = %d, want 1", got)
	}
	if got := tbl.Lookup(mustAddr(t, "4000::1")); got != InvalidNextHop {
		t.Errorf("Lookup(4000::1) = %d, want InvalidNextHop", got)
	}
}

func TestWide16DefaultFallback(t *testing.T) {
	t.Parallel()

	tbl := NewWide16Table()
	if got := tbl.Lookup(mustAddr(t, "::1")); got != InvalidNextHop {
		t.Errorf("Lookup with no routes = %d, want InvalidNextHop", got)
	}

	_ = tbl.Insert(mustPfx(t, "::/0"), 42)
	if got := tbl.Lookup(mustAddr(t, "2001:db8::1")); got != 42 {
		t.Errorf("Lookup after default route = %d, want 42", got)
	}
}

func TestWide16HostRoute(t *testing.T) {
	t.Parallel()

	tbl := NewWide16Table()
	_ = tbl.Insert(mustPfx(t, "2001:db8::/32"), 1)
	_ = tbl.Insert(mustPfx(t, "2001:db8::dead:beef/128"), 2)

	if got := tbl.Lookup(mustAddr(t, "2001:db8::dead:beef")); got != 2 {
		t.Errorf("Lookup(host route) = %d, want 2", got)
	}
	if got := tbl.Lookup(mustAddr(t, "2001:db8::1")); got != 1 {
		t.Errorf("Lookup(other address in /32) = %d, want 1", got)
	}
}

func TestWide16DeleteNoRepaint(t *testing.T) {
	t.Parallel()

	// the /44 is expanded across 16 slots of the same NODE8 that holds the
	// /48, so deleting the /48 leaves that slot empty rather than restoring
	// the /44's next-hop there.
	tbl := NewWide16Table()
	_ = tbl.Insert(mustPfx(t, "2001:db8::/44"), 1)
	_ = tbl.Insert(mustPfx(t, "2001:db8:1::/48"), 2)

	removed, err := tbl.Delete(mustPfx(t, "2001:db8:1::/48"))
	if err != nil || !removed {
		t.Fatalf("Delete(/48) = (%v, %v), want (true, nil)", removed, err)
	}
	if got := tbl.Lookup(mustAddr(t, "2001:db8:1::1")); got != InvalidNextHop {
		t.Errorf("Lookup after delete = %d, want InvalidNextHop (no re-paint)", got)
	}
}

func TestWide16RejectsIPv4(t *testing.T) {
	t.Parallel()

	tbl := NewWide16Table()
	if err := tbl.Insert(mustPfx(t, "10.0.0.0/8"), 1); err == nil {
		t.Fatal("Wide16Table accepted an IPv4 prefix")
	}
}

func TestWide16BatchMatchesLookup(t *testing.T) {
	t.Parallel()

	tbl := NewWide16Table()
	prng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 300; i++ {
		var b [16]byte
		for j := range b {
			b[j] = byte(prng.IntN(256))
		}
		addr := netip.AddrFrom16(b)
		bits := prng.IntN(129)
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
