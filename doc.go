// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

// Package lpmtable provides longest-prefix-match (LPM) routing tables for
// IPv4 and IPv6 — the core forwarding-plane lookup used by routers,
// firewalls and load balancers to resolve a destination address to the
// next-hop of the most specific previously-installed prefix.
//
// Three interchangeable engines are provided, each tuned for a different
// address family and prefix-length distribution:
//
//   - Dir24Table:   IPv4 only. Two-level direct table, at most two memory
//     indirections per lookup. Favors dense route tables.
//   - Wide16Table:  IPv6 only. A 16-bit first stride followed by 8-bit
//     strides. Favors /32-/48 allocations, the bulk of real IPv6 routing.
//   - Stride8Table: IPv4 or IPv6. A uniform 8-bit-stride multibit trie,
//     the memory-parsimonious fallback for sparse tables.
//
// All three share the same packed 32-bit entry layout (see entry.go) and
// the same insert/delete/lookup contract: for any lookup address, the
// returned next-hop is that of the longest previously-inserted prefix
// whose bits match, falling back to the default route (length 0) and
// finally to the invalid sentinel InvalidNextHop.
//
// A table is not safe for concurrent use by a mutator and readers at the
// same time; concurrent readers alone are safe.
package lpmtable
