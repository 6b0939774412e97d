// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

// Package arena provides a small index-addressed, append-only arena used
// by all three lookup engines for their TBL8 groups / NODE8 nodes /
// Stride-8 nodes. Wide-16's 65,536-entry root is a plain slice, not an
// arena entry.
//
// Grounded in the shape of github.com/gaissmai/bart's pool.go (a
// type-safe wrapper tracking allocation counts for debugging), but
// index-addressed rather than pointer-addressed: per the specification's
// design notes (§9, "cyclic / pointer-rich structures → arena + index"),
// every interior reference is a uint32 index into an Arena, never a raw
// pointer. A Go slice already grows geometrically and, because consumers
// hold indices rather than pointers into the backing array, growth never
// invalidates an existing reference — the recommended design the spec
// calls out explicitly.
package arena

// Arena is an append-only, index-addressed store of T. The zero value is
// ready to use. Entries are never individually freed — per the
// specification's non-goal on interior-node reclamation, memory is
// monotonically non-decreasing until the whole table is discarded.
type Arena[T any] struct {
	items []T
}

// New allocates a fresh zero-value T and returns its stable index.
func (a *Arena[T]) New() uint32 {
	idx := uint32(len(a.items))
	var zero T
	a.items = append(a.items, zero)
	return idx
}

// Get returns a pointer to the entry at idx. The pointer is only valid
// until the next New call, which may move the backing array; callers
// needing a stable reference across mutation must re-resolve by index.
func (a *Arena[T]) Get(idx uint32) *T {
	return &a.items[idx]
}

// Len returns the number of entries ever allocated.
func (a *Arena[T]) Len() int {
	return len(a.items)
}
