// Copyright (c) 2025 The lpmtable Authors
// SPDX-License-Identifier: MIT

package lpmtable

import "errors"

// Mutation errors. All mutation operations are all-or-nothing: an error
// leaves the table exactly as it was before the call.
var (
	// ErrInvalidPrefixLength is returned when a prefix length is negative
	// or exceeds the address family's maximum (32 for IPv4, 128 for IPv6).
	ErrInvalidPrefixLength = errors.New("lpmtable: prefix length exceeds family maximum")

	// ErrInvalidNextHop is returned when a next-hop value is outside
	// [0, 2^30), or equals the reserved 32-bit invalid sentinel 0xFFFFFFFF.
	ErrInvalidNextHop = errors.New("lpmtable: next-hop value out of range")

	// ErrWrongFamily is returned when a prefix or address's family does
	// not match the family the table was created for.
	ErrWrongFamily = errors.New("lpmtable: address family mismatch")

	// ErrResourceExhausted is returned when an internal arena fails to
	// grow (e.g. the arena would exceed its maximum index width).
	ErrResourceExhausted = errors.New("lpmtable: arena growth failed")
)
