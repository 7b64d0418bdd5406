// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"strings"
)

// EFI memory attributes
// See: https://uefi.org/specs/UEFI/2.10/07_Services_Boot_Services.html#getmemorymap
const (
	EFI_MEMORY_UC            = 0x0000000000000001
	EFI_MEMORY_WC            = 0x0000000000000002
	EFI_MEMORY_WT            = 0x0000000000000004
	EFI_MEMORY_WB            = 0x0000000000000008
	EFI_MEMORY_UCE           = 0x0000000000000010
	EFI_MEMORY_WP            = 0x0000000000001000
	EFI_MEMORY_RP            = 0x0000000000002000
	EFI_MEMORY_XP            = 0x0000000000004000
	EFI_MEMORY_NV            = 0x0000000000008000
	EFI_MEMORY_MORE_RELIABLE = 0x0000000000010000
	EFI_MEMORY_RO            = 0x0000000000020000
	EFI_MEMORY_SP            = 0x0000000000040000
	EFI_MEMORY_CPU_CRYPTO    = 0x0000000000080000
	EFI_MEMORY_RUNTIME       = 0x8000000000000000

	// access attributes
	EFI_MEMORY_ACCESS_MASK = EFI_MEMORY_RP | EFI_MEMORY_XP | EFI_MEMORY_RO
)

var accessAttributeNames = []struct {
	bit  uint64
	name string
}{
	{EFI_MEMORY_RP, "RP"},
	{EFI_MEMORY_XP, "XP"},
	{EFI_MEMORY_RO, "RO"},
}

// AccessAttributes returns a short human-readable form of the access
// attributes in attr (e.g. "RO|XP"), or "RWX" when none is set.
func AccessAttributes(attr uint64) string {
	var s []string

	for _, a := range accessAttributeNames {
		if attr&a.bit != 0 {
			s = append(s, a.name)
		}
	}

	if len(s) == 0 {
		return "RWX"
	}

	return strings.Join(s, "|")
}
