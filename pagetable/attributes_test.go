// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pagetable

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usbarmory/go-fwmem/uefi"
)

const (
	rw   = X64_PRESENT | X64_RW
	ro   = X64_PRESENT
	rwnx = X64_PRESENT | X64_RW | X64_NX
	ronx = X64_PRESENT | X64_NX
)

func x64Map(entries ...Entry) *Map {
	return &Map{
		Arch:    X64,
		Entries: entries,
	}
}

func TestRegionExactEntry(t *testing.T) {
	tests := []struct {
		name     string
		pte      uint64
		expected uint64
	}{
		{"read/write/execute", rw, 0},
		{"read/write, no execute", rwnx, uefi.EFI_MEMORY_XP},
		{"read only", ro, uefi.EFI_MEMORY_RO},
		{"read only, no execute", ronx, uefi.EFI_MEMORY_RO | uefi.EFI_MEMORY_XP},
		{"not present", X64_NX, uefi.EFI_MEMORY_ACCESS_MASK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := x64Map(
				Entry{LinearAddress: 0x0000, Length: 0x1000, PageEntry: rw},
				Entry{LinearAddress: 0x1000, Length: 0x1000, PageEntry: tt.pte},
				Entry{LinearAddress: 0x2000, Length: 0x1000, PageEntry: rw},
			)

			attr, err := m.RegionAccessAttributes(0x1000, 0x1000)
			require.NoError(t, err)
			require.Equal(t, tt.expected, attr, uefi.AccessAttributes(attr))
		})
	}
}

func TestRegionSpanningEntries(t *testing.T) {
	// executable code followed by non-executable data
	m := x64Map(
		Entry{LinearAddress: 0x10000, Length: 0x3000, PageEntry: ro},
		Entry{LinearAddress: 0x13000, Length: 0x2000, PageEntry: rwnx},
	)

	attr, err := m.RegionAccessAttributes(0x10000, 0x5000)
	require.NoError(t, err)
	require.Equal(t, uint64(uefi.EFI_MEMORY_XP|uefi.EFI_MEMORY_RO), attr)

	// a single byte of each entry is enough
	attr, err = m.RegionAccessAttributes(0x12fff, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(uefi.EFI_MEMORY_XP|uefi.EFI_MEMORY_RO), attr)

	attr, err = m.RegionAccessAttributes(0x13000, 0x1000)
	require.NoError(t, err)
	require.Equal(t, uint64(uefi.EFI_MEMORY_XP), attr)
}

func TestRegionPartiallyMapped(t *testing.T) {
	m := x64Map(
		Entry{LinearAddress: 0x1000, Length: 0x1000, PageEntry: rw},
		Entry{LinearAddress: 0x5000, Length: 0x1000, PageEntry: rwnx},
	)

	attr, err := m.RegionAccessAttributes(0x0, 0x3000)
	require.NoError(t, err)
	require.Equal(t, uint64(0), attr)

	attr, err = m.RegionAccessAttributes(0x0, 0x10000)
	require.NoError(t, err)
	require.Equal(t, uint64(uefi.EFI_MEMORY_XP), attr)
}

func TestRegionNotFound(t *testing.T) {
	m := x64Map(
		Entry{LinearAddress: 0x1000, Length: 0x1000, PageEntry: rw},
		Entry{LinearAddress: 0x5000, Length: 0x1000, PageEntry: rw},
	)

	for _, r := range [][2]uint64{
		{0x0, 0x1000},
		{0x2000, 0x3000},
		{0x6000, 0x1000},
		{math.MaxUint64, 1},
	} {
		attr, err := m.RegionAccessAttributes(r[0], r[1])
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, err, uefi.ErrEfiNotFound)
		require.Zero(t, attr)
	}
}

func TestRegionInvalidParameter(t *testing.T) {
	var nilMap *Map

	m := x64Map(Entry{LinearAddress: 0x1000, Length: 0x1000, PageEntry: rw})

	_, err := m.RegionAccessAttributes(0x1000, 0)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = nilMap.RegionAccessAttributes(0x1000, 0x1000)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = x64Map().RegionAccessAttributes(0x1000, 0x1000)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = (&Map{Entries: m.Entries}).RegionAccessAttributes(0x1000, 0x1000)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestRegionMixedPermissions(t *testing.T) {
	tests := []struct {
		name     string
		pte      uint64
		expected uint64
	}{
		{"no execute", rwnx, uefi.EFI_MEMORY_XP},
		{"read only, no execute", ronx, uefi.EFI_MEMORY_RO | uefi.EFI_MEMORY_XP},
		{"not present", X64_NX, uefi.EFI_MEMORY_ACCESS_MASK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// a single restrictive entry restricts the whole region
			// regardless of its position
			m := x64Map(
				Entry{LinearAddress: 0x1000, Length: 0x1000, PageEntry: rw},
				Entry{LinearAddress: 0x2000, Length: 0x1000, PageEntry: tt.pte},
			)

			attr, err := m.RegionAccessAttributes(0x1000, 0x2000)
			require.NoError(t, err)
			require.Equal(t, tt.expected, attr, uefi.AccessAttributes(attr))

			m = x64Map(
				Entry{LinearAddress: 0x1000, Length: 0x1000, PageEntry: tt.pte},
				Entry{LinearAddress: 0x2000, Length: 0x1000, PageEntry: rw},
			)

			attr, err = m.RegionAccessAttributes(0x1000, 0x2000)
			require.NoError(t, err)
			require.Equal(t, tt.expected, attr, uefi.AccessAttributes(attr))
		})
	}
}

func TestRegionOverflow(t *testing.T) {
	m := x64Map(Entry{LinearAddress: 0x1000, Length: 0x1000, PageEntry: rw})

	_, err := m.RegionAccessAttributes(math.MaxUint64, 2)
	require.ErrorIs(t, err, ErrAborted)
	require.False(t, errors.Is(err, ErrInvalidParameter))

	m = x64Map(Entry{LinearAddress: math.MaxUint64 - 0xfff, Length: 0x2000, PageEntry: rw})

	_, err = m.RegionAccessAttributes(0x1000, 0x1000)
	require.ErrorIs(t, err, ErrAborted)

	// the last page of the address space is valid
	m = x64Map(Entry{LinearAddress: math.MaxUint64 - 0xfff, Length: 0x1000, PageEntry: rwnx})

	attr, err := m.RegionAccessAttributes(math.MaxUint64, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(uefi.EFI_MEMORY_XP), attr)
}

func TestRegionIdempotent(t *testing.T) {
	m := x64Map(
		Entry{LinearAddress: 0x1000, Length: 0x2000, PageEntry: ro},
		Entry{LinearAddress: 0x3000, Length: 0x1000, PageEntry: rwnx},
	)

	a1, err1 := m.RegionAccessAttributes(0x2000, 0x2000)
	a2, err2 := m.RegionAccessAttributes(0x2000, 0x2000)

	require.NoError(t, err1)
	require.Equal(t, err1, err2)
	require.Equal(t, a1, a2)
	require.Len(t, m.Entries, 2)
}

func TestRegionAArch64(t *testing.T) {
	m := &Map{
		Arch: AArch64,
		Entries: []Entry{
			{LinearAddress: 0x40000000, Length: 0x1000, PageEntry: AARCH64_VALID | AARCH64_AF | AARCH64_AP_RO},
			{LinearAddress: 0x40001000, Length: 0x1000, PageEntry: AARCH64_VALID | AARCH64_AF | AARCH64_PXN | AARCH64_UXN},
			{LinearAddress: 0x40002000, Length: 0x1000, PageEntry: AARCH64_VALID},
		},
	}

	attr, err := m.RegionAccessAttributes(0x40000000, 0x1000)
	require.NoError(t, err)
	require.Equal(t, uint64(uefi.EFI_MEMORY_RO), attr)

	attr, err = m.RegionAccessAttributes(0x40001000, 0x1000)
	require.NoError(t, err)
	require.Equal(t, uint64(uefi.EFI_MEMORY_XP), attr)

	attr, err = m.RegionAccessAttributes(0x40002000, 0x1000)
	require.NoError(t, err)
	require.Equal(t, uint64(uefi.EFI_MEMORY_RP), attr)

	attr, err = m.RegionAccessAttributes(0x40000000, 0x3000)
	require.NoError(t, err)
	require.Equal(t, uint64(uefi.EFI_MEMORY_ACCESS_MASK), attr)
}

func TestAArch64Predicates(t *testing.T) {
	const valid = AARCH64_VALID | AARCH64_AF

	// read-only at every exception level
	require.False(t, AArch64.Writable(valid|AARCH64_AP_EL0|AARCH64_AP_RO))
	require.True(t, AArch64.Writable(valid|AARCH64_AP_EL0))
	require.True(t, AArch64.Writable(valid))

	// execution must be allowed at both exception levels
	require.False(t, AArch64.Executable(valid|AARCH64_UXN))
	require.False(t, AArch64.Executable(valid|AARCH64_PXN))
	require.True(t, AArch64.Executable(valid))

	require.Equal(t, "r--", DecodeAttributes(AArch64, valid|AARCH64_AP_EL0|AARCH64_AP_RO|AARCH64_UXN))
}
