// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pagetable

import (
	"errors"
	"math/bits"

	"github.com/usbarmory/go-fwmem/uefi"
)

// overlaps reports whether the inclusive intervals [aStart, aEnd] and
// [bStart, bEnd] intersect.
func overlaps(aStart, aEnd, bStart, bEnd uint64) bool {
	return aStart <= bEnd && bStart <= aEnd
}

// RegionAccessAttributes checks the flat page table for the region starting
// at address and converts the associated entries to EFI access attributes
// (EFI_MEMORY_XP, EFI_MEMORY_RO, EFI_MEMORY_RP).
//
// An access attribute is cleared only if every entry overlapping the region
// grants the corresponding permission.
//
// ErrInvalidParameter is returned when the map is not populated or length is
// zero, ErrAborted when the region or an entry end overflows and ErrNotFound
// when no part of the region is mapped, in which case the attributes are
// unknown.
func (m *Map) RegionAccessAttributes(address uint64, length uint64) (attributes uint64, err error) {
	var found bool

	if m == nil || m.Arch == nil || len(m.Entries) == 0 || length == 0 {
		return 0, ErrInvalidParameter
	}

	end, carry := bits.Add64(address, length-1, 0)

	if carry != 0 {
		return 0, ErrAborted
	}

	// ordering is a caller invariant, overflowing entries are reported below
	if debug {
		if err = m.Validate(); errors.Is(err, ErrUnsorted) || errors.Is(err, ErrOverlap) {
			panic(err)
		}

		err = nil
	}

	for i := range m.Entries {
		e := &m.Entries[i]
		entryEnd, ok := e.End()

		if !ok {
			return 0, ErrAborted
		}

		if overlaps(address, end, e.LinearAddress, entryEnd) {
			if !found {
				attributes = 0
				found = true
			}

			if !m.Arch.Executable(e.PageEntry) {
				attributes |= uefi.EFI_MEMORY_XP
			}

			if !m.Arch.Writable(e.PageEntry) {
				attributes |= uefi.EFI_MEMORY_RO
			}

			if !m.Arch.Readable(e.PageEntry) {
				attributes |= uefi.EFI_MEMORY_RP
			}

			address = entryEnd + 1
		}

		if entryEnd >= end {
			break
		}
	}

	if !found {
		return 0, ErrNotFound
	}

	return
}
