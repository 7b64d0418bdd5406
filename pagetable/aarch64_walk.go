// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pagetable

import (
	"io"
)

const (
	aarch64AddressMask = 0x0000fffffffff000
	// TTBR0_ELx.BADDR, root tables smaller than a page are aligned to
	// their size
	aarch64BaseMask = 0x0000fffffffffffe

	// 4 KiB granule input size limits
	aarch64MinT0SZ = 16
	aarch64MaxT0SZ = 39
)

// aarch64Walker parses AArch64 stage 1 translation tables (4 KiB granule)
// from a physical memory image.
type aarch64Walker struct {
	tableReader

	// hierarchical permission controls disabled (TCR_ELx.HPD)
	hpd bool
	m   *Map
}

// aarch64LevelShift returns the input address shift of an entry at the
// argument lookup level, level 3 being the page level.
func aarch64LevelShift(level int) uint {
	return 12 + uint(3-level)*tableShift
}

// inherit applies the heritable table attributes of parent descriptors to a
// block or page descriptor.
func inherit(pte uint64, heritable uint64) uint64 {
	if heritable&AARCH64_XN_TABLE != 0 {
		pte |= AARCH64_UXN
	}

	if heritable&AARCH64_PXN_TABLE != 0 {
		pte |= AARCH64_PXN
	}

	if heritable&AARCH64_AP_TABLE_NO_EL0 != 0 {
		pte &^= AARCH64_AP_EL0
	}

	if heritable&AARCH64_AP_TABLE_RO != 0 {
		pte |= AARCH64_AP_RO
	}

	return pte
}

func (w *aarch64Walker) walk(table uint64, level int, n int, base uint64, heritable uint64) (err error) {
	var entries [tableEntries]uint64

	if err = w.read(table, entries[:n]); err != nil {
		return
	}

	shift := aarch64LevelShift(level)

	for i, pte := range entries[:n] {
		if pte&AARCH64_VALID == 0 {
			continue
		}

		addr := base | uint64(i)<<shift
		typ := pte&AARCH64_TABLE != 0

		switch {
		case level < 3 && typ:
			if err = w.walk(pte&aarch64AddressMask, level+1, tableEntries, addr, heritable|pte&AARCH64_HERITABLE_MASK); err != nil {
				return
			}
		case level == 3 && typ, (level == 1 || level == 2) && !typ:
			if !w.hpd {
				pte = inherit(pte, heritable)
			}

			w.m.add(addr, uint64(1)<<shift, pte, aarch64AddressMask)
		}
	}

	return
}

// ParseAArch64 creates a flat page table by walking the AArch64 translation
// tables rooted at the argument TTBR0_ELx value, reading them from the
// argument physical memory image.
//
// The t0sz argument sets the input address size (TCR_ELx.T0SZ), which
// determines the initial lookup level and the root table length. The hpd
// argument reflects TCR_ELx.HPD, when set the APTable, XNTable and PXNTable
// bits of table descriptors are ignored, otherwise they restrict every
// descriptor below them.
//
// Only the 4 KiB translation granule is supported.
func ParseAArch64(mem io.ReaderAt, ttbr0 uint64, t0sz int, hpd bool) (m *Map, err error) {
	if mem == nil || t0sz < aarch64MinT0SZ || t0sz > aarch64MaxT0SZ {
		return nil, ErrInvalidParameter
	}

	w := &aarch64Walker{
		tableReader: tableReader{mem: mem},
		hpd:         hpd,
		m:           &Map{Arch: AArch64},
	}

	level := (t0sz - aarch64MinT0SZ) / tableShift
	n := tableEntries >> ((t0sz - aarch64MinT0SZ) % tableShift)

	if err = w.walk(ttbr0&aarch64BaseMask, level, n, 0, 0); err != nil {
		return nil, err
	}

	return w.m, nil
}
