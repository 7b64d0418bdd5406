// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pagetable

import (
	"io"
)

const x64AddressMask = 0x000ffffffffff000

// x64Walker parses x64 page tables from a physical memory image.
type x64Walker struct {
	tableReader

	levels int
	m      *Map
}

// levelShift returns the linear address shift of an entry at the argument
// level, level 1 being the page table.
func levelShift(level int) uint {
	return 12 + uint(level-1)*tableShift
}

// canonical sign extends the argument linear address according to the
// paging mode width.
func (w *x64Walker) canonical(addr uint64) uint64 {
	width := levelShift(w.levels) + tableShift

	if addr&(1<<(width-1)) != 0 {
		addr |= ^uint64(0) << width
	}

	return addr
}

// leaf normalizes a leaf entry to the page table entry layout, the PAT bit of
// large pages is moved to its 4 KiB position and parent restrictions are
// applied.
func leaf(pte uint64, level int, parent uint64) uint64 {
	if level > 1 {
		pat := pte&X64_PAT_LARGE != 0

		pte &^= X64_PS | X64_PAT_LARGE
		pte &^= (uint64(1)<<levelShift(level) - 1) &^ 0xfff

		if pat {
			pte |= X64_PAT
		}
	}

	return restrict(pte, parent)
}

// restrict applies the access restrictions of parent to pte: write and user
// access must be granted by every level while no-execute at any level applies
// to the whole hierarchy.
func restrict(pte uint64, parent uint64) uint64 {
	pte &^= (X64_RW | X64_US) &^ parent
	pte |= parent & X64_NX

	return pte
}

func (w *x64Walker) walk(table uint64, level int, base uint64, parent uint64) (err error) {
	var entries [tableEntries]uint64

	if err = w.read(table, entries[:]); err != nil {
		return
	}

	shift := levelShift(level)

	for i, pte := range entries {
		if pte&X64_PRESENT == 0 {
			continue
		}

		linear := base | uint64(i)<<shift

		switch {
		case level == 1, (level == 2 || level == 3) && pte&X64_PS != 0:
			w.m.add(w.canonical(linear), uint64(1)<<shift, leaf(pte, level, parent), x64AddressMask)
		case level > 1:
			if err = w.walk(pte&x64AddressMask, level-1, linear, restrict(pte, parent)); err != nil {
				return
			}
		}
	}

	return
}

// ParseX64 creates a flat page table by walking the x64 paging structures
// rooted at the argument CR3 value, reading them from the argument physical
// memory image.
//
// The levels argument selects 4-level or 5-level (LA57) paging.
func ParseX64(mem io.ReaderAt, cr3 uint64, levels int) (m *Map, err error) {
	if mem == nil || (levels != 4 && levels != 5) {
		return nil, ErrInvalidParameter
	}

	w := &x64Walker{
		tableReader: tableReader{mem: mem},
		levels:      levels,
		m:           &Map{Arch: X64},
	}

	// the root level imposes no restrictions
	root := uint64(X64_RW | X64_US)

	if err = w.walk(cr3&x64AddressMask, levels, 0, root); err != nil {
		return nil, err
	}

	return w.m, nil
}
