// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pagetable

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	tableSize    = 4096
	tableShift   = 9
	tableEntries = 1 << tableShift
)

// tableReader reads translation tables from a physical memory image.
type tableReader struct {
	mem io.ReaderAt
	buf [tableSize]byte
}

// read fills the argument table with the little endian descriptors found at
// the argument physical address.
func (r *tableReader) read(addr uint64, table []uint64) (err error) {
	buf := r.buf[:len(table)*8]

	if _, err = r.mem.ReadAt(buf, int64(addr)); err != nil {
		return fmt.Errorf("could not read table at %#x, %w", addr, err)
	}

	for i := range table {
		table[i] = binary.LittleEndian.Uint64(buf[i*8:])
	}

	return
}

// add appends a leaf to the map, coalescing it with the previous entry when
// both are linearly and physically contiguous with identical attributes.
func (m *Map) add(linear uint64, length uint64, pte uint64, addressMask uint64) {
	if n := len(m.Entries); n > 0 {
		prev := &m.Entries[n-1]
		mask := m.Arch.AttributesMask()

		if prev.LinearAddress+prev.Length == linear &&
			prev.PageEntry&mask == pte&mask &&
			prev.PageEntry&addressMask+prev.Length == pte&addressMask {
			prev.Length += length
			return
		}
	}

	m.Entries = append(m.Entries, Entry{
		LinearAddress: linear,
		Length:        length,
		PageEntry:     pte,
	})
}
