// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pagetable implements parsing of flattened page/translation tables
// and the resolution of the effective EFI access attributes (EFI_MEMORY_XP,
// EFI_MEMORY_RO, EFI_MEMORY_RP) applied to arbitrary address ranges.
//
// A flat page table is a point-in-time, single level, capture of the
// (possibly multi-level) active translation tables, where contiguous leaf
// entries sharing the same attributes are coalesced in a single [Entry].
package pagetable

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/usbarmory/go-fwmem/uefi"
)

// Resolution errors
var (
	ErrInvalidParameter = fmt.Errorf("flat page table not built or invalid region, %w", uefi.ErrEfiInvalidParameter)
	ErrNotFound         = fmt.Errorf("region not found, %w", uefi.ErrEfiNotFound)
	ErrAborted          = fmt.Errorf("address overflow, %w", uefi.ErrEfiAborted)
)

// Capture validation errors
var (
	ErrUnsorted = errors.New("entries are not sorted by linear address")
	ErrOverlap  = errors.New("entries overlap")
)

// entrySize is the size of a binary encoded [Entry].
const entrySize = 24

// Entry represents one contiguous linear address region mapped with uniform
// protection, the PageEntry value is the architecture specific leaf entry.
type Entry struct {
	LinearAddress uint64
	Length        uint64
	PageEntry     uint64
}

// End returns the last address covered by the entry, the second return value
// is false when the entry is empty or its end overflows.
func (e *Entry) End() (end uint64, ok bool) {
	if e.Length == 0 {
		return 0, false
	}

	end, carry := bits.Add64(e.LinearAddress, e.Length-1, 0)

	return end, carry == 0
}

// Map represents a flat page/translation table capture.
type Map struct {
	// Arch represents the architecture of the captured entries
	Arch Arch

	// Entries represents the captured entries, sorted by ascending
	// linear address.
	Entries []Entry
}

// Validate checks that the map entries are sorted by ascending linear address
// and do not overlap.
func (m *Map) Validate() (err error) {
	var prevEnd uint64

	if m == nil || m.Arch == nil || len(m.Entries) == 0 {
		return ErrInvalidParameter
	}

	for i := range m.Entries {
		e := &m.Entries[i]
		end, ok := e.End()

		if !ok {
			return fmt.Errorf("entry %d, %w", i, ErrAborted)
		}

		if i > 0 {
			switch {
			case e.LinearAddress < m.Entries[i-1].LinearAddress:
				return fmt.Errorf("entry %d, %w", i, ErrUnsorted)
			case e.LinearAddress <= prevEnd:
				return fmt.Errorf("entry %d, %w", i, ErrOverlap)
			}
		}

		prevEnd = end
	}

	return
}

// MarshalBinary implements the [encoding.BinaryMarshaler] interface.
//
// The capture is encoded in little endian as the architecture signature
// (uint32), a reserved field (uint32), the entry count (uint64) followed by
// the entries.
func (m *Map) MarshalBinary() (data []byte, err error) {
	if m.Arch == nil {
		return nil, ErrInvalidParameter
	}

	buf := new(bytes.Buffer)

	hdr := struct {
		Signature uint32
		_         uint32
		Count     uint64
	}{
		Signature: m.Arch.Signature(),
		Count:     uint64(len(m.Entries)),
	}

	if err = binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return
	}

	err = binary.Write(buf, binary.LittleEndian, m.Entries)

	return buf.Bytes(), err
}

// UnmarshalBinary implements the [encoding.BinaryUnmarshaler] interface.
func (m *Map) UnmarshalBinary(data []byte) (err error) {
	if len(data) < 16 {
		return errors.New("invalid capture, short header")
	}

	sig := binary.LittleEndian.Uint32(data[0:4])
	count := binary.LittleEndian.Uint64(data[8:16])

	if m.Arch, err = ArchBySignature(sig); err != nil {
		return
	}

	if count > uint64(len(data)-16)/entrySize {
		return fmt.Errorf("invalid capture, %d entries do not fit %d bytes", count, len(data))
	}

	m.Entries = make([]Entry, count)
	_, err = binary.Decode(data[16:], binary.LittleEndian, m.Entries)

	return
}
