// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package memstat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/usbarmory/go-fwmem/uefi"
)

// minimumPages is the smallest non-zero bin size.
const minimumPages = 4

// TypeInformation represents an EFI_MEMORY_TYPE_INFORMATION entry.
type TypeInformation struct {
	Type          uint32
	NumberOfPages uint32
}

// Information represents the EFI_MEMORY_TYPE_INFORMATION array, holding the
// number of pages to reserve for each memory type on the next boot.
type Information []TypeInformation

// Pages returns the number of pages recorded for a memory type.
func (info Information) Pages(memoryType int) (pages uint64, ok bool) {
	for _, e := range info {
		if e.Type >= uefi.EfiMaxMemoryType {
			break
		}

		if int(e.Type) == memoryType {
			return uint64(e.NumberOfPages), true
		}
	}

	return 0, false
}

// MarshalBinary implements the [encoding.BinaryMarshaler] interface, the
// array is terminated with an EfiMaxMemoryType entry.
func (info Information) MarshalBinary() (data []byte, err error) {
	buf := new(bytes.Buffer)

	if err = binary.Write(buf, binary.LittleEndian, []TypeInformation(info)); err != nil {
		return
	}

	err = binary.Write(buf, binary.LittleEndian, TypeInformation{Type: uefi.EfiMaxMemoryType})

	return buf.Bytes(), err
}

// UnmarshalBinary implements the [encoding.BinaryUnmarshaler] interface.
func (info *Information) UnmarshalBinary(data []byte) (err error) {
	var e TypeInformation
	var res Information

	for off := 0; off+8 <= len(data); off += 8 {
		if _, err = binary.Decode(data[off:], binary.LittleEndian, &e); err != nil {
			return
		}

		if e.Type == uefi.EfiMaxMemoryType {
			*info = res
			return
		}

		if e.Type > uefi.EfiMaxMemoryType {
			return fmt.Errorf("invalid memory type %d at offset %d", e.Type, off)
		}

		res = append(res, e)
	}

	return errors.New("memory type information is not terminated")
}

// grow returns the next bin size for a memory type given the pages used
// during the current boot.
func grow(previous uint64, current uint64) (next uint64) {
	next = previous

	if current > previous {
		next = current + current>>2
	}

	if next > 0 && next < minimumPages {
		next = minimumPages
	}

	return
}

// Next computes the memory type information for the next boot from the
// previous one and the pages in use for each memory type at the end of the
// current boot. Bins only grow, to 125% of the current usage, to keep the
// placement of runtime memory stable across boots.
//
// The changed return value is true when any bin size differs from the
// previous information.
func Next(previous Information, t *Table) (next Information, changed bool) {
	for _, e := range previous {
		if e.Type >= uefi.EfiMaxMemoryType {
			break
		}

		n := grow(uint64(e.NumberOfPages), t.Types[e.Type].CurrentNumberOfPages)

		if n > 0xffffffff {
			n = 0xffffffff
		}

		if uint32(n) != e.NumberOfPages {
			changed = true
		}

		next = append(next, TypeInformation{
			Type:          e.Type,
			NumberOfPages: uint32(n),
		})
	}

	return
}
