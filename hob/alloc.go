// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hob

import (
	"encoding/binary"
	"fmt"

	"github.com/usbarmory/go-fwmem/uefi"
)

// memoryAllocationSize is the EFI_HOB_MEMORY_ALLOCATION_HEADER size.
const memoryAllocationSize = 40

// MemoryAllocation represents an EFI_HOB_MEMORY_ALLOCATION_HEADER, describing
// a memory range allocated before the HOB consumer phase.
type MemoryAllocation struct {
	Name              uefi.GUID
	MemoryBaseAddress uint64
	MemoryLength      uint64
	MemoryType        uint32
	_                 [4]byte
}

// BuildMemoryAllocation appends an EFI_HOB_TYPE_MEMORY_ALLOCATION HOB.
func (l *List) BuildMemoryAllocation(name uefi.GUID, base uint64, length uint64, memoryType uint32) (err error) {
	if base%uefi.PageSize != 0 || length%uefi.PageSize != 0 {
		return fmt.Errorf("memory allocation %#x-%#x is not page aligned", base, base+length)
	}

	a := &MemoryAllocation{
		Name:              name,
		MemoryBaseAddress: base,
		MemoryLength:      length,
		MemoryType:        memoryType,
	}

	buf, err := a.MarshalBinary()

	if err != nil {
		return
	}

	_, err = l.Build(EFI_HOB_TYPE_MEMORY_ALLOCATION, buf)

	return
}

// MarshalBinary implements the [encoding.BinaryMarshaler] interface.
func (a *MemoryAllocation) MarshalBinary() ([]byte, error) {
	buf := make([]byte, memoryAllocationSize)
	_, err := binary.Encode(buf, binary.LittleEndian, a)
	return buf, err
}

// UnmarshalBinary implements the [encoding.BinaryUnmarshaler] interface.
func (a *MemoryAllocation) UnmarshalBinary(data []byte) (err error) {
	if len(data) < memoryAllocationSize {
		return fmt.Errorf("invalid memory allocation size %d", len(data))
	}

	_, err = binary.Decode(data, binary.LittleEndian, a)

	return
}

// MemoryAllocations returns all memory allocation HOBs in the list.
func (l *List) MemoryAllocations() (allocs []*MemoryAllocation, err error) {
	for i, h := range l.Hobs {
		if h.Type != EFI_HOB_TYPE_MEMORY_ALLOCATION {
			continue
		}

		a := &MemoryAllocation{}

		if err = a.UnmarshalBinary(h.Data); err != nil {
			return nil, fmt.Errorf("HOB %d, %v", i, err)
		}

		allocs = append(allocs, a)
	}

	return
}
