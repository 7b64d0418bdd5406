// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"sort"

	"github.com/u-root/u-root/pkg/boot/bzimage"
)

// Advanced Configuration and Power Interface Specification (ACPI)
// Version 6.0 - Table 15-312 Address Range Types12
const AddressRangePersistentMemory = 7

// MemoryDescriptor represents an EFI Memory Descriptor
type MemoryDescriptor struct {
	Type          uint32
	_             uint32
	PhysicalStart uint64
	VirtualStart  uint64
	NumberOfPages uint64
	Attribute     uint64
	_             uint64
}

// PhysicalEnd returns the descriptor physical end address.
func (d *MemoryDescriptor) PhysicalEnd() uint64 {
	return d.PhysicalStart + d.NumberOfPages*PageSize
}

// Size returns the descriptor size.
func (d *MemoryDescriptor) Size() int {
	return int(d.NumberOfPages * PageSize)
}

// MarshalBinary implements the [encoding.BinaryMarshaler] interface.
func (d *MemoryDescriptor) MarshalBinary() ([]byte, error) {
	return marshalBinary(d)
}

// UnmarshalBinary implements the [encoding.BinaryUnmarshaler] interface.
func (d *MemoryDescriptor) UnmarshalBinary(data []byte) error {
	return unmarshalBinary(data, d)
}

// E820 converts an EFI Memory Map entry to an x86 E820 one suitable for use
// after exiting EFI Boot Services.
func (d *MemoryDescriptor) E820() (bzimage.E820Entry, error) {
	e := bzimage.E820Entry{
		Addr: d.PhysicalStart,
		Size: d.NumberOfPages * PageSize,
	}

	// Unified Extensible Firmware Interface (UEFI) Specification
	// Version 2.10 - Table 7.10: Memory Type Usage after ExitBootServices()
	switch d.Type {
	case EfiLoaderCode, EfiLoaderData, EfiBootServicesCode, EfiBootServicesData, EfiConventionalMemory:
		e.MemType = bzimage.RAM
	case EfiPersistentMemory:
		e.MemType = AddressRangePersistentMemory
	case EfiACPIReclaimMemory:
		e.MemType = bzimage.ACPI
	case EfiACPIMemoryNVS:
		e.MemType = bzimage.NVS
	default:
		e.MemType = bzimage.Reserved
	}

	return e, nil
}

// MemoryMap represents an EFI Memory Map
type MemoryMap struct {
	Descriptors []*MemoryDescriptor
}

// Add appends a descriptor to the memory map.
func (m *MemoryMap) Add(memoryType uint32, start uint64, pages uint64, attribute uint64) {
	m.Descriptors = append(m.Descriptors, &MemoryDescriptor{
		Type:          memoryType,
		PhysicalStart: start,
		VirtualStart:  start,
		NumberOfPages: pages,
		Attribute:     attribute,
	})
}

// Merge sorts the memory map descriptors by physical address, drops empty
// ones and coalesces adjacent descriptors of identical type and attributes.
func (m *MemoryMap) Merge() {
	var merged []*MemoryDescriptor

	sort.SliceStable(m.Descriptors, func(i, j int) bool {
		return m.Descriptors[i].PhysicalStart < m.Descriptors[j].PhysicalStart
	})

	for _, d := range m.Descriptors {
		if d.NumberOfPages == 0 {
			continue
		}

		if n := len(merged); n > 0 {
			prev := merged[n-1]

			if prev.Type == d.Type && prev.Attribute == d.Attribute && prev.PhysicalEnd() == d.PhysicalStart {
				prev.NumberOfPages += d.NumberOfPages
				continue
			}
		}

		c := *d
		merged = append(merged, &c)
	}

	m.Descriptors = merged
}

// E820 converts the memory map to its x86 E820 representation.
func (m *MemoryMap) E820() (entries []bzimage.E820Entry, err error) {
	for _, desc := range m.Descriptors {
		e, err := desc.E820()

		if err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return
}
