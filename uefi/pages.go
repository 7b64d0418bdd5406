// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"fmt"
	"strconv"
)

// PageSize represents the EFI page size in bytes
const PageSize = 4096 // 4 KiB

// PageShift represents the EFI page size as a bit shift
const PageShift = 12

// EFI_ALLOCATE_TYPE
const (
	AllocateAnyPages = iota
	AllocateMaxAddress
	AllocateAddress
	MaxAllocateType
)

// EFI_MEMORY_TYPE
const (
	EfiReservedMemoryType = iota
	EfiLoaderCode
	EfiLoaderData
	EfiBootServicesCode
	EfiBootServicesData
	EfiRuntimeServicesCode
	EfiRuntimeServicesData
	EfiConventionalMemory
	EfiUnusableMemory
	EfiACPIReclaimMemory
	EfiACPIMemoryNVS
	EfiMemoryMappedIO
	EfiMemoryMappedIOPortSpace
	EfiPalCode
	EfiPersistentMemory
	EfiUnacceptedMemoryType
	EfiMaxMemoryType
)

var memoryTypeNames = [EfiMaxMemoryType]string{
	"EfiReservedMemoryType",
	"EfiLoaderCode",
	"EfiLoaderData",
	"EfiBootServicesCode",
	"EfiBootServicesData",
	"EfiRuntimeServicesCode",
	"EfiRuntimeServicesData",
	"EfiConventionalMemory",
	"EfiUnusableMemory",
	"EfiACPIReclaimMemory",
	"EfiACPIMemoryNVS",
	"EfiMemoryMappedIO",
	"EfiMemoryMappedIOPortSpace",
	"EfiPalCode",
	"EfiPersistentMemory",
	"EfiUnacceptedMemoryType",
}

// MemoryTypeName returns the EFI_MEMORY_TYPE name of the argument type.
func MemoryTypeName(memoryType int) string {
	if memoryType < 0 || memoryType >= EfiMaxMemoryType {
		return fmt.Sprintf("EfiMemoryType(%#x)", memoryType)
	}

	return memoryTypeNames[memoryType]
}

// ParseMemoryType returns the EFI_MEMORY_TYPE value for either its full name
// (e.g. EfiRuntimeServicesCode), its name without the Efi prefix or its
// numeric value.
func ParseMemoryType(s string) (memoryType int, err error) {
	for i, name := range memoryTypeNames {
		if s == name || "Efi"+s == name {
			return i, nil
		}
	}

	if memoryType, err = strconv.Atoi(s); err != nil || memoryType < 0 || memoryType >= EfiMaxMemoryType {
		return 0, fmt.Errorf("invalid memory type %q", s)
	}

	return
}

// Pages returns the number of EFI pages required to hold size bytes.
func Pages(size uint64) uint64 {
	return (size + PageSize - 1) >> PageShift
}
