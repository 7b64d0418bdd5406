// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bucket implements runtime memory buckets, contiguous physical
// address ranges reserved for the memory types which survive
// ExitBootServices(), so that their placement stays stable across boots
// for the benefit of S4 resume and OS runtime mappings.
package bucket

import (
	"errors"

	"github.com/usbarmory/go-fwmem/memstat"
	"github.com/usbarmory/go-fwmem/uefi"
)

// NumberOfBuckets is the number of runtime memory buckets.
const NumberOfBuckets = 4

// MemoryTypes lists the memory types held in buckets, in layout order.
var MemoryTypes = [NumberOfBuckets]int{
	uefi.EfiRuntimeServicesCode,
	uefi.EfiRuntimeServicesData,
	uefi.EfiACPIReclaimMemory,
	uefi.EfiACPIMemoryNVS,
}

// MemoryBucketInformationGUID names the hand-off record GUID extension HOB.
var MemoryBucketInformationGUID = uefi.MustParseGUID("36138737-b6db-4ed6-9b4b-f96128e7193c")

var (
	ErrNotInitialized   = errors.New("memory buckets not initialized")
	ErrSealed           = errors.New("memory buckets already serialized")
	ErrDisabled         = errors.New("memory buckets disabled")
	ErrNotRuntimeType   = errors.New("not a runtime memory type")
	ErrExhausted        = errors.New("memory bucket exhausted")
	ErrOutOfBucket      = errors.New("address outside of memory bucket")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidRecord    = errors.New("invalid memory bucket record")
)

// Statistics represents the accounting of a single bucket.
type Statistics = memstat.Statistics

// Config represents the bucket sizes used when no memory type information
// is available from a previous boot.
type Config struct {
	// Pages holds the number of pages of each bucket, in MemoryTypes order.
	Pages [NumberOfBuckets]uint64
}

// DefaultConfig is the configuration used by the console.
var DefaultConfig = Config{
	Pages: [NumberOfBuckets]uint64{
		0x100, // EfiRuntimeServicesCode
		0x200, // EfiRuntimeServicesData
		0x80,  // EfiACPIReclaimMemory
		0x80,  // EfiACPIMemoryNVS
	},
}

// MemoryTypeToIndex returns the bucket index of a runtime memory type.
func MemoryTypeToIndex(memoryType int) (index int, ok bool) {
	for i, t := range MemoryTypes {
		if t == memoryType {
			return i, true
		}
	}

	return -1, false
}

// IsRuntimeType reports whether a memory type is held in buckets.
func IsRuntimeType(memoryType int) bool {
	_, ok := MemoryTypeToIndex(memoryType)
	return ok
}
