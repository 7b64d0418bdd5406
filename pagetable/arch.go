// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package pagetable

import (
	"fmt"
)

// signature32 mirrors the EDK II SIGNATURE_32() macro.
func signature32(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// Capture architecture signatures
var (
	AArch64Signature = signature32('A', 'A', '6', '4')
	X64Signature     = signature32('X', '6', '4', ' ')
)

// Arch represents the per-architecture decoding rules of captured page table
// entries.
type Arch interface {
	// Name returns the architecture name.
	Name() string
	// Signature returns the capture architecture signature.
	Signature() uint32
	// AttributesMask returns the bits which must be equal for contiguous
	// leaf entries to be coalesced in a single capture entry.
	AttributesMask() uint64

	// Readable reports whether the entry grants read access.
	Readable(pte uint64) bool
	// Writable reports whether the entry grants write access.
	Writable(pte uint64) bool
	// Executable reports whether the entry grants instruction fetches.
	Executable(pte uint64) bool
}

// X64 page table entry bits
const (
	X64_PRESENT = 1 << 0
	X64_RW      = 1 << 1
	X64_US      = 1 << 2
	X64_PS      = 1 << 7
	X64_PAT     = 1 << 7
	X64_NX      = 1 << 63

	// PAT bit position in PDPTE/PDE large page entries
	X64_PAT_LARGE = 1 << 12

	X64_ATTRIBUTES_MASK = (0xfff << 52) | 0xfff
)

// AArch64 translation table descriptor bits
const (
	AARCH64_VALID   = 1 << 0
	AARCH64_TABLE   = 1 << 1
	AARCH64_AP_EL0  = 1 << 6
	AARCH64_AP_RO   = 1 << 7
	AARCH64_AF      = 1 << 10
	AARCH64_PXN     = 1 << 53
	AARCH64_UXN     = 1 << 54
	AARCH64_XN_MASK = AARCH64_PXN | AARCH64_UXN

	AARCH64_ATTRIBUTES_MASK = (0xfff << 52) | (0x3ff << 2)

	// heritable table descriptor bits
	AARCH64_PXN_TABLE       = 1 << 59
	AARCH64_XN_TABLE        = 1 << 60
	AARCH64_AP_TABLE_NO_EL0 = 1 << 61
	AARCH64_AP_TABLE_RO     = 1 << 62

	AARCH64_HERITABLE_MASK = AARCH64_PXN_TABLE | AARCH64_XN_TABLE | AARCH64_AP_TABLE_NO_EL0 | AARCH64_AP_TABLE_RO
)

type x64 struct{}

func (x64) Name() string           { return "X64" }
func (x64) Signature() uint32      { return X64Signature }
func (x64) AttributesMask() uint64 { return X64_ATTRIBUTES_MASK }

func (x64) Readable(pte uint64) bool   { return pte&X64_PRESENT != 0 }
func (x64) Writable(pte uint64) bool   { return pte&X64_RW != 0 }
func (x64) Executable(pte uint64) bool { return pte&X64_NX == 0 }

type aarch64 struct{}

func (aarch64) Name() string           { return "AARCH64" }
func (aarch64) Signature() uint32      { return AArch64Signature }
func (aarch64) AttributesMask() uint64 { return AARCH64_ATTRIBUTES_MASK }

// An access flag fault is taken on any access to a descriptor with AF clear,
// therefore AF is used as the readable indicator.
func (aarch64) Readable(pte uint64) bool   { return pte&AARCH64_AF != 0 }
func (aarch64) Writable(pte uint64) bool   { return pte&AARCH64_AP_RO == 0 }
func (aarch64) Executable(pte uint64) bool { return pte&AARCH64_XN_MASK == 0 }

// Supported architectures
var (
	X64     Arch = x64{}
	AArch64 Arch = aarch64{}
)

// ArchBySignature returns the architecture matching a capture signature.
func ArchBySignature(sig uint32) (Arch, error) {
	for _, a := range []Arch{X64, AArch64} {
		if a.Signature() == sig {
			return a, nil
		}
	}

	return nil, fmt.Errorf("unsupported page map signature %#08x", sig)
}

// DecodeAttributes returns the access permissions granted by a page entry
// in "rwx" notation.
func DecodeAttributes(a Arch, pte uint64) string {
	perm := []byte("---")

	if a.Readable(pte) {
		perm[0] = 'r'
	}

	if a.Writable(pte) {
		perm[1] = 'w'
	}

	if a.Executable(pte) {
		perm[2] = 'x'
	}

	return string(perm)
}
