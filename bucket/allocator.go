// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bucket

import (
	"fmt"
	"math/bits"

	"github.com/usbarmory/go-fwmem/memstat"
	"github.com/usbarmory/go-fwmem/uefi"
)

// PageAllocator represents a physical page allocation primitive.
type PageAllocator interface {
	AllocatePages(memoryType int, pages uint64) (addr uint64, err error)
}

// Allocator serves runtime memory types from buckets, all other types from
// the underlying page allocator, and tracks every allocation in the memory
// type statistics.
type Allocator struct {
	// Buckets holds the runtime memory buckets
	Buckets *Accountant
	// Pages is used for non-runtime types or when buckets are disabled
	Pages PageAllocator
	// Statistics, when not nil, accounts allocated pages
	Statistics *memstat.Table
}

// AllocatePages implements the [PageAllocator] interface.
func (al *Allocator) AllocatePages(memoryType int, pages uint64) (addr uint64, err error) {
	switch {
	case al.Buckets != nil && al.Buckets.Enabled() && IsRuntimeType(memoryType):
		addr, err = al.Buckets.Allocate(pages, memoryType)
	case al.Pages != nil:
		addr, err = al.Pages.AllocatePages(memoryType, pages)
	default:
		err = fmt.Errorf("no allocator for %s", uefi.MemoryTypeName(memoryType))
	}

	if err != nil {
		return
	}

	if al.Statistics != nil {
		err = al.Statistics.Track(memoryType, pages)
	}

	return
}

// Region is a page allocator handing out pages sequentially from a fixed
// physical address range, it never reuses memory.
type Region struct {
	Start uint64
	End   uint64

	next uint64
}

// AllocatePages implements the [PageAllocator] interface.
func (r *Region) AllocatePages(_ int, pages uint64) (addr uint64, err error) {
	if pages == 0 {
		return 0, fmt.Errorf("%w, zero pages", ErrInvalidParameter)
	}

	if r.next == 0 {
		r.next = r.Start
	}

	hi, size := bits.Mul64(pages, uefi.PageSize)
	end, carry := bits.Add64(r.next, size, 0)

	if hi != 0 || carry != 0 || end > r.End {
		return 0, fmt.Errorf("out of memory (%d pages requested)", pages)
	}

	addr = r.next
	r.next = end

	return
}
