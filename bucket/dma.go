// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package bucket

import (
	"fmt"

	"github.com/usbarmory/tamago/dma"

	"github.com/usbarmory/go-fwmem/uefi"
)

// DMA is a page allocator reserving pages from a tamago DMA region.
type DMA struct {
	Region *dma.Region
}

// NewDMA returns a page allocator over the memory range at the argument
// address.
func NewDMA(start uint64, pages int) (d *DMA, err error) {
	r, err := dma.NewRegion(uint(start), pages*uefi.PageSize, false)

	if err != nil {
		return
	}

	return &DMA{Region: r}, nil
}

// AllocatePages implements the [PageAllocator] interface.
func (d *DMA) AllocatePages(memoryType int, pages uint64) (addr uint64, err error) {
	if pages == 0 || pages > uint64(^uint(0)>>1)/uefi.PageSize {
		return 0, fmt.Errorf("%w, %d pages", ErrInvalidParameter, pages)
	}

	// the region panics when exhausted
	defer func() {
		if recover() != nil {
			addr = 0
			err = fmt.Errorf("could not reserve %d pages for %s", pages, uefi.MemoryTypeName(memoryType))
		}
	}()

	ptr, _ := d.Region.Reserve(int(pages)*uefi.PageSize, uefi.PageSize)

	return uint64(ptr), nil
}
