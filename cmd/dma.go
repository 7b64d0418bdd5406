// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package cmd

import (
	"fmt"
	"log"

	"github.com/usbarmory/go-fwmem/bucket"
	"github.com/usbarmory/go-fwmem/uefi"
)

func init() {
	pageAllocator = func(start uint64, end uint64) (bucket.PageAllocator, error) {
		if end <= start || (end-start)%uefi.PageSize != 0 {
			return nil, fmt.Errorf("invalid memory range %#08x - %#08x", start, end)
		}

		d, err := bucket.NewDMA(start, int((end-start)/uefi.PageSize))

		if err != nil {
			return nil, err
		}

		log.Printf("allocating memory range %#08x - %#08x", start, end)

		return d, nil
	}
}
