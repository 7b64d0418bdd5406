// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bucket

import (
	"fmt"
	"log"

	"github.com/usbarmory/go-fwmem/hob"
	"github.com/usbarmory/go-fwmem/uefi"
)

// Sync adopts the bucket record found in a HOB list, as produced by a
// previous boot phase, the record takes precedence over any local state.
// A list without a bucket record leaves the accountant unchanged.
func (a *Accountant) Sync(list *hob.List) (err error) {
	if list == nil {
		return ErrInvalidParameter
	}

	h := list.FirstGUID(MemoryBucketInformationGUID)

	if h == nil {
		log.Printf("memory bucket record not found")
		return
	}

	r := &Record{}

	if err = r.UnmarshalBinary(h.GUIDData()); err != nil {
		return
	}

	if err = a.SetFromRecord(r); err != nil {
		return fmt.Errorf("could not sync memory buckets, %w", err)
	}

	log.Printf("memory buckets synced %#x-%#x", a.BottomOfBuckets(), a.TopOfBuckets())

	return
}

// Serialize stores the bucket record in a HOB list, replacing any earlier
// one, and describes each non-empty bucket with a memory allocation HOB.
// The accountant rejects further changes once serialized.
func (a *Accountant) Serialize(list *hob.List) (err error) {
	switch {
	case list == nil:
		return ErrInvalidParameter
	case a.state == Uninitialized:
		return ErrNotInitialized
	case a.state == Serialized:
		return ErrSealed
	}

	buf, err := a.Record().MarshalBinary()

	if err != nil {
		return
	}

	if err = list.SetGUIDData(MemoryBucketInformationGUID, buf); err != nil {
		return
	}

	for _, d := range a.Descriptors() {
		if err = list.BuildMemoryAllocation(MemoryBucketInformationGUID, d.PhysicalStart, d.NumberOfPages*uefi.PageSize, d.Type); err != nil {
			return
		}
	}

	a.state = Serialized

	return
}

// Descriptors returns memory descriptors covering the reserved span of each
// non-empty bucket, adjacent buckets of equal type are merged.
func (a *Accountant) Descriptors() []*uefi.MemoryDescriptor {
	m := &uefi.MemoryMap{}

	if !a.Enabled() {
		return nil
	}

	for i, b := range a.buckets {
		if b.NumberOfPages == 0 || b.MaximumAddress <= b.BaseAddress {
			continue
		}

		var attr uint64

		if b.Runtime {
			attr = uefi.EFI_MEMORY_RUNTIME
		}

		m.Add(uint32(MemoryTypes[i]), b.BaseAddress, (b.MaximumAddress-b.BaseAddress)>>uefi.PageShift, attr)
	}

	m.Merge()

	return m.Descriptors
}
