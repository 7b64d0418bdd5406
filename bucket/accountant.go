// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bucket

import (
	"fmt"
	"log"
	"math/bits"

	"github.com/usbarmory/go-fwmem/memstat"
	"github.com/usbarmory/go-fwmem/uefi"
)

// State represents the accountant life cycle.
type State int

const (
	Uninitialized State = iota
	Initialized
	Serialized
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Serialized:
		return "serialized"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Accountant represents the runtime memory buckets of a boot phase.
//
// An Accountant is not safe for concurrent use.
type Accountant struct {
	// Config holds the default bucket sizes
	Config Config

	state    State
	disabled bool
	buckets  [NumberOfBuckets]Statistics
	tops     [NumberOfBuckets]uint64
}

// New returns an uninitialized accountant.
func New(cfg Config) *Accountant {
	return &Accountant{
		Config: cfg,
	}
}

// State returns the accountant life cycle state.
func (a *Accountant) State() State {
	return a.state
}

// Enabled reports whether buckets are initialized and hold any memory.
func (a *Accountant) Enabled() bool {
	return a.state != Uninitialized && !a.disabled
}

// Buckets returns a copy of the bucket statistics, in MemoryTypes order.
func (a *Accountant) Buckets() [NumberOfBuckets]Statistics {
	return a.buckets
}

// sizes returns the page count of each bucket, taken from the argument
// information when it describes any bucket type, otherwise from the
// configuration defaults.
func (a *Accountant) sizes(info memstat.Information) (pages [NumberOfBuckets]uint64) {
	found := false

	for i, t := range MemoryTypes {
		if n, ok := info.Pages(t); ok {
			pages[i] = n
			found = true
		}
	}

	if !found {
		return a.Config.Pages
	}

	return
}

// Initialize lays out the buckets upward from the page aligned start
// address and returns the total number of bucket pages. Buckets are
// disabled when every bucket is empty.
func (a *Accountant) Initialize(start uint64, info memstat.Information) (total uint64, err error) {
	if a.state != Uninitialized {
		return 0, fmt.Errorf("memory buckets already %s", a.state)
	}

	if start%uefi.PageSize != 0 {
		return 0, fmt.Errorf("%w, start %#x is not page aligned", ErrInvalidParameter, start)
	}

	pages := a.sizes(info)
	addr := start

	var buckets [NumberOfBuckets]Statistics
	var tops [NumberOfBuckets]uint64

	for i, n := range pages {
		hi, size := bits.Mul64(n, uefi.PageSize)
		end, carry := bits.Add64(addr, size, 0)

		if hi != 0 || carry != 0 {
			return 0, fmt.Errorf("%w, %s bucket exceeds address space", ErrInvalidParameter, uefi.MemoryTypeName(MemoryTypes[i]))
		}

		buckets[i] = Statistics{
			BaseAddress:      addr,
			MaximumAddress:   end,
			NumberOfPages:    n,
			InformationIndex: uint32(MemoryTypes[i]),
			Special:          true,
			Runtime:          MemoryTypes[i] == uefi.EfiRuntimeServicesCode || MemoryTypes[i] == uefi.EfiRuntimeServicesData,
		}

		tops[i] = addr
		addr = end
		total += n
	}

	a.buckets = buckets
	a.tops = tops
	a.disabled = total == 0
	a.state = Initialized

	if a.disabled {
		log.Printf("memory buckets disabled")
		return
	}

	log.Printf("memory buckets %#x-%#x (%d pages)", start, addr, total)

	return
}

// index returns the bucket index of a runtime memory type, along with any
// state error preventing its use.
func (a *Accountant) index(memoryType int) (i int, err error) {
	switch {
	case a.state == Uninitialized:
		return -1, ErrNotInitialized
	case a.state == Serialized:
		return -1, ErrSealed
	case a.disabled:
		return -1, ErrDisabled
	}

	i, ok := MemoryTypeToIndex(memoryType)

	if !ok {
		return -1, fmt.Errorf("%w, %s", ErrNotRuntimeType, uefi.MemoryTypeName(memoryType))
	}

	return
}

// Allocate reserves pages from the bucket of a runtime memory type and
// returns their base address. An allocation which does not fit fails with
// ErrExhausted and leaves the bucket unchanged.
func (a *Accountant) Allocate(pages uint64, memoryType int) (addr uint64, err error) {
	i, err := a.index(memoryType)

	if err != nil {
		return
	}

	if pages == 0 {
		return 0, fmt.Errorf("%w, zero pages", ErrInvalidParameter)
	}

	b := &a.buckets[i]
	addr = a.tops[i]

	hi, size := bits.Mul64(pages, uefi.PageSize)
	end, carry := bits.Add64(addr, size, 0)

	if hi != 0 || carry != 0 || end > b.MaximumAddress {
		return 0, fmt.Errorf("%w, %s (%d pages requested, %d available)", ErrExhausted,
			uefi.MemoryTypeName(memoryType), pages, (b.MaximumAddress-addr)>>uefi.PageShift)
	}

	a.tops[i] = end
	b.CurrentNumberOfPages += pages

	return
}

// UpdateCurrentBucketTop records a new high-water mark for the bucket of a
// runtime memory type, non-runtime types are ignored.
func (a *Accountant) UpdateCurrentBucketTop(top uint64, memoryType int) (err error) {
	if !IsRuntimeType(memoryType) {
		return
	}

	i, err := a.index(memoryType)

	if err != nil {
		return
	}

	b := &a.buckets[i]

	if top < b.BaseAddress || top > b.MaximumAddress || top%uefi.PageSize != 0 {
		err = fmt.Errorf("%w, %s top %#x outside %#x-%#x", ErrOutOfBucket,
			uefi.MemoryTypeName(memoryType), top, b.BaseAddress, b.MaximumAddress)

		if debug {
			panic(err)
		}

		return
	}

	a.tops[i] = top
	b.CurrentNumberOfPages = (top - b.BaseAddress) >> uefi.PageShift

	return
}

// bucket returns the statistics of the bucket for a runtime memory type, nil
// is returned for non-runtime types or when buckets are not in use.
func (a *Accountant) bucket(memoryType int) (b *Statistics, i int) {
	i, ok := MemoryTypeToIndex(memoryType)

	if !ok || !a.Enabled() {
		return nil, -1
	}

	return &a.buckets[i], i
}

// CurrentBucketTop returns the high-water mark of the bucket for a runtime
// memory type, 0 is returned for non-runtime types.
func (a *Accountant) CurrentBucketTop(memoryType int) uint64 {
	if b, i := a.bucket(memoryType); b != nil {
		return a.tops[i]
	}

	return 0
}

// CurrentBucketEnd returns the maximum address (exclusive) of the bucket for
// a runtime memory type, 0 is returned for non-runtime types.
func (a *Accountant) CurrentBucketEnd(memoryType int) uint64 {
	if b, _ := a.bucket(memoryType); b != nil {
		return b.MaximumAddress
	}

	return 0
}

// CurrentBucketBottom returns the base address of the bucket for a runtime
// memory type, 0 is returned for non-runtime types.
func (a *Accountant) CurrentBucketBottom(memoryType int) uint64 {
	if b, _ := a.bucket(memoryType); b != nil {
		return b.BaseAddress
	}

	return 0
}

// bounds returns the lowest base and highest maximum address across
// non-empty buckets.
func (a *Accountant) bounds() (bottom uint64, top uint64, ok bool) {
	if !a.Enabled() {
		return
	}

	for _, b := range a.buckets {
		if b.NumberOfPages == 0 {
			continue
		}

		if !ok || b.BaseAddress < bottom {
			bottom = b.BaseAddress
		}

		if !ok || b.MaximumAddress > top {
			top = b.MaximumAddress
		}

		ok = true
	}

	return
}

// BottomOfBuckets returns the lowest bucket address.
func (a *Accountant) BottomOfBuckets() uint64 {
	bottom, _, _ := a.bounds()
	return bottom
}

// TopOfBuckets returns the address following the highest bucket.
func (a *Accountant) TopOfBuckets() uint64 {
	_, top, _ := a.bounds()
	return top
}

// InRuntimeBoundary reports whether an address lies within the span of
// runtime memory buckets.
func (a *Accountant) InRuntimeBoundary(addr uint64) bool {
	bottom, top, ok := a.bounds()
	return ok && addr >= bottom && addr < top
}

// Record returns the hand-off record of the current bucket state.
func (a *Accountant) Record() *Record {
	return &Record{
		RuntimeBuckets:        a.buckets,
		CurrentTopInBucket:    a.tops,
		MemoryBucketsDisabled: a.disabled,
	}
}

// SetFromRecord adopts the bucket state of a hand-off record.
func (a *Accountant) SetFromRecord(r *Record) (err error) {
	if a.state == Serialized {
		return ErrSealed
	}

	if err = r.Validate(); err != nil {
		return
	}

	a.buckets = r.RuntimeBuckets
	a.tops = r.CurrentTopInBucket
	a.disabled = r.MemoryBucketsDisabled
	a.state = Initialized

	return
}
