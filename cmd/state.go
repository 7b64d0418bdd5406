// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"log"
	"sync"

	"github.com/usbarmory/go-fwmem/bucket"
	"github.com/usbarmory/go-fwmem/hob"
	"github.com/usbarmory/go-fwmem/memstat"
	"github.com/usbarmory/go-fwmem/pagetable"
	"github.com/usbarmory/go-fwmem/shell"
)

// state represents the console working set, shared across sessions.
type state struct {
	sync.Mutex

	// loaded page table capture
	capture *pagetable.Map

	// runtime memory buckets and page allocation
	buckets   *bucket.Accountant
	allocator *bucket.Allocator
	stats     *memstat.Table

	// hand-off block list
	handoff *hob.List
}

var console = newState()

func newState() *state {
	s := &state{}
	s.reset()

	return s
}

// reset discards bucket and hand-off state.
func (s *state) reset() {
	s.buckets = bucket.New(Config)
	s.stats = memstat.NewTable(nil)
	s.handoff = &hob.List{}
	s.allocator = &bucket.Allocator{
		Buckets:    s.buckets,
		Pages:      newPages(PagesStart, PagesEnd),
		Statistics: s.stats,
	}
}

func newPages(start uint64, end uint64) bucket.PageAllocator {
	if pageAllocator != nil {
		pages, err := pageAllocator(start, end)

		if err == nil {
			return pages
		}

		log.Printf("could not allocate memory range %#08x - %#08x, %v", start, end, err)
	}

	return &bucket.Region{Start: start, End: end}
}

// locked serializes command handlers accessing the console state.
func locked(fn func(s *state, arg []string) (string, error)) shell.CmdFn {
	return func(_ *shell.Interface, arg []string) (string, error) {
		console.Lock()
		defer console.Unlock()

		return fn(console, arg)
	}
}
