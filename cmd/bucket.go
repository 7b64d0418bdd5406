// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"fmt"
	"log"
	"regexp"
	"strconv"

	"github.com/usbarmory/go-fwmem/bucket"
	"github.com/usbarmory/go-fwmem/memstat"
	"github.com/usbarmory/go-fwmem/shell"
	"github.com/usbarmory/go-fwmem/uefi"
)

func init() {
	shell.Add(shell.Cmd{
		Name: "buckets",
		Help: "show runtime memory buckets",
		Fn:   locked(bucketsCmd),
	})

	shell.Add(shell.Cmd{
		Name:    "binit",
		Args:    1,
		Pattern: regexp.MustCompile(`^binit ([[:xdigit:]]+)$`),
		Syntax:  "<hex start>",
		Help:    "initialize runtime memory buckets",
		Fn:      locked(binitCmd),
	})

	shell.Add(shell.Cmd{
		Name:    "balloc",
		Args:    2,
		Pattern: regexp.MustCompile(`^balloc (\S+) (\d+)$`),
		Syntax:  "<memory type> <pages>",
		Help:    "allocate pages",
		Fn:      locked(ballocCmd),
	})

	shell.Add(shell.Cmd{
		Name:    "btop",
		Args:    2,
		Pattern: regexp.MustCompile(`^btop (\S+) ([[:xdigit:]]+)$`),
		Syntax:  "<memory type> <hex top>",
		Help:    "set bucket high-water mark",
		Fn:      locked(btopCmd),
	})

	shell.Add(shell.Cmd{
		Name:    "bcheck",
		Args:    1,
		Pattern: regexp.MustCompile(`^bcheck ([[:xdigit:]]+)$`),
		Syntax:  "<hex address>",
		Help:    "check address against runtime memory buckets",
		Fn:      locked(bcheckCmd),
	})

	shell.Add(shell.Cmd{
		Name: "breset",
		Help: "discard buckets and hand-off blocks",
		Fn:   locked(bresetCmd),
	})

	shell.Add(shell.Cmd{
		Name: "e820",
		Help: "show bucket reservations as E820 map",
		Fn:   locked(e820Cmd),
	})
}

func bucketsCmd(s *state, _ []string) (res string, err error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "State: %s", s.buckets.State())

	if s.buckets.State() != bucket.Uninitialized && !s.buckets.Enabled() {
		fmt.Fprintf(&buf, " (disabled)")
	}

	fmt.Fprintf(&buf, "\nType                   Base             Top              Maximum          Pages\n")

	for i, b := range s.buckets.Buckets() {
		t := bucket.MemoryTypes[i]

		fmt.Fprintf(&buf, "%-22s %016x %016x %016x %d/%d\n",
			uefi.MemoryTypeName(t), b.BaseAddress, s.buckets.CurrentBucketTop(t), b.MaximumAddress,
			b.CurrentNumberOfPages, b.NumberOfPages)
	}

	return buf.String(), nil
}

// information returns the memory type information carried by the hand-off
// block list, if any.
func (s *state) information() (info memstat.Information) {
	h := s.handoff.FirstGUID(memstat.MemoryTypeInformationGUID)

	if h == nil {
		return
	}

	if err := info.UnmarshalBinary(h.GUIDData()); err != nil {
		log.Printf("warning: discarding memory type information, %v", err)
		return nil
	}

	return
}

func binitCmd(s *state, arg []string) (res string, err error) {
	start, err := strconv.ParseUint(arg[0], 16, 64)

	if err != nil {
		return "", fmt.Errorf("invalid address, %v", err)
	}

	info := s.information()

	total, err := s.buckets.Initialize(start, info)

	if err != nil {
		return
	}

	s.stats = memstat.NewTable(info)
	s.allocator.Statistics = s.stats

	return fmt.Sprintf("%d pages reserved", total), nil
}

func ballocCmd(s *state, arg []string) (res string, err error) {
	t, err := uefi.ParseMemoryType(arg[0])

	if err != nil {
		return
	}

	pages, err := strconv.ParseUint(arg[1], 10, 64)

	if err != nil {
		return "", fmt.Errorf("invalid pages, %v", err)
	}

	addr, err := s.allocator.AllocatePages(t, pages)

	if err != nil {
		return
	}

	return fmt.Sprintf("%s %#016x-%#016x", uefi.MemoryTypeName(t), addr, addr+pages*uefi.PageSize), nil
}

func btopCmd(s *state, arg []string) (res string, err error) {
	t, err := uefi.ParseMemoryType(arg[0])

	if err != nil {
		return
	}

	top, err := strconv.ParseUint(arg[1], 16, 64)

	if err != nil {
		return "", fmt.Errorf("invalid address, %v", err)
	}

	if !bucket.IsRuntimeType(t) {
		return fmt.Sprintf("%s is not held in buckets", uefi.MemoryTypeName(t)), nil
	}

	return "", s.buckets.UpdateCurrentBucketTop(top, t)
}

func bcheckCmd(s *state, arg []string) (res string, err error) {
	addr, err := strconv.ParseUint(arg[0], 16, 64)

	if err != nil {
		return "", fmt.Errorf("invalid address, %v", err)
	}

	if s.buckets.InRuntimeBoundary(addr) {
		return fmt.Sprintf("%#016x within %#016x-%#016x", addr, s.buckets.BottomOfBuckets(), s.buckets.TopOfBuckets()), nil
	}

	return fmt.Sprintf("%#016x outside runtime memory buckets", addr), nil
}

func bresetCmd(s *state, _ []string) (res string, err error) {
	s.reset()
	return
}

func e820Cmd(s *state, _ []string) (res string, err error) {
	var buf bytes.Buffer

	m := &uefi.MemoryMap{
		Descriptors: s.buckets.Descriptors(),
	}

	e, err := m.E820()

	if err != nil {
		return
	}

	fmt.Fprintf(&buf, "Start            End              Type\n")

	for _, entry := range e {
		fmt.Fprintf(&buf, "%016x %016x %v\n", entry.Addr, entry.Addr+entry.Size-1, entry.MemType)
	}

	return buf.String(), nil
}
