// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"

	"github.com/usbarmory/go-fwmem/pagetable"
	"github.com/usbarmory/go-fwmem/shell"
	"github.com/usbarmory/go-fwmem/uefi"
)

var errNoCapture = errors.New("no page table capture, use `ptload` or `ptwalk`")

func init() {
	shell.Add(shell.Cmd{
		Name:    "ptload",
		Args:    1,
		Pattern: regexp.MustCompile(`^ptload (\S+)$`),
		Syntax:  "<path>",
		Help:    "load page table capture",
		Fn:      locked(ptloadCmd),
	})

	shell.Add(shell.Cmd{
		Name:    "ptsave",
		Args:    1,
		Pattern: regexp.MustCompile(`^ptsave (\S+)$`),
		Syntax:  "<path>",
		Help:    "save page table capture",
		Fn:      locked(ptsaveCmd),
	})

	shell.Add(shell.Cmd{
		Name:    "ptwalk",
		Args:    3,
		Pattern: regexp.MustCompile(`^ptwalk (\S+) ([[:xdigit:]]+)(?: (4|5))?$`),
		Syntax:  "<path> <hex cr3> (4|5)?",
		Help:    "capture x64 page table from memory image",
		Fn:      locked(ptwalkCmd),
	})

	shell.Add(shell.Cmd{
		Name:    "ptwalk64",
		Args:    4,
		Pattern: regexp.MustCompile(`^ptwalk64 (\S+) ([[:xdigit:]]+) (\d+)( hpd)?$`),
		Syntax:  "<path> <hex ttbr0> <t0sz> (hpd)?",
		Help:    "capture AArch64 translation table from memory image",
		Fn:      locked(ptwalk64Cmd),
	})

	shell.Add(shell.Cmd{
		Name: "ptdump",
		Help: "show page table capture",
		Fn:   locked(ptdumpCmd),
	})

	shell.Add(shell.Cmd{
		Name:    "attr",
		Args:    2,
		Pattern: regexp.MustCompile(`^attr ([[:xdigit:]]+) ([[:xdigit:]]+)$`),
		Syntax:  "<hex address> <hex length>",
		Help:    "resolve region access attributes",
		Fn:      locked(attrCmd),
	})
}

func ptloadCmd(s *state, arg []string) (res string, err error) {
	buf, err := os.ReadFile(arg[0])

	if err != nil {
		return
	}

	m := &pagetable.Map{}

	if err = m.UnmarshalBinary(buf); err != nil {
		return
	}

	if err = m.Validate(); err != nil {
		log.Printf("warning: %v", err)
	}

	s.capture = m

	return fmt.Sprintf("loaded %s capture, %d entries", m.Arch.Name(), len(m.Entries)), nil
}

func ptsaveCmd(s *state, arg []string) (res string, err error) {
	if s.capture == nil {
		return "", errNoCapture
	}

	buf, err := s.capture.MarshalBinary()

	if err != nil {
		return
	}

	return "", os.WriteFile(arg[0], buf, 0600)
}

func ptwalkCmd(s *state, arg []string) (res string, err error) {
	levels := 4

	cr3, err := strconv.ParseUint(arg[1], 16, 64)

	if err != nil {
		return "", fmt.Errorf("invalid address, %v", err)
	}

	if len(arg[2]) > 0 {
		levels, _ = strconv.Atoi(arg[2])
	}

	f, err := os.Open(arg[0])

	if err != nil {
		return
	}
	defer f.Close()

	m, err := pagetable.ParseX64(f, cr3, levels)

	if err != nil {
		return
	}

	s.capture = m

	return fmt.Sprintf("captured %d entries", len(m.Entries)), nil
}

func ptwalk64Cmd(s *state, arg []string) (res string, err error) {
	ttbr0, err := strconv.ParseUint(arg[1], 16, 64)

	if err != nil {
		return "", fmt.Errorf("invalid address, %v", err)
	}

	t0sz, err := strconv.Atoi(arg[2])

	if err != nil {
		return "", fmt.Errorf("invalid T0SZ, %v", err)
	}

	f, err := os.Open(arg[0])

	if err != nil {
		return
	}
	defer f.Close()

	m, err := pagetable.ParseAArch64(f, ttbr0, t0sz, len(arg[3]) > 0)

	if err != nil {
		return
	}

	s.capture = m

	return fmt.Sprintf("captured %d entries", len(m.Entries)), nil
}

func ptdumpCmd(s *state, _ []string) (res string, err error) {
	var buf bytes.Buffer

	if s.capture == nil {
		return "", errNoCapture
	}

	fmt.Fprintf(&buf, "%s\n", s.capture.Arch.Name())
	fmt.Fprintf(&buf, "Start            End              Page Entry       Access\n")

	for _, e := range s.capture.Entries {
		end, _ := e.End()

		fmt.Fprintf(&buf, "%016x %016x %016x %s\n",
			e.LinearAddress, end, e.PageEntry, pagetable.DecodeAttributes(s.capture.Arch, e.PageEntry))
	}

	return buf.String(), nil
}

func attrCmd(s *state, arg []string) (res string, err error) {
	if s.capture == nil {
		return "", errNoCapture
	}

	addr, err := strconv.ParseUint(arg[0], 16, 64)

	if err != nil {
		return "", fmt.Errorf("invalid address, %v", err)
	}

	size, err := strconv.ParseUint(arg[1], 16, 64)

	if err != nil {
		return "", fmt.Errorf("invalid length, %v", err)
	}

	attr, err := s.capture.RegionAccessAttributes(addr, size)

	if err != nil {
		return "", fmt.Errorf("%w (EFI_STATUS %#x)", err, uefi.Status(err))
	}

	return fmt.Sprintf("%#016x %s", attr, uefi.AccessAttributes(attr)), nil
}
