// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/usbarmory/go-fwmem/bucket"
	"github.com/usbarmory/go-fwmem/hob"
	"github.com/usbarmory/go-fwmem/memstat"
	"github.com/usbarmory/go-fwmem/shell"
	"github.com/usbarmory/go-fwmem/uefi"
)

func init() {
	shell.Add(shell.Cmd{
		Name:    "bsave",
		Args:    1,
		Pattern: regexp.MustCompile(`^bsave (\S+)$`),
		Syntax:  "<path>",
		Help:    "serialize buckets and statistics to HOB list",
		Fn:      locked(bsaveCmd),
	})

	shell.Add(shell.Cmd{
		Name:    "bsync",
		Args:    1,
		Pattern: regexp.MustCompile(`^bsync (\S+)$`),
		Syntax:  "<path>",
		Help:    "load HOB list and sync buckets",
		Fn:      locked(bsyncCmd),
	})

	shell.Add(shell.Cmd{
		Name: "hobs",
		Help: "show HOB list",
		Fn:   locked(hobsCmd),
	})

	shell.Add(shell.Cmd{
		Name: "memstat",
		Help: "show memory type statistics and next boot information",
		Fn:   locked(memstatCmd),
	})
}

func bsaveCmd(s *state, arg []string) (res string, err error) {
	if err = s.buckets.Serialize(s.handoff); err != nil {
		return
	}

	stats, err := s.stats.MarshalBinary()

	if err != nil {
		return
	}

	if err = s.handoff.SetGUIDData(memstat.MemoryTypeStatisticsGUID, stats); err != nil {
		return
	}

	next, _ := memstat.Next(s.previous(), s.stats)
	info, err := next.MarshalBinary()

	if err != nil {
		return
	}

	if err = s.handoff.SetGUIDData(memstat.MemoryTypeInformationGUID, info); err != nil {
		return
	}

	buf, err := s.handoff.MarshalBinary()

	if err != nil {
		return
	}

	if err = os.WriteFile(arg[0], buf, 0600); err != nil {
		return
	}

	return fmt.Sprintf("%d HOBs, %d bytes", len(s.handoff.Hobs), len(buf)), nil
}

func bsyncCmd(s *state, arg []string) (res string, err error) {
	buf, err := os.ReadFile(arg[0])

	if err != nil {
		return
	}

	l := &hob.List{}

	if err = l.UnmarshalBinary(buf); err != nil {
		return
	}

	if err = s.buckets.Sync(l); err != nil {
		return
	}

	s.handoff = l
	s.stats = memstat.NewTable(s.information())
	s.allocator.Statistics = s.stats

	return fmt.Sprintf("%d HOBs, buckets %s", len(l.Hobs), s.buckets.State()), nil
}

// previous returns the memory type information of the current boot, bucket
// types are included so that their usage is learned.
func (s *state) previous() (info memstat.Information) {
	info = s.information()

	for _, t := range bucket.MemoryTypes {
		if _, ok := info.Pages(t); !ok {
			info = append(info, memstat.TypeInformation{Type: uint32(t)})
		}
	}

	return
}

func hobsCmd(s *state, _ []string) (res string, err error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Type Length Name\n")

	for _, h := range s.handoff.Hobs {
		fmt.Fprintf(&buf, "%04x %6d", h.Type, len(h.Data)+8)

		switch h.Type {
		case hob.EFI_HOB_TYPE_GUID_EXTENSION:
			g, _ := h.GUID()
			fmt.Fprintf(&buf, " %s", g)
		case hob.EFI_HOB_TYPE_MEMORY_ALLOCATION:
			a := &hob.MemoryAllocation{}

			if err := a.UnmarshalBinary(h.Data); err == nil {
				fmt.Fprintf(&buf, " %s %016x-%016x %s", a.Name,
					a.MemoryBaseAddress, a.MemoryBaseAddress+a.MemoryLength-1,
					uefi.MemoryTypeName(int(a.MemoryType)))
			}
		}

		fmt.Fprintln(&buf)
	}

	return buf.String(), nil
}

func memstatCmd(s *state, _ []string) (res string, err error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Type                   Current    Bin\n")

	for t, st := range s.stats.Types[:uefi.EfiMaxMemoryType] {
		if st.CurrentNumberOfPages == 0 && st.NumberOfPages == 0 {
			continue
		}

		fmt.Fprintf(&buf, "%-22s %-10d %d\n", uefi.MemoryTypeName(t), st.CurrentNumberOfPages, st.NumberOfPages)
	}

	next, changed := memstat.Next(s.previous(), s.stats)

	fmt.Fprintf(&buf, "\nNext boot (changed: %v)\n", changed)

	for _, e := range next {
		fmt.Fprintf(&buf, "%-22s %d\n", uefi.MemoryTypeName(int(e.Type)), e.NumberOfPages)
	}

	return buf.String(), nil
}
