// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package memstat implements per memory type page statistics and the
// cross-boot learning of memory type bin sizes (EFI_MEMORY_TYPE_INFORMATION).
package memstat

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/usbarmory/go-fwmem/uefi"
)

// GUIDs of the memory type records exchanged between boot phases and boots.
var (
	MemoryTypeStatisticsGUID  = uefi.MustParseGUID("6146c0d6-8e30-4dc2-a9cb-5d8510c48b39")
	MemoryTypeInformationGUID = uefi.MustParseGUID("4c19049f-4137-4dd3-9c10-8b97a83ffdfa")
)

// StatisticsSize is the size of a binary encoded [Statistics] record.
const StatisticsSize = 40

// Statistics represents an EFI_MEMORY_TYPE_STATISTICS record.
type Statistics struct {
	BaseAddress          uint64
	MaximumAddress       uint64
	CurrentNumberOfPages uint64
	NumberOfPages        uint64
	InformationIndex     uint32
	Special              bool
	Runtime              bool
	_                    [2]byte
}

// Table represents the statistics of every memory type for the current boot.
type Table struct {
	Types [uefi.EfiMaxMemoryType + 1]Statistics
}

// special reports whether a memory type requires fixed placement across
// boots.
func special(memoryType int) bool {
	switch memoryType {
	case uefi.EfiReservedMemoryType, uefi.EfiRuntimeServicesCode, uefi.EfiRuntimeServicesData,
		uefi.EfiACPIReclaimMemory, uefi.EfiACPIMemoryNVS:
		return true
	}

	return false
}

// runtime reports whether a memory type remains in use after
// ExitBootServices().
func runtime(memoryType int) bool {
	return memoryType == uefi.EfiRuntimeServicesCode || memoryType == uefi.EfiRuntimeServicesData
}

// NewTable returns a statistics table with bin sizes set from the argument
// memory type information, which may be nil.
func NewTable(info Information) (t *Table) {
	t = &Table{}

	for i := range t.Types {
		s := &t.Types[i]

		s.MaximumAddress = ^uint64(0)
		s.InformationIndex = uefi.EfiMaxMemoryType
		s.Special = special(i)
		s.Runtime = runtime(i)
	}

	for i, e := range info {
		if e.Type >= uefi.EfiMaxMemoryType {
			break
		}

		t.Types[e.Type].NumberOfPages = uint64(e.NumberOfPages)
		t.Types[e.Type].InformationIndex = uint32(i)
	}

	return
}

// Track accounts pages allocated for the argument memory type.
func (t *Table) Track(memoryType int, pages uint64) error {
	if memoryType < 0 || memoryType >= uefi.EfiMaxMemoryType {
		return fmt.Errorf("invalid memory type %d", memoryType)
	}

	t.Types[memoryType].CurrentNumberOfPages += pages

	return nil
}

// Release accounts pages freed for the argument memory type.
func (t *Table) Release(memoryType int, pages uint64) error {
	if memoryType < 0 || memoryType >= uefi.EfiMaxMemoryType {
		return fmt.Errorf("invalid memory type %d", memoryType)
	}

	s := &t.Types[memoryType]

	if pages > s.CurrentNumberOfPages {
		return fmt.Errorf("releasing %d pages of %s, only %d in use",
			pages, uefi.MemoryTypeName(memoryType), s.CurrentNumberOfPages)
	}

	s.CurrentNumberOfPages -= pages

	return nil
}

// MarshalBinary implements the [encoding.BinaryMarshaler] interface.
func (t *Table) MarshalBinary() (data []byte, err error) {
	buf := new(bytes.Buffer)
	err = binary.Write(buf, binary.LittleEndian, &t.Types)
	return buf.Bytes(), err
}

// UnmarshalBinary implements the [encoding.BinaryUnmarshaler] interface.
func (t *Table) UnmarshalBinary(data []byte) (err error) {
	if len(data) < len(t.Types)*StatisticsSize {
		return fmt.Errorf("invalid statistics table size %d", len(data))
	}

	_, err = binary.Decode(data, binary.LittleEndian, &t.Types)

	return
}
