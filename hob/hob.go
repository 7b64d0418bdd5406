// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package hob implements the Hand-Off Block (HOB) list used to pass records
// between firmware boot phases, as defined in the UEFI Platform
// Initialization specification (Volume 3).
package hob

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/usbarmory/go-fwmem/uefi"
)

// EFI_HOB_TYPE
const (
	EFI_HOB_TYPE_HANDOFF             = 0x0001
	EFI_HOB_TYPE_MEMORY_ALLOCATION   = 0x0002
	EFI_HOB_TYPE_RESOURCE_DESCRIPTOR = 0x0003
	EFI_HOB_TYPE_GUID_EXTENSION      = 0x0004
	EFI_HOB_TYPE_FV                  = 0x0005
	EFI_HOB_TYPE_CPU                 = 0x0006
	EFI_HOB_TYPE_UNUSED              = 0xfffe
	EFI_HOB_TYPE_END_OF_HOB_LIST     = 0xffff
)

const (
	headerSize = 8
	alignment  = 8
	maxLength  = 0xfff8

	// MaxDataSize is the largest payload of a single HOB.
	MaxDataSize = maxLength - headerSize
)

// EFI_HOB_GENERIC_HEADER
type header struct {
	Type     uint16
	Length   uint16
	Reserved uint32
}

// Hob represents a single Hand-Off Block.
type Hob struct {
	// Type is the EFI_HOB_TYPE value
	Type uint16
	// Data is the HOB payload following the generic header, its length
	// is always a multiple of 8.
	Data []byte
}

// List represents a HOB list, the terminating
// EFI_HOB_TYPE_END_OF_HOB_LIST entry is implicit.
type List struct {
	Hobs []*Hob
}

// Build appends a HOB of the argument type and payload, the payload is zero
// padded to 8 bytes.
func (l *List) Build(t uint16, data []byte) (h *Hob, err error) {
	if t == EFI_HOB_TYPE_END_OF_HOB_LIST {
		return nil, errors.New("end of list HOB cannot be built")
	}

	size := (len(data) + alignment - 1) &^ (alignment - 1)

	if size > MaxDataSize {
		return nil, fmt.Errorf("HOB payload too large (%d > %d)", len(data), MaxDataSize)
	}

	h = &Hob{
		Type: t,
		Data: make([]byte, size),
	}

	copy(h.Data, data)
	l.Hobs = append(l.Hobs, h)

	return
}

// MarshalBinary implements the [encoding.BinaryMarshaler] interface.
func (l *List) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)

	for i, h := range l.Hobs {
		if len(h.Data)%alignment != 0 || len(h.Data) > MaxDataSize {
			return nil, fmt.Errorf("invalid HOB %d, length %d", i, len(h.Data))
		}

		hdr := header{
			Type:   h.Type,
			Length: uint16(headerSize + len(h.Data)),
		}

		binary.Write(buf, binary.LittleEndian, &hdr)
		buf.Write(h.Data)
	}

	end := header{
		Type:   EFI_HOB_TYPE_END_OF_HOB_LIST,
		Length: headerSize,
	}

	binary.Write(buf, binary.LittleEndian, &end)

	return buf.Bytes(), nil
}

// UnmarshalBinary implements the [encoding.BinaryUnmarshaler] interface, the
// list must be terminated by an EFI_HOB_TYPE_END_OF_HOB_LIST entry.
func (l *List) UnmarshalBinary(data []byte) (err error) {
	var hdr header
	var hobs []*Hob

	for off := 0; off+headerSize <= len(data); {
		if _, err = binary.Decode(data[off:], binary.LittleEndian, &hdr); err != nil {
			return
		}

		if hdr.Type == EFI_HOB_TYPE_END_OF_HOB_LIST {
			l.Hobs = hobs
			return
		}

		length := int(hdr.Length)

		switch {
		case length < headerSize, length%alignment != 0:
			return fmt.Errorf("invalid HOB length %#x at offset %#x", length, off)
		case off+length > len(data):
			return fmt.Errorf("truncated HOB at offset %#x", off)
		}

		h := &Hob{
			Type: hdr.Type,
			Data: make([]byte, length-headerSize),
		}

		copy(h.Data, data[off+headerSize:off+length])
		hobs = append(hobs, h)

		off += length
	}

	return errors.New("HOB list is not terminated")
}

// guid returns the GUID at the start of a HOB payload.
func (h *Hob) guid() (g uefi.GUID, ok bool) {
	if len(h.Data) < len(g) {
		return
	}

	copy(g[:], h.Data)

	return g, true
}
