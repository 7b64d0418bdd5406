// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package hob

import (
	"github.com/usbarmory/go-fwmem/uefi"
)

// BuildGUIDData appends an EFI_HOB_TYPE_GUID_EXTENSION HOB, named after the
// argument GUID, carrying a copy of data.
func (l *List) BuildGUIDData(guid uefi.GUID, data []byte) (h *Hob, err error) {
	buf := make([]byte, len(guid)+len(data))

	copy(buf, guid[:])
	copy(buf[len(guid):], data)

	return l.Build(EFI_HOB_TYPE_GUID_EXTENSION, buf)
}

// GUID returns the name of an EFI_HOB_TYPE_GUID_EXTENSION HOB.
func (h *Hob) GUID() (guid uefi.GUID, ok bool) {
	if h.Type != EFI_HOB_TYPE_GUID_EXTENSION {
		return
	}

	return h.guid()
}

// GUIDData returns the payload of an EFI_HOB_TYPE_GUID_EXTENSION HOB,
// including any alignment padding.
func (h *Hob) GUIDData() []byte {
	if _, ok := h.GUID(); !ok {
		return nil
	}

	return h.Data[len(uefi.GUID{}):]
}

// NextGUID returns the index of the first GUID extension HOB, matching the
// argument GUID, at or after index start, -1 is returned when not found.
func (l *List) NextGUID(guid uefi.GUID, start int) int {
	for i := max(start, 0); i < len(l.Hobs); i++ {
		if g, ok := l.Hobs[i].GUID(); ok && g == guid {
			return i
		}
	}

	return -1
}

// FirstGUID returns the first GUID extension HOB matching the argument GUID.
func (l *List) FirstGUID(guid uefi.GUID) *Hob {
	if i := l.NextGUID(guid, 0); i >= 0 {
		return l.Hobs[i]
	}

	return nil
}

// SetGUIDData replaces the payload of the first GUID extension HOB matching
// the argument GUID, a new one is built when none exists.
func (l *List) SetGUIDData(guid uefi.GUID, data []byte) (err error) {
	i := l.NextGUID(guid, 0)

	if i < 0 {
		_, err = l.BuildGUIDData(guid, data)
		return
	}

	h := &List{}

	if _, err = h.BuildGUIDData(guid, data); err != nil {
		return
	}

	l.Hobs[i] = h.Hobs[0]

	return
}
