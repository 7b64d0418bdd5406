// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var guidPattern = regexp.MustCompile(`^([[:xdigit:]]{8})-([[:xdigit:]]{4})-([[:xdigit:]]{4})-([[:xdigit:]]{4})-([[:xdigit:]]{12})$`)

// GUID represents an EFI GUID (Globally Unique Identifier) as a 16-byte array
// with the native EFI byte order.
//
// Note: The registry string format (xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx)
// reorders the first three fields as little-endian. Internally, we keep the
// native EFI layout (as used in memory and in HOB lists).
type GUID [16]byte

// ParseGUID parses a GUID in registry string format, optionally enclosed in
// curly braces, into a native EFI GUID.
func ParseGUID(s string) (out GUID, err error) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
	m := guidPattern.FindStringSubmatch(s)

	if len(m) != 6 {
		return GUID{}, fmt.Errorf("invalid GUID format: %q", s)
	}

	d1, _ := strconv.ParseUint(m[1], 16, 32)
	d2, _ := strconv.ParseUint(m[2], 16, 16)
	d3, _ := strconv.ParseUint(m[3], 16, 16)

	binary.LittleEndian.PutUint32(out[0:4], uint32(d1))
	binary.LittleEndian.PutUint16(out[4:6], uint16(d2))
	binary.LittleEndian.PutUint16(out[6:8], uint16(d3))

	if _, err = hex.Decode(out[8:10], []byte(m[4])); err != nil {
		return GUID{}, err
	}

	if _, err = hex.Decode(out[10:16], []byte(m[5])); err != nil {
		return GUID{}, err
	}

	return
}

// MustParseGUID is like ParseGUID but panics on error. It is intended for package
// level GUID declarations.
func MustParseGUID(s string) (g GUID) {
	var err error

	if g, err = ParseGUID(s); err != nil {
		panic(err)
	}

	return
}

// String returns the registry format string representation of the GUID.
// https://uefi.org/specs/UEFI/2.10/Apx_A_GUID_and_Time_Formats.html
func (g GUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%x-%x",
		binary.LittleEndian.Uint32(g[0:4]),
		binary.LittleEndian.Uint16(g[4:6]),
		binary.LittleEndian.Uint16(g[6:8]),
		g[8:10],
		g[10:])
}

// IsZero reports whether g is the all-zero GUID.
func (g GUID) IsZero() bool {
	return g == GUID{}
}
