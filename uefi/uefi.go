// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package uefi implements the Unified Extensible Firmware Interface (UEFI)
// memory definitions shared by the page table and memory bucket packages,
// following the specifications at:
//
//	https://uefi.org/specs/UEFI/2.10/
//	https://uefi.org/specs/PI/1.8/
package uefi

import (
	"errors"
	"fmt"
)

// EFI_STATUS codes
const (
	EFI_SUCCESS           = 0
	EFI_LOAD_ERROR        = 1
	EFI_INVALID_PARAMETER = 2
	EFI_UNSUPPORTED       = 3
	EFI_BAD_BUFFER_SIZE   = 4
	EFI_BUFFER_TOO_SMALL  = 5
	EFI_OUT_OF_RESOURCES  = 9
	EFI_NOT_FOUND         = 14
	EFI_ABORTED           = 21
)

// EFI error bit, set on every EFI_STATUS error code.
const errorBit = 1 << 63

// Status errors
var (
	ErrEfiInvalidParameter = errors.New("EFI_INVALID_PARAMETER")
	ErrEfiBufferTooSmall   = errors.New("EFI_BUFFER_TOO_SMALL")
	ErrEfiOutOfResources   = errors.New("EFI_OUT_OF_RESOURCES")
	ErrEfiNotFound         = errors.New("EFI_NOT_FOUND")
	ErrEfiAborted          = errors.New("EFI_ABORTED")
)

var statusErrors = map[uint64]error{
	EFI_INVALID_PARAMETER: ErrEfiInvalidParameter,
	EFI_BUFFER_TOO_SMALL:  ErrEfiBufferTooSmall,
	EFI_OUT_OF_RESOURCES:  ErrEfiOutOfResources,
	EFI_NOT_FOUND:         ErrEfiNotFound,
	EFI_ABORTED:           ErrEfiAborted,
}

// ParseStatus converts an EFI_STATUS value to an error, nil is returned on
// EFI_SUCCESS.
func ParseStatus(status uint64) (err error) {
	code := status &^ errorBit

	switch {
	case status == EFI_SUCCESS:
		return
	case statusErrors[code] != nil:
		return statusErrors[code]
	default:
		return fmt.Errorf("EFI_STATUS error %#x (%d)", status, code&0xff)
	}
}

// Status converts an error to its EFI_STATUS value, errors which do not map to
// a known status are reported as EFI_ABORTED.
func Status(err error) uint64 {
	if err == nil {
		return EFI_SUCCESS
	}

	for code, e := range statusErrors {
		if errors.Is(err, e) {
			return errorBit | code
		}
	}

	return errorBit | EFI_ABORTED
}
