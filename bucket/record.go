// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bucket

import (
	"encoding/binary"
	"fmt"

	"github.com/usbarmory/go-fwmem/uefi"
)

// RecordSize is the size of a binary encoded [Record].
const RecordSize = NumberOfBuckets*(40+8) + 8

// Record represents the memory bucket hand-off record passed to the next
// boot phase (PEI_MEMORY_BUCKET_INFORMATION).
type Record struct {
	RuntimeBuckets        [NumberOfBuckets]Statistics
	CurrentTopInBucket    [NumberOfBuckets]uint64
	MemoryBucketsDisabled bool
	_                     [7]byte
}

// MarshalBinary implements the [encoding.BinaryMarshaler] interface.
func (r *Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RecordSize)
	_, err := binary.Encode(buf, binary.LittleEndian, r)
	return buf, err
}

// UnmarshalBinary implements the [encoding.BinaryUnmarshaler] interface.
func (r *Record) UnmarshalBinary(data []byte) (err error) {
	if len(data) < RecordSize {
		return fmt.Errorf("%w, size %d", ErrInvalidRecord, len(data))
	}

	_, err = binary.Decode(data, binary.LittleEndian, r)

	return
}

// Validate checks that every bucket top lies within its bucket, that bucket
// bounds are page aligned and that buckets do not overlap.
func (r *Record) Validate() error {
	if r.MemoryBucketsDisabled {
		return nil
	}

	for i := range r.RuntimeBuckets {
		b := &r.RuntimeBuckets[i]
		top := r.CurrentTopInBucket[i]

		switch {
		case b.BaseAddress%uefi.PageSize != 0, b.MaximumAddress%uefi.PageSize != 0:
			return fmt.Errorf("%w, bucket %d is not page aligned", ErrInvalidRecord, i)
		case b.BaseAddress > b.MaximumAddress:
			return fmt.Errorf("%w, bucket %d base above maximum", ErrInvalidRecord, i)
		case top < b.BaseAddress || top > b.MaximumAddress:
			return fmt.Errorf("%w, bucket %d top %#x outside %#x-%#x", ErrInvalidRecord, i, top, b.BaseAddress, b.MaximumAddress)
		}

		for j := range i {
			o := &r.RuntimeBuckets[j]

			if b.BaseAddress == b.MaximumAddress || o.BaseAddress == o.MaximumAddress {
				continue
			}

			if b.BaseAddress < o.MaximumAddress && o.BaseAddress < b.MaximumAddress {
				return fmt.Errorf("%w, bucket %d overlaps bucket %d", ErrInvalidRecord, i, j)
			}
		}
	}

	return nil
}
