// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bucket

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usbarmory/go-fwmem/memstat"
	"github.com/usbarmory/go-fwmem/uefi"
)

const (
	testStart = 0x80000000
	testPages = 0x100
	testSize  = testPages * uefi.PageSize
)

var testConfig = Config{
	Pages: [NumberOfBuckets]uint64{testPages, testPages, testPages, testPages},
}

func initialized(t *testing.T) *Accountant {
	a := New(testConfig)

	total, err := a.Initialize(testStart, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(NumberOfBuckets*testPages), total)

	return a
}

func TestMemoryTypeToIndex(t *testing.T) {
	for i, memoryType := range MemoryTypes {
		index, ok := MemoryTypeToIndex(memoryType)
		require.True(t, ok)
		require.Equal(t, i, index)
		require.True(t, IsRuntimeType(memoryType))
	}

	_, ok := MemoryTypeToIndex(uefi.EfiBootServicesData)
	require.False(t, ok)
	require.False(t, IsRuntimeType(uefi.EfiConventionalMemory))
}

func TestInitialize(t *testing.T) {
	a := initialized(t)

	require.Equal(t, Initialized, a.State())
	require.True(t, a.Enabled())

	for i, memoryType := range MemoryTypes {
		base := uint64(testStart + i*testSize)

		require.Equal(t, base, a.CurrentBucketBottom(memoryType))
		require.Equal(t, base, a.CurrentBucketTop(memoryType))
		require.Equal(t, base+testSize, a.CurrentBucketEnd(memoryType))
	}

	b := a.Buckets()
	require.True(t, b[0].Runtime)
	require.True(t, b[1].Runtime)
	require.False(t, b[2].Runtime)
	require.False(t, b[3].Runtime)

	_, err := a.Initialize(testStart, nil)
	require.Error(t, err)
}

func TestInitializeInformation(t *testing.T) {
	a := New(testConfig)

	info := memstat.Information{
		{Type: uefi.EfiRuntimeServicesData, NumberOfPages: 0x10},
		{Type: uefi.EfiBootServicesData, NumberOfPages: 0x1000},
		{Type: uefi.EfiACPIMemoryNVS, NumberOfPages: 0x4},
	}

	total, err := a.Initialize(testStart, info)
	require.NoError(t, err)
	require.Equal(t, uint64(0x14), total)

	// missing types get empty buckets
	require.Equal(t, uint64(testStart), a.CurrentBucketEnd(uefi.EfiRuntimeServicesCode))
	require.Equal(t, uint64(testStart+0x10000), a.CurrentBucketEnd(uefi.EfiRuntimeServicesData))
	require.Equal(t, uint64(testStart+0x14000), a.TopOfBuckets())
	require.Equal(t, uint64(testStart), a.BottomOfBuckets())
}

func TestInitializeInvalid(t *testing.T) {
	_, err := New(testConfig).Initialize(testStart+1, nil)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = New(testConfig).Initialize(0xffffffffffff0000, nil)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestInitializeFailureLeavesState(t *testing.T) {
	a := New(testConfig)

	// the first bucket fits below the end of the address space, the
	// second one does not
	_, err := a.Initialize(0xffffffffffe00000, nil)
	require.ErrorIs(t, err, ErrInvalidParameter)

	require.Equal(t, Uninitialized, a.State())
	require.Equal(t, [NumberOfBuckets]uint64{}, a.tops)
	require.Equal(t, [NumberOfBuckets]Statistics{}, a.buckets)
	require.Zero(t, a.CurrentBucketTop(uefi.EfiRuntimeServicesCode))

	// a failed attempt does not prevent a valid one
	total, err := a.Initialize(testStart, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(NumberOfBuckets*testPages), total)
	require.Equal(t, uint64(testStart), a.tops[0])
}

func TestDisabled(t *testing.T) {
	a := New(Config{})

	total, err := a.Initialize(testStart, nil)
	require.NoError(t, err)
	require.Zero(t, total)
	require.False(t, a.Enabled())

	_, err = a.Allocate(1, uefi.EfiRuntimeServicesCode)
	require.ErrorIs(t, err, ErrDisabled)

	require.False(t, a.InRuntimeBoundary(testStart))
	require.Zero(t, a.CurrentBucketTop(uefi.EfiRuntimeServicesCode))
	require.Nil(t, a.Descriptors())
}

func TestUninitialized(t *testing.T) {
	a := New(testConfig)

	_, err := a.Allocate(1, uefi.EfiRuntimeServicesCode)
	require.ErrorIs(t, err, ErrNotInitialized)

	require.ErrorIs(t, a.UpdateCurrentBucketTop(testStart, uefi.EfiRuntimeServicesCode), ErrNotInitialized)
	require.False(t, a.InRuntimeBoundary(testStart))
	require.Zero(t, a.BottomOfBuckets())
	require.Zero(t, a.TopOfBuckets())
}

func TestAllocateHalfBucket(t *testing.T) {
	a := initialized(t)

	addr, err := a.Allocate(testPages/2, uefi.EfiRuntimeServicesCode)
	require.NoError(t, err)
	require.Equal(t, uint64(testStart), addr)

	require.Equal(t, uint64(testStart+testSize/2), a.CurrentBucketTop(uefi.EfiRuntimeServicesCode))

	for i, memoryType := range MemoryTypes[1:] {
		require.Equal(t, uint64(testStart+(i+1)*testSize), a.CurrentBucketTop(memoryType))
	}

	require.Equal(t, uint64(testPages/2), a.Buckets()[0].CurrentNumberOfPages)
}

func TestAllocateExhausted(t *testing.T) {
	a := initialized(t)

	_, err := a.Allocate(testPages-1, uefi.EfiACPIMemoryNVS)
	require.NoError(t, err)

	top := a.CurrentBucketTop(uefi.EfiACPIMemoryNVS)

	_, err = a.Allocate(2, uefi.EfiACPIMemoryNVS)
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, top, a.CurrentBucketTop(uefi.EfiACPIMemoryNVS))

	addr, err := a.Allocate(1, uefi.EfiACPIMemoryNVS)
	require.NoError(t, err)
	require.Equal(t, top, addr)
	require.Equal(t, a.CurrentBucketEnd(uefi.EfiACPIMemoryNVS), a.CurrentBucketTop(uefi.EfiACPIMemoryNVS))

	_, err = a.Allocate(1<<60, uefi.EfiRuntimeServicesCode)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestAllocateInvalid(t *testing.T) {
	a := initialized(t)

	_, err := a.Allocate(1, uefi.EfiBootServicesData)
	require.ErrorIs(t, err, ErrNotRuntimeType)

	_, err = a.Allocate(0, uefi.EfiRuntimeServicesData)
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestUpdateCurrentBucketTop(t *testing.T) {
	a := initialized(t)

	base := a.CurrentBucketBottom(uefi.EfiRuntimeServicesData)
	end := a.CurrentBucketEnd(uefi.EfiRuntimeServicesData)

	require.NoError(t, a.UpdateCurrentBucketTop(base+0x3000, uefi.EfiRuntimeServicesData))
	require.Equal(t, base+0x3000, a.CurrentBucketTop(uefi.EfiRuntimeServicesData))
	require.Equal(t, uint64(3), a.Buckets()[1].CurrentNumberOfPages)

	require.NoError(t, a.UpdateCurrentBucketTop(end, uefi.EfiRuntimeServicesData))

	// non-runtime types are ignored
	require.NoError(t, a.UpdateCurrentBucketTop(0x1234, uefi.EfiLoaderData))
	require.Zero(t, a.CurrentBucketTop(uefi.EfiLoaderData))
	require.Zero(t, a.CurrentBucketEnd(uefi.EfiLoaderData))
}

func TestUpdateCurrentBucketTopOutOfBucket(t *testing.T) {
	if debug {
		t.Skip("out of bucket tops panic in debug builds")
	}

	a := initialized(t)

	base := a.CurrentBucketBottom(uefi.EfiACPIReclaimMemory)
	end := a.CurrentBucketEnd(uefi.EfiACPIReclaimMemory)

	require.ErrorIs(t, a.UpdateCurrentBucketTop(base-uefi.PageSize, uefi.EfiACPIReclaimMemory), ErrOutOfBucket)
	require.ErrorIs(t, a.UpdateCurrentBucketTop(end+uefi.PageSize, uefi.EfiACPIReclaimMemory), ErrOutOfBucket)
	require.Equal(t, base, a.CurrentBucketTop(uefi.EfiACPIReclaimMemory))
}

func TestBucketTopInvariant(t *testing.T) {
	a := initialized(t)
	r := rand.New(rand.NewSource(1))

	for range 1000 {
		memoryType := MemoryTypes[r.Intn(NumberOfBuckets)]
		base := a.CurrentBucketBottom(memoryType)
		end := a.CurrentBucketEnd(memoryType)

		top := base + uint64(r.Int63n(testPages+1))*uefi.PageSize
		require.NoError(t, a.UpdateCurrentBucketTop(top, memoryType))

		if r.Intn(2) == 0 {
			a.Allocate(uint64(r.Intn(8)+1), memoryType)
		}

		for _, m := range MemoryTypes {
			top := a.CurrentBucketTop(m)
			require.GreaterOrEqual(t, top, a.CurrentBucketBottom(m))
			require.LessOrEqual(t, top, a.CurrentBucketEnd(m))
		}

		require.LessOrEqual(t, a.CurrentBucketTop(memoryType), end)
	}
}

func TestInRuntimeBoundary(t *testing.T) {
	a := initialized(t)

	require.False(t, a.InRuntimeBoundary(testStart-1))
	require.True(t, a.InRuntimeBoundary(testStart))
	require.True(t, a.InRuntimeBoundary(testStart+NumberOfBuckets*testSize-1))
	require.False(t, a.InRuntimeBoundary(testStart+NumberOfBuckets*testSize))
}

func TestSealed(t *testing.T) {
	a := initialized(t)
	a.state = Serialized

	_, err := a.Allocate(1, uefi.EfiRuntimeServicesCode)
	require.ErrorIs(t, err, ErrSealed)

	require.ErrorIs(t, a.UpdateCurrentBucketTop(testStart, uefi.EfiRuntimeServicesCode), ErrSealed)
	require.ErrorIs(t, a.SetFromRecord(&Record{}), ErrSealed)

	// queries remain available
	require.True(t, a.InRuntimeBoundary(testStart))
}
