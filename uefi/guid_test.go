// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"testing"
)

func TestParseGUID(t *testing.T) {
	s := "36138737-b6db-4ed6-9b4b-f96128e7193c"

	g, err := ParseGUID(s)

	if err != nil {
		t.Fatal(err)
	}

	expected := GUID{
		0x37, 0x87, 0x13, 0x36,
		0xdb, 0xb6,
		0xd6, 0x4e,
		0x9b, 0x4b,
		0xf9, 0x61, 0x28, 0xe7, 0x19, 0x3c,
	}

	if g != expected {
		t.Fatalf("got %x, expected %x", g[:], expected[:])
	}

	if g.String() != s {
		t.Fatalf("got %s, expected %s", g.String(), s)
	}
}

func TestParseGUIDBraces(t *testing.T) {
	g, err := ParseGUID("{6146C0D6-8E30-4DC2-A9CB-5D8510C48B39}")

	if err != nil {
		t.Fatal(err)
	}

	if g.String() != "6146c0d6-8e30-4dc2-a9cb-5d8510c48b39" {
		t.Fatalf("got an invalid GUID %s", g)
	}
}

func TestParseGUIDInvalid(t *testing.T) {
	for _, s := range []string{
		"",
		"36138737-b6db-4ed6-9b4b",
		"36138737b6db4ed69b4bf96128e7193c",
		"3613873z-b6db-4ed6-9b4b-f96128e7193c",
	} {
		if _, err := ParseGUID(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}
