// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

package manifest

import (
	"strings"
	"testing"
)

const sampleManifest = `[version]
82,cafebabecafebabecafebabecafebabe

# generated file, do not edit
[files]
client\res\a.txt,10,0123456789abcdef0123456789abcdef
client\res\b.bin,2048,fedcba9876543210fedcba9876543210,extra,fields
client\legal.txt,7,00112233445566778899aabbccddeeff
`

func TestLoad(t *testing.T) {
	m, err := Load(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}
	if m.Version != 82 {
		t.Errorf("Version = %d, want 82", m.Version)
	}
	if len(m.Files) != 3 {
		t.Fatalf("got %d files, want 3", len(m.Files))
	}
	// manifest order must be preserved
	wantPaths := []string{`client\res\a.txt`, `client\res\b.bin`, `client\legal.txt`}
	for i, want := range wantPaths {
		if m.Files[i].Path != want {
			t.Errorf("Files[%d].Path = %q, want %q", i, m.Files[i].Path, want)
		}
	}
	if m.Files[1].Size != 2048 {
		t.Errorf("Files[1].Size = %d, want 2048", m.Files[1].Size)
	}
	if got := m.Files[0].Hash.String(); got != "0123456789abcdef0123456789abcdef" {
		t.Errorf("Files[0].Hash = %s", got)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing fields", "[files]\nclient\\res\\a.txt,10\n"},
		{"bad size", "[files]\nclient\\res\\a.txt,ten,0123456789abcdef0123456789abcdef\n"},
		{"short hash", "[files]\nclient\\res\\a.txt,10,abcd\n"},
		{"bad version", "[version]\nnotanumber\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(tt.text)); err == nil {
				t.Error("expected a parse error")
			}
		})
	}
}

func TestLoadTolerance(t *testing.T) {
	text := "[unknown]\nwhatever,goes,here\n\n[files]\nclient\\res\\a.txt,1,0123456789abcdef0123456789abcdef\n"
	m, err := Load(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Files) != 1 {
		t.Errorf("got %d files, want 1", len(m.Files))
	}
}

func TestParseMD5(t *testing.T) {
	if _, err := ParseMD5("xyz"); err == nil {
		t.Error("expected error for short input")
	}
	if _, err := ParseMD5(strings.Repeat("zz", 16)); err == nil {
		t.Error("expected error for non-hex input")
	}
	d, err := ParseMD5("00112233445566778899aabbccddeeff")
	if err != nil {
		t.Fatal(err)
	}
	if d.String() != "00112233445566778899aabbccddeeff" {
		t.Errorf("round trip produced %s", d)
	}
}
