// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

package unpack

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type pkEntry struct {
	crc  uint32
	data []byte
}

// writePK writes a minimal valid pack archive with uncompressed
// payloads: magic, blobs, entry directory sorted by crc, trailer.
func writePK(t *testing.T, path string, entries []pkEntry) {
	t.Helper()
	sort.Slice(entries, func(i, j int) bool { return entries[i].crc < entries[j].crc })

	buf := &bytes.Buffer{}
	le := binary.LittleEndian
	buf.WriteString("ndpk\x01\xff\x00")
	offsets := make([]uint32, len(entries))
	for i, e := range entries {
		offsets[i] = uint32(buf.Len())
		buf.Write(e.data)
	}
	base := uint32(buf.Len())
	binary.Write(buf, le, uint32(len(entries)))
	hash := [36]byte{}
	copy(hash[:], strings.Repeat("0", 32))
	for i, e := range entries {
		binary.Write(buf, le, e.crc)
		binary.Write(buf, le, int32(-1)) // lower
		binary.Write(buf, le, int32(-1)) // upper
		binary.Write(buf, le, uint32(len(e.data)))
		buf.Write(hash[:])
		binary.Write(buf, le, uint32(len(e.data)))
		buf.Write(hash[:])
		binary.Write(buf, le, offsets[i])
		binary.Write(buf, le, uint32(0)) // uncompressed
	}
	binary.Write(buf, le, base)
	binary.Write(buf, le, uint32(1)) // revision

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func countLevel(hook *test.Hook, level logrus.Level) int {
	n := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == level {
			n++
		}
	}
	return n
}

const testPackKey = `client\res\pack\test0.pk`

func TestExtractBatch(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	writePK(t, filepath.Join(root, "client", "res", "pack", "test0.pk"), []pkEntry{
		{crc: 0x10, data: []byte("first file")},
		{crc: 0x20, data: []byte("second")},
	})
	logger, hook := test.NewNullLogger()
	x := &Extractor{Input: root, Output: out, Log: logger}
	batch := Batch{Key: testPackKey, Requests: []Request{
		{Crc: 0x10, Path: `client\res\a.txt`, Size: 10},
		{Crc: 0x20, Path: `client\res\sub\b.bin`, Size: 6},
	}}
	if err := x.ExtractBatch(1, 1, batch); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(out, "client", "res", "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first file" {
		t.Errorf("a.txt = %q", got)
	}
	got, err = os.ReadFile(filepath.Join(out, "client", "res", "sub", "b.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("b.bin = %q", got)
	}
	// the progress line uses the shortened archive key
	last := hook.LastEntry()
	if last == nil || last.Level != logrus.InfoLevel || !strings.Contains(last.Message, "1/1 test0.pk") {
		t.Errorf("unexpected final log entry: %+v", last)
	}
}

func TestExtractBatchDryRun(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	writePK(t, filepath.Join(root, "client", "res", "pack", "test0.pk"), []pkEntry{
		{crc: 0x10, data: []byte("x")},
		{crc: 0x20, data: []byte("y")},
	})
	logger, _ := test.NewNullLogger()
	report := &bytes.Buffer{}
	x := &Extractor{Input: root, Output: out, DryRun: true, Stdout: report, Log: logger}
	batch := Batch{Key: testPackKey, Requests: []Request{
		{Crc: 0x20, Path: `b.bin`, Size: 1},
		{Crc: 0x10, Path: `a.txt`, Size: 1},
	}}
	if err := x.ExtractBatch(1, 1, batch); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("dry run touched the output directory")
	}
	want := filepath.Join(out, "b.bin") + "\n" + filepath.Join(out, "a.txt") + "\n"
	if report.String() != want {
		t.Errorf("dry-run report = %q, want %q", report.String(), want)
	}
}

func TestExtractBatchMissingArchive(t *testing.T) {
	root := t.TempDir()
	logger, hook := test.NewNullLogger()
	x := &Extractor{Input: root, Output: filepath.Join(root, "out"), Log: logger}
	batch := Batch{Key: `client\res\pack\gone.pk`, Requests: []Request{
		{Crc: 0x10, Path: `a.txt`},
	}}
	if err := x.ExtractBatch(1, 1, batch); err != nil {
		t.Fatalf("a missing archive must not fail the batch: %v", err)
	}
	if got := countLevel(hook, logrus.WarnLevel); got != 1 {
		t.Errorf("got %d warnings, want 1", got)
	}
	if _, err := os.Stat(filepath.Join(root, "out")); !os.IsNotExist(err) {
		t.Error("missing archive produced output files")
	}
}

func TestExtractBatchMissingEntry(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	writePK(t, filepath.Join(root, "client", "res", "pack", "test0.pk"), []pkEntry{
		{crc: 0x10, data: []byte("present")},
	})
	logger, hook := test.NewNullLogger()
	x := &Extractor{Input: root, Output: out, Log: logger}
	batch := Batch{Key: testPackKey, Requests: []Request{
		{Crc: 0x15, Path: `gone.txt`},
		{Crc: 0x10, Path: `here.txt`},
	}}
	if err := x.ExtractBatch(1, 1, batch); err != nil {
		t.Fatal(err)
	}
	var warned *logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = entry
		}
	}
	if warned == nil || !strings.Contains(warned.Message, "gone.txt") || !strings.Contains(warned.Message, "test0.pk") {
		t.Errorf("missing-entry warning = %+v", warned)
	}
	// the remaining request in the batch is still extracted
	got, err := os.ReadFile(filepath.Join(out, "here.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "present" {
		t.Errorf("here.txt = %q", got)
	}
}

func TestExtractBatchBadMagicTolerated(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	pkPath := filepath.Join(root, "client", "res", "pack", "test0.pk")
	writePK(t, pkPath, []pkEntry{{crc: 0x10, data: []byte("still fine")}})
	// damage the signature but nothing else
	raw, err := os.ReadFile(pkPath)
	if err != nil {
		t.Fatal(err)
	}
	copy(raw, "booo!?!")
	if err := os.WriteFile(pkPath, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	logger, hook := test.NewNullLogger()
	x := &Extractor{Input: root, Output: out, Log: logger}
	batch := Batch{Key: testPackKey, Requests: []Request{{Crc: 0x10, Path: `a.txt`}}}
	if err := x.ExtractBatch(1, 1, batch); err != nil {
		t.Fatal(err)
	}
	if got := countLevel(hook, logrus.ErrorLevel); got != 1 {
		t.Errorf("got %d error logs, want 1", got)
	}
	got, err := os.ReadFile(filepath.Join(out, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "still fine" {
		t.Errorf("a.txt = %q", got)
	}
}

func TestShortKey(t *testing.T) {
	if got := shortKey(`client\res\pack\front0.pk`); got != "front0.pk" {
		t.Errorf("shortKey = %q", got)
	}
	if got := shortKey(`elsewhere\x.pk`); got != `elsewhere\x.pk` {
		t.Errorf("shortKey = %q", got)
	}
}
