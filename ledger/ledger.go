// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

/*
Package ledger persists a record of which files a previous run
extracted, so that re-runs with skip-existing enabled can leave them
alone. The ledger lives under the output root as snappy-compressed
YAML. A missing or unreadable ledger degrades to an empty one; losing
it only costs redundant writes.
*/
package ledger

import (
	"io"
	"os"
	"sort"
	"sync"

	"github.com/golang/snappy"
	"gopkg.in/yaml.v2"
)

// DefaultName is the ledger's file name under the output root.
const DefaultName = ".lunpack.yaml.sz"

// Entry records one extracted file with the manifest metadata it was
// extracted under. Hash is the declared MD5 in hex; a changed manifest
// line therefore invalidates the record.
type Entry struct {
	Path string `yaml:"path"`
	Size uint32 `yaml:"size"`
	Hash string `yaml:"hash"`
	Crc  uint32 `yaml:"crc"`
}

type serializedLedger struct {
	Entries []Entry `yaml:"entries"`
}

// Ledger is the in-memory view, keyed by manifest-relative path.
type Ledger struct {
	path    string
	mu      sync.Mutex
	entries map[string]Entry
	dirty   bool
}

// Load reads the ledger at path. Any failure yields an empty ledger
// that will be rewritten on Persist.
func Load(path string) *Ledger {
	l := &Ledger{path: path, entries: make(map[string]Entry)}
	f, err := os.Open(path)
	if err != nil {
		return l
	}
	defer f.Close()
	raw, err := io.ReadAll(snappy.NewReader(f))
	if err != nil {
		log.Warnf("failed to read ledger %q: %v", path, err)
		return l
	}
	var onDisk serializedLedger
	if err := yaml.Unmarshal(raw, &onDisk); err != nil {
		log.Warnf("failed to parse ledger %q: %v", path, err)
		return l
	}
	for _, e := range onDisk.Entries {
		l.entries[e.Path] = e
	}
	return l
}

// Seen reports whether path was recorded with the same declared size
// and hash.
func (l *Ledger) Seen(path string, size uint32, hash string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[path]
	return ok && e.Size == size && e.Hash == hash
}

// Record notes a completed extraction.
func (l *Ledger) Record(path string, size uint32, hash string, crc uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[path] = Entry{Path: path, Size: size, Hash: hash, Crc: crc}
	l.dirty = true
}

// Len returns the number of recorded files.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Persist writes the ledger back to its file. Entries are sorted by
// path so the output is stable across runs. A clean ledger is left
// untouched.
func (l *Ledger) Persist() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.dirty {
		return nil
	}
	onDisk := serializedLedger{Entries: make([]Entry, 0, len(l.entries))}
	for _, e := range l.entries {
		onDisk.Entries = append(onDisk.Entries, e)
	}
	sort.Slice(onDisk.Entries, func(i, j int) bool {
		return onDisk.Entries[i].Path < onDisk.Entries[j].Path
	})
	raw, err := yaml.Marshal(&onDisk)
	if err != nil {
		return err
	}
	f, err := os.Create(l.path)
	if err != nil {
		return err
	}
	w := snappy.NewBufferedWriter(f)
	if _, err := w.Write(raw); err != nil {
		w.Close()
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	l.dirty = false
	return nil
}
