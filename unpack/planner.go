// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

package unpack

import (
	"sort"

	"github.com/LUDevNet/LUnpack/crc"
	"github.com/LUDevNet/LUnpack/manifest"
	"github.com/LUDevNet/LUnpack/pki"
)

// Request is one planned extraction: a manifest entry joined with its
// path checksum. Size and Hash are the manifest's declared values and
// are carried for diagnostics, not verified.
type Request struct {
	Crc  uint32
	Path string
	Size uint32
	Hash manifest.MD5
}

// Batch is the set of requests destined for one archive. Key is the
// archive path exactly as the index spells it.
type Batch struct {
	Key      string
	Requests []Request
}

// Plan joins the manifest against the filter and the pack index,
// grouping the surviving entries by owning archive. Manifest entries
// whose checksum is unknown to the index are not packed and are
// silently skipped. Batches are ordered by archive key so repeated
// runs process archives in the same order; requests keep manifest
// order. Archives with no matched request get no batch.
func Plan(m *manifest.Manifest, filter *Filter, idx *pki.Index) []Batch {
	grouped := make(map[string][]Request)
	for _, entry := range m.Files {
		if !filter.Match(entry.Path) {
			continue
		}
		sum := crc.Sum([]byte(entry.Path))
		ref, ok := idx.Files[sum]
		if !ok {
			continue
		}
		if int(ref.Pack) >= len(idx.Archives) {
			// a ref pointing past the archive list is index damage;
			// treat it like an unpacked file
			continue
		}
		key := idx.Archives[ref.Pack].Path
		grouped[key] = append(grouped[key], Request{
			Crc:  sum,
			Path: entry.Path,
			Size: entry.Size,
			Hash: entry.Hash,
		})
	}
	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	batches := make([]Batch, 0, len(keys))
	for _, key := range keys {
		batches = append(batches, Batch{Key: key, Requests: grouped[key]})
	}
	return batches
}
