// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

/*
Package pki loads the binary pack index (primary.pki): the mapping from
a path checksum to the archive that stores the content, plus the
ordered list of archive paths. All integers are little-endian.
*/
package pki

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Archive describes one pack archive listed by the index. Path is
// relative to the client root and uses backslash separators.
type Archive struct {
	Path string
}

// FileRef locates one file within the set of archives. Lower and Upper
// are the on-disk search tree links; they are carried but not used
// here, lookups go through the checksum map instead.
type FileRef struct {
	Crc      uint32
	Lower    int32
	Upper    int32
	Pack     uint32
	Category uint32
}

// Index is the parsed pack index.
type Index struct {
	Version  uint32
	Archives []Archive
	Files    map[uint32]FileRef
}

// Load parses a pack index from r.
func Load(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	idx := &Index{}
	if err := binary.Read(br, binary.LittleEndian, &idx.Version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	var archiveCount uint32
	if err := binary.Read(br, binary.LittleEndian, &archiveCount); err != nil {
		return nil, fmt.Errorf("reading archive count: %w", err)
	}
	idx.Archives = make([]Archive, 0, archiveCount)
	for i := uint32(0); i < archiveCount; i++ {
		var strLen uint32
		if err := binary.Read(br, binary.LittleEndian, &strLen); err != nil {
			return nil, fmt.Errorf("reading archive %d path length: %w", i, err)
		}
		path := make([]byte, strLen)
		if _, err := io.ReadFull(br, path); err != nil {
			return nil, fmt.Errorf("reading archive %d path: %w", i, err)
		}
		idx.Archives = append(idx.Archives, Archive{Path: string(path)})
	}
	var fileCount uint32
	if err := binary.Read(br, binary.LittleEndian, &fileCount); err != nil {
		return nil, fmt.Errorf("reading file count: %w", err)
	}
	idx.Files = make(map[uint32]FileRef, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		var ref FileRef
		if err := binary.Read(br, binary.LittleEndian, &ref); err != nil {
			return nil, fmt.Errorf("reading file ref %d: %w", i, err)
		}
		idx.Files[ref.Crc] = ref
	}
	return idx, nil
}

// LoadFile opens and parses the pack index at path.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	idx, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}
