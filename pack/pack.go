// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

/*
Package pack reads pk pack archives: a magic header, concatenated
payload blobs, and a trailing entry directory sorted by path checksum.
The last eight bytes of the file locate the entry directory. Payloads
are either stored raw or wrapped in an sd0 segmented-zlib stream.
*/
package pack

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

var magic = []byte("ndpk\x01\xff\x00")

// Trailer is the fixed-size footer at the end of an archive.
type Trailer struct {
	EntryListAddr uint32
	Revision      uint32
}

// Entry is one record of an archive's entry directory. Lower and Upper
// are on-disk search tree links, carried but unused; lookups binary
// search the directory instead. Only bit 0 of Flags is meaningful and
// marks an sd0-compressed payload.
type Entry struct {
	Crc            uint32
	Lower          int32
	Upper          int32
	OriginalSize   uint32
	OriginalHash   string
	CompressedSize uint32
	CompressedHash string
	DataAddress    uint32
	Flags          uint32
}

// IsCompressed reports whether the payload is stored as an sd0 stream.
func (e Entry) IsCompressed() bool {
	return e.Flags&0x1 != 0
}

// entryRecord is the 100-byte wire layout of an Entry. Hashes are
// stored as 32 hex characters plus 4 bytes of padding.
type entryRecord struct {
	Crc            uint32
	Lower          int32
	Upper          int32
	OriginalSize   uint32
	OriginalHash   [36]byte
	CompressedSize uint32
	CompressedHash [36]byte
	DataAddress    uint32
	Flags          uint32
}

// Reader reads one pack archive from a seekable source. It is not safe
// for concurrent use, and a payload stream returned by Open is only
// valid until the next call on the Reader.
type Reader struct {
	r io.ReadSeeker
}

// NewReader wraps an open archive.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r}
}

// CheckMagic validates the archive signature. Callers are expected to
// tolerate a failure here and continue parsing; a slightly damaged
// archive usually still has an intact entry directory.
func (p *Reader) CheckMagic() error {
	if _, err := p.r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	got := make([]byte, len(magic))
	if _, err := io.ReadFull(p.r, got); err != nil {
		return fmt.Errorf("reading magic: %w", err)
	}
	if !bytes.Equal(got, magic) {
		return fmt.Errorf("bad magic %q, want %q", got, magic)
	}
	return nil
}

// Trailer reads the footer locating the entry directory.
func (p *Reader) Trailer() (Trailer, error) {
	var t Trailer
	if _, err := p.r.Seek(-8, io.SeekEnd); err != nil {
		return t, fmt.Errorf("seeking trailer: %w", err)
	}
	if err := binary.Read(p.r, binary.LittleEndian, &t); err != nil {
		return t, fmt.Errorf("reading trailer: %w", err)
	}
	return t, nil
}

// Entries reads the full entry directory starting at base. The format
// guarantees ascending crc order; this is relied on for binary search
// and not re-verified.
func (p *Reader) Entries(base uint32) ([]Entry, error) {
	if _, err := p.r.Seek(int64(base), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking entry directory: %w", err)
	}
	br := bufio.NewReader(p.r)
	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("reading entry count: %w", err)
	}
	entries := make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		var rec entryRecord
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("reading entry %d: %w", i, err)
		}
		entries = append(entries, Entry{
			Crc:            rec.Crc,
			Lower:          rec.Lower,
			Upper:          rec.Upper,
			OriginalSize:   rec.OriginalSize,
			OriginalHash:   string(rec.OriginalHash[:32]),
			CompressedSize: rec.CompressedSize,
			CompressedHash: string(rec.CompressedHash[:32]),
			DataAddress:    rec.DataAddress,
			Flags:          rec.Flags,
		})
	}
	return entries, nil
}

// Open returns a reader over the entry's payload, decompressing
// transparently when the compressed flag is set. The stream always
// yields OriginalSize bytes on success.
func (p *Reader) Open(e Entry) (io.Reader, error) {
	if _, err := p.r.Seek(int64(e.DataAddress), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking payload: %w", err)
	}
	if e.IsCompressed() {
		return newSD0Reader(io.LimitReader(p.r, int64(e.CompressedSize)))
	}
	return io.LimitReader(p.r, int64(e.OriginalSize)), nil
}
