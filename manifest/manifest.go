// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

/*
Package manifest loads the line-oriented trunk.txt manifest: the
authoritative list of relative file paths making up a complete client,
each with its declared size and content hash. The declared hash is
informational here; extraction never verifies it.
*/
package manifest

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// MD5 is a fixed-width MD5 digest as declared by the manifest.
type MD5 [16]byte

// ParseMD5 decodes a 32-character hex string.
func ParseMD5(s string) (MD5, error) {
	var d MD5
	if len(s) != hex.EncodedLen(len(d)) {
		return d, fmt.Errorf("md5 digest must be %d hex characters, got %d", hex.EncodedLen(len(d)), len(s))
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, err
	}
	return d, nil
}

func (d MD5) String() string {
	return hex.EncodeToString(d[:])
}

// Entry is one manifest line: a relative path with its declared size
// and content hash. Paths use backslash separators as written.
type Entry struct {
	Path string
	Size uint32
	Hash MD5
}

// Manifest is the parsed trunk.txt. Files preserves manifest order,
// which downstream planning relies on for deterministic output.
type Manifest struct {
	Version uint32
	Files   []Entry
}

// Load parses a manifest from r. Section headers are bracketed lines;
// blank lines and '#' comments are skipped. File lines are
// "path,size,md5hex" with any extra fields ignored.
func Load(r io.Reader) (*Manifest, error) {
	m := &Manifest{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	section := ""
	versionSeen := false
	for num := 1; scanner.Scan(); num++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(line[1 : len(line)-1])
			continue
		}
		switch section {
		case "version":
			if versionSeen {
				continue
			}
			fields := strings.Split(line, ",")
			v, err := strconv.ParseUint(fields[0], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("manifest line %d: bad version %q: %w", num, fields[0], err)
			}
			m.Version = uint32(v)
			versionSeen = true
		case "files":
			entry, err := parseFileLine(line)
			if err != nil {
				return nil, fmt.Errorf("manifest line %d: %w", num, err)
			}
			m.Files = append(m.Files, entry)
		default:
			// unknown sections are tolerated for format drift
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseFileLine(line string) (Entry, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 3 {
		return Entry{}, fmt.Errorf("file line has %d fields, want at least 3", len(fields))
	}
	size, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Entry{}, fmt.Errorf("bad size %q: %w", fields[1], err)
	}
	hash, err := ParseMD5(fields[2])
	if err != nil {
		return Entry{}, fmt.Errorf("bad hash %q: %w", fields[2], err)
	}
	return Entry{Path: fields[0], Size: uint32(size), Hash: hash}, nil
}

// LoadFile opens and parses the manifest at path.
func LoadFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
