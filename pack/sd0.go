// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

package pack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

var sd0Magic = []byte("sd0\x01\xff")

// sd0Reader decompresses an sd0 stream: the 5-byte magic followed by
// repeated (u32 length, zlib stream of that many bytes) segments. The
// decompressed segments concatenate to the original payload.
type sd0Reader struct {
	src io.Reader
	z   io.ReadCloser
}

func newSD0Reader(r io.Reader) (io.Reader, error) {
	got := make([]byte, len(sd0Magic))
	if _, err := io.ReadFull(r, got); err != nil {
		return nil, fmt.Errorf("reading sd0 magic: %w", err)
	}
	if !bytes.Equal(got, sd0Magic) {
		return nil, fmt.Errorf("bad sd0 magic %q", got)
	}
	return &sd0Reader{src: r}, nil
}

// next opens the zlib reader for the following segment. Returns io.EOF
// once the source is exhausted.
func (s *sd0Reader) next() error {
	var length uint32
	if err := binary.Read(s.src, binary.LittleEndian, &length); err != nil {
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("truncated sd0 segment header: %w", err)
		}
		return err
	}
	z, err := zlib.NewReader(io.LimitReader(s.src, int64(length)))
	if err != nil {
		return fmt.Errorf("opening sd0 segment: %w", err)
	}
	s.z = z
	return nil
}

func (s *sd0Reader) Read(p []byte) (int, error) {
	for {
		if s.z == nil {
			if err := s.next(); err != nil {
				return 0, err
			}
		}
		n, err := s.z.Read(p)
		if err == io.EOF {
			s.z.Close()
			s.z = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}
