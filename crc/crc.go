// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

/*
Package crc implements the path checksum that keys both the pack index
and the in-archive entry directories. It is a CRC-32 with the
0x04C11DB7 polynomial in its non-reflected form (initial value
0xFFFFFFFF, no final xor), fed with the path bytes followed by four
zero bytes. The standard library's hash/crc32 only implements reflected
polynomials, so the lookup table is built here.
*/
package crc

const poly = 0x04C11DB7

var table [256]uint32

func init() {
	for i := range table {
		c := uint32(i) << 24
		for bit := 0; bit < 8; bit++ {
			if c&0x80000000 != 0 {
				c = c<<1 ^ poly
			} else {
				c <<= 1
			}
		}
		table[i] = c
	}
}

func update(crc uint32, p []byte) uint32 {
	for _, b := range p {
		crc = crc<<8 ^ table[byte(crc>>24)^b]
	}
	return crc
}

// Sum returns the checksum of p. Paths are hashed exactly as they
// appear in the manifest, backslashes included.
func Sum(p []byte) uint32 {
	var pad [4]byte
	return update(update(0xFFFFFFFF, p), pad[:])
}
