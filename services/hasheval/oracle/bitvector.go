// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import (
	"math/bits"
	"strings"
)

// BitVector is a fixed-length sequence of bits.
//
// The zero value is an empty vector. Values are immutable once returned
// by an oracle.
type BitVector struct {
	words []uint64
	n     int
}

// NewBitVector returns an all-zero vector of n bits.
func NewBitVector(n int) BitVector {
	if n < 0 {
		n = 0
	}
	return BitVector{words: make([]uint64, (n+63)/64), n: n}
}

// Len returns the number of bits.
func (v BitVector) Len() int {
	return v.n
}

// Bit reports whether bit i is set. Out-of-range bits read as false.
func (v BitVector) Bit(i int) bool {
	if i < 0 || i >= v.n {
		return false
	}
	return v.words[i/64]&(1<<(uint(i)%64)) != 0
}

// set sets bit i. Only used while an oracle builds a vector.
func (v BitVector) set(i int) {
	v.words[i/64] |= 1 << (uint(i) % 64)
}

// OnesCount returns the number of set bits.
func (v BitVector) OnesCount() int {
	count := 0
	for _, w := range v.words {
		count += bits.OnesCount64(w)
	}
	return count
}

// String renders the bits as '0'/'1' characters, bit 0 first.
func (v BitVector) String() string {
	var b strings.Builder
	b.Grow(v.n)
	for i := 0; i < v.n; i++ {
		if v.Bit(i) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// BitVectorFromString parses a string of '0' and '1'. Any other rune is
// read as '1'; tests use it to write hashes literally.
func BitVectorFromString(s string) BitVector {
	v := NewBitVector(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '0' {
			v.set(i)
		}
	}
	return v
}

// Hamming returns the number of differing bits between a and b.
//
// Vectors of different length are compared over the longer length, with
// the missing tail of the shorter one read as zeros, so the function is
// total and symmetric.
func Hamming(a, b BitVector) int {
	long, short := a.words, b.words
	if len(short) > len(long) {
		long, short = short, long
	}
	distance := 0
	for i, w := range long {
		if i < len(short) {
			w ^= short[i]
		}
		distance += bits.OnesCount64(w)
	}
	return distance
}

var _ Distance[BitVector] = Hamming
