// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package deflate

import (
	"encoding/binary"
	"math/bits"
)

const (
	MinMatch   = 4
	MaxMatch   = 258
	WindowSize = 32 * 1024

	hashBits = 12
	hashMask = 1<<hashBits - 1
)

// Matcher finds LZ77 back-references with a single-entry hash table over
// 4-byte prefixes. It does bounded work per call: one probe and at most
// MaxMatch byte comparisons.
type Matcher struct {
	table [1 << hashBits]int32 // position+1, 0 is empty
}

func (m *Matcher) Reset() {
	for i := range m.table {
		m.table[i] = 0
	}
}

func hash4(data uint32) uint32 {
	const prime = 0xB2D06057
	var hash uint64
	hash = uint64(data)
	hash *= prime
	hash >>= 16
	hash *= prime
	hash >>= 16
	return uint32(hash)
}

// Find records pos in the hash table and returns the match found for
// input[pos:], or a zero length when there is none.
func (m *Matcher) Find(input []byte, pos int) (length int, dist int) {
	if pos+MinMatch > len(input) {
		return 0, 0
	}
	h := hash4(binary.LittleEndian.Uint32(input[pos:])) & hashMask
	prev := int(m.table[h]) - 1
	m.table[h] = int32(pos + 1)
	if prev < 0 {
		return 0, 0
	}
	dist = pos - prev
	if dist <= 0 || dist > WindowSize {
		return 0, 0
	}
	maxLength := len(input) - pos
	if maxLength > MaxMatch {
		maxLength = MaxMatch
	}
	length = compare(input, prev, pos, maxLength)
	if length < MinMatch {
		return 0, 0
	}
	return length, dist
}

// Insert records pos without searching. Used for positions covered by a match.
func (m *Matcher) Insert(input []byte, pos int) {
	if pos+MinMatch > len(input) {
		return
	}
	h := hash4(binary.LittleEndian.Uint32(input[pos:])) & hashMask
	m.table[h] = int32(pos + 1)
}

func compare(input []byte, prev, curr int, maxLength int) (match int) {
	i := 0
	for ; i+8 <= maxLength; i += 8 {
		test := binary.LittleEndian.Uint64(input[prev+i:])
		test ^= binary.LittleEndian.Uint64(input[curr+i:])
		if test != 0 {
			return i + bits.TrailingZeros64(test)/8
		}
	}
	for ; i < maxLength; i++ {
		if input[prev+i] != input[curr+i] {
			return i
		}
	}
	return maxLength
}
