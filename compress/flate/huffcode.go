// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"github.com/pkg/errors"

	"github.com/intel/tickflate/compress/flate/internal/deflate"
)

const (
	maxCodeLen         = 15
	instantMaxBit      = 10 // widest index into the spread-filled region
	maxLitLen          = 288
	maxDist            = 32
	numCodeLengthCodes = 19
	clearChunk         = 64 // leaf slots cleared per builder step
)

// leaf packs a decoded symbol with its code length.
//
// | Name   | Bits  |
// | ------ | ----- |
// | Length | 0-4   |
// | Symbol | 5-13  |
type leaf uint32

const (
	leafBitsLen  = 5
	leafBitsMask = 1<<leafBitsLen - 1
)

func makeLeaf(sym int, bits uint) leaf {
	return leaf(uint32(sym)<<leafBitsLen | uint32(bits))
}

func (l leaf) bits() uint {
	return uint(l & leafBitsMask)
}

func (l leaf) symbol() uint32 {
	return uint32(l) >> leafBitsLen
}

// huffTable is a canonical Huffman decode table indexed by bit-reversed
// codes. Slots below instantMask hold every code of at most instantMaxBit
// bits, replicated over all higher-bit combinations; longer codes sit only
// at their own reversed index and are found by probing wider masks.
//
// codes/lengths keep the per-symbol reversed code for encoding.
type huffTable struct {
	leaves        [1 << maxCodeLen]leaf
	codes         [maxLitLen]uint16
	lengths       [maxLitLen]uint8
	numSymbols    int
	minBits       uint
	maxBits       uint
	instantMaxBit uint
	instantMask   uint32
}

func (t *huffTable) reset() {
	t.numSymbols = 0
	t.minBits = 0
	t.maxBits = 0
	t.instantMaxBit = 0
	t.instantMask = 0
}

// lookup resolves the leaf for cand, the next maxBits bits of input.
func (t *huffTable) lookup(cand uint32) (leaf, error) {
	if t.maxBits == 0 {
		return 0, errors.Wrap(ErrUnresolvedCode, "empty table")
	}
	l := t.leaves[cand&t.instantMask]
	for width := t.instantMaxBit; ; width++ {
		if n := l.bits(); n != 0 && n <= width {
			return l, nil
		}
		if width >= t.maxBits {
			break
		}
		l = t.leaves[cand&(1<<(width+1)-1)]
	}
	return 0, errors.Wrapf(ErrUnresolvedCode, "no code matches %#x", cand)
}

// code returns the reversed code and length used to emit sym.
func (t *huffTable) code(sym uint32) (uint32, uint) {
	if t.maxBits == 0 || int(sym) >= t.numSymbols {
		return 0, 0
	}
	return uint32(t.codes[sym]), uint(t.lengths[sym])
}

type buildPhase uint8

const (
	phaseHistogram buildPhase = iota
	phaseBounds
	phaseClear
	phaseFirstCodes
	phaseAssign
	phaseSpread
	phaseBuilt
)

// tableBuilder fills a huffTable from a code length array one unit of work
// per step: a symbol in the histogram and assignment phases, a length in
// the bounds and first-code phases, clearChunk leaf slots while clearing,
// a slot while spreading.
type tableBuilder struct {
	table   *huffTable
	lengths []uint8
	phase   buildPhase
	cur     int
	code    uint32
	count   [maxCodeLen + 1]uint16
	next    [maxCodeLen + 1]uint32
	spread  uint32
	stride  uint32
}

func (b *tableBuilder) start(t *huffTable, lengths []uint8) error {
	if len(lengths) > maxLitLen {
		return errors.Wrapf(ErrBuilder, "%d symbols exceed table capacity %d", len(lengths), maxLitLen)
	}
	t.reset()
	t.numSymbols = len(lengths)
	*b = tableBuilder{table: t, lengths: lengths}
	return nil
}

// step does one unit of work and reports whether the table is complete.
func (b *tableBuilder) step() (bool, error) {
	t := b.table
	switch b.phase {
	case phaseHistogram:
		if b.cur < len(b.lengths) {
			n := b.lengths[b.cur]
			if n > maxCodeLen {
				return false, errors.Wrapf(ErrBuilder, "symbol %d has code length %d", b.cur, n)
			}
			b.count[n]++
			b.cur++
			return false, nil
		}
		b.count[0] = 0
		t.minBits = maxCodeLen
		t.maxBits = 0
		b.cur = 1
		b.phase = phaseBounds

	case phaseBounds:
		if b.cur <= maxCodeLen {
			if b.count[b.cur] != 0 {
				if uint(b.cur) < t.minBits {
					t.minBits = uint(b.cur)
				}
				if uint(b.cur) > t.maxBits {
					t.maxBits = uint(b.cur)
				}
			}
			b.cur++
			return false, nil
		}
		if t.maxBits == 0 {
			// No symbol in use. Lookups fail with ErrUnresolvedCode.
			t.minBits = 0
			b.phase = phaseBuilt
			return true, nil
		}
		t.instantMaxBit = min(instantMaxBit, t.maxBits)
		t.instantMask = 1<<t.instantMaxBit - 1
		b.cur = 0
		b.phase = phaseClear

	case phaseClear:
		size := 1 << t.maxBits
		end := min(b.cur+clearChunk, size)
		clear(t.leaves[b.cur:end])
		b.cur = end
		if end == size {
			b.code = 0
			b.cur = int(t.minBits)
			b.phase = phaseFirstCodes
		}

	case phaseFirstCodes:
		if b.cur <= int(t.maxBits) {
			b.code = (b.code + uint32(b.count[b.cur-1])) << 1
			if b.code+uint32(b.count[b.cur]) > 1<<b.cur {
				return false, errors.Wrapf(ErrFormat, "over-subscribed code lengths at %d bits", b.cur)
			}
			b.next[b.cur] = b.code
			b.cur++
			return false, nil
		}
		b.cur = 0
		b.phase = phaseAssign

	case phaseAssign:
		if b.cur >= len(b.lengths) {
			b.phase = phaseBuilt
			return true, nil
		}
		n := uint(b.lengths[b.cur])
		if n == 0 {
			t.codes[b.cur] = 0
			t.lengths[b.cur] = 0
			b.cur++
			return false, nil
		}
		canonical := b.next[n]
		b.next[n]++
		reverse := deflate.ReverseBits(canonical, n)
		t.leaves[reverse] = makeLeaf(b.cur, n)
		t.codes[b.cur] = uint16(reverse)
		t.lengths[b.cur] = uint8(n)
		if n <= t.instantMaxBit && reverse+1<<n <= t.instantMask {
			b.stride = 1 << n
			b.spread = reverse + b.stride
			b.phase = phaseSpread
			return false, nil
		}
		b.cur++

	case phaseSpread:
		t.leaves[b.spread] = makeLeaf(b.cur, uint(b.lengths[b.cur]))
		if b.spread+b.stride > t.instantMask {
			b.cur++
			b.phase = phaseAssign
		} else {
			b.spread += b.stride
		}

	case phaseBuilt:
		return true, nil
	}
	return false, nil
}

// build runs every remaining step.
func (b *tableBuilder) build() error {
	for {
		done, err := b.step()
		if err != nil || done {
			return err
		}
	}
}

// buildTable builds t from lengths in one call.
func buildTable(t *huffTable, lengths []uint8) error {
	var b tableBuilder
	if err := b.start(t, lengths); err != nil {
		return err
	}
	return b.build()
}

// fixedLitLengths seeds the RFC 1951 static literal/length code lengths.
func fixedLitLengths(lengths []uint8) {
	for i := 0; i < 144; i++ {
		lengths[i] = 8
	}
	for i := 144; i < 256; i++ {
		lengths[i] = 9
	}
	for i := 256; i < 280; i++ {
		lengths[i] = 7
	}
	for i := 280; i < maxLitLen; i++ {
		lengths[i] = 8
	}
}
