// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intel/tickflate/compress/flate/internal/deflate"
)

// longCodes is a complete code reaching the 15-bit limit.
func longCodes() []uint8 {
	lengths := make([]uint8, 16)
	for i := 0; i < 15; i++ {
		lengths[i] = uint8(i + 1)
	}
	lengths[15] = 15
	return lengths
}

func TestBuildCanonical(t *testing.T) {
	for _, tc := range []struct {
		name    string
		lengths []uint8
	}{
		{"fixed", func() []uint8 {
			l := make([]uint8, maxLitLen)
			fixedLitLengths(l)
			return l
		}()},
		{"long", longCodes()},
		{"rfc example", []uint8{3, 3, 3, 3, 3, 2, 4, 4}},
		{"single", []uint8{0, 0, 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tab := &huffTable{}
			require.NoError(t, buildTable(tab, tc.lengths))

			// Same-length codes are consecutive in symbol order and every
			// longer code sorts after every shorter one.
			var prevCode [maxCodeLen + 1]int64
			for i := range prevCode {
				prevCode[i] = -1
			}
			for sym, n := range tc.lengths {
				if n == 0 {
					continue
				}
				code, bits := tab.code(uint32(sym))
				require.Equal(t, uint(n), bits)
				canonical := int64(deflate.ReverseBits(code, bits))
				if prevCode[n] >= 0 {
					require.Equal(t, prevCode[n]+1, canonical)
				}
				prevCode[n] = canonical
			}
		})
	}
}

func TestBuildRFCExample(t *testing.T) {
	// RFC 1951 section 3.2.2: lengths (3,3,3,3,3,2,4,4) give
	// 010 011 100 101 110 00 1110 1111.
	want := []uint32{0b010, 0b011, 0b100, 0b101, 0b110, 0b00, 0b1110, 0b1111}
	tab := &huffTable{}
	require.NoError(t, buildTable(tab, []uint8{3, 3, 3, 3, 3, 2, 4, 4}))
	for sym, w := range want {
		code, bits := tab.code(uint32(sym))
		require.Equal(t, w, deflate.ReverseBits(code, bits), "symbol %d", sym)
	}
	require.Equal(t, uint(2), tab.minBits)
	require.Equal(t, uint(4), tab.maxBits)
}

// Every index whose low bits carry a symbol's code must resolve to that
// symbol, whether through the instant region or by probing.
func TestLookupExhaustive(t *testing.T) {
	for _, lengths := range [][]uint8{longCodes(), {2, 1, 3, 3}} {
		tab := &huffTable{}
		require.NoError(t, buildTable(tab, lengths))
		for cand := uint32(0); cand < 1<<tab.maxBits; cand++ {
			l, err := tab.lookup(cand)
			require.NoError(t, err)
			code, bits := tab.code(l.symbol())
			require.Equal(t, bits, l.bits())
			require.Equal(t, code, cand&(1<<bits-1))
		}
	}
}

// randomCompleteLengths returns a Kraft-complete length set of used codes
// reaching maxBits, scattered over an alphabet of the given size.
func randomCompleteLengths(rng *rand.Rand, maxBits, used, alphabet int) []uint8 {
	depths := make([]int, 0, used)
	for d := 1; d <= maxBits; d++ {
		depths = append(depths, d)
	}
	depths = append(depths, maxBits)
	for len(depths) < used {
		i := rng.Intn(len(depths))
		if depths[i] == maxBits {
			continue
		}
		// split a leaf into two one level deeper
		depths[i]++
		depths = append(depths, depths[i])
	}
	lengths := make([]uint8, alphabet)
	for i, sym := range rng.Perm(alphabet)[:len(depths)] {
		lengths[sym] = uint8(depths[i])
	}
	return lengths
}

func TestLookupRandomComplete(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	longInInstant := 0
	for maxBits := 11; maxBits <= maxCodeLen; maxBits++ {
		for _, alphabet := range []int{maxDist - 2, maxLitLen} {
			for round := 0; round < 2; round++ {
				used := maxBits + 1 + rng.Intn(alphabet-maxBits)
				lengths := randomCompleteLengths(rng, maxBits, used, alphabet)
				tab := &huffTable{}
				require.NoError(t, buildTable(tab, lengths))
				require.Equal(t, uint(maxBits), tab.maxBits)

				var prevCode [maxCodeLen + 1]int64
				for i := range prevCode {
					prevCode[i] = -1
				}
				for sym, n := range lengths {
					if n == 0 {
						continue
					}
					code, bits := tab.code(uint32(sym))
					canonical := int64(deflate.ReverseBits(code, bits))
					if prevCode[n] >= 0 {
						require.Equal(t, prevCode[n]+1, canonical)
					}
					prevCode[n] = canonical
					if bits > tab.instantMaxBit && code <= tab.instantMask {
						longInInstant++
					}
				}

				for cand := uint32(0); cand < 1<<tab.maxBits; cand++ {
					l, err := tab.lookup(cand)
					require.NoError(t, err)
					code, bits := tab.code(l.symbol())
					require.Equal(t, bits, l.bits())
					require.Equal(t, code, cand&(1<<bits-1), "maxBits %d cand %#x", maxBits, cand)
				}
			}
		}
	}
	require.Positive(t, longInInstant)
}

// A rebuild over a table holding longer codes must not resolve stale leaves.
func TestRebuildClearsLeaves(t *testing.T) {
	tab := &huffTable{}
	require.NoError(t, buildTable(tab, longCodes()))

	var b tableBuilder
	require.NoError(t, b.start(tab, []uint8{2, 0, 0, 2}))
	clearSteps := 0
	for {
		clearing := b.phase == phaseClear
		done, err := b.step()
		require.NoError(t, err)
		if clearing {
			clearSteps++
		}
		if done {
			break
		}
	}
	require.Equal(t, (1<<2+clearChunk-1)/clearChunk, clearSteps)

	for cand := uint32(0); cand < 4; cand++ {
		l, err := tab.lookup(cand)
		if cand&1 == 1 {
			require.ErrorIs(t, err, ErrUnresolvedCode)
			continue
		}
		require.NoError(t, err)
		require.Contains(t, []uint32{0, 3}, l.symbol())
	}
	code, bits := tab.code(1)
	require.Zero(t, code)
	require.Zero(t, bits)

	require.NoError(t, b.start(tab, longCodes()))
	clearSteps = 0
	for {
		clearing := b.phase == phaseClear
		done, err := b.step()
		require.NoError(t, err)
		if clearing {
			clearSteps++
		}
		if done {
			break
		}
	}
	require.Equal(t, 1<<maxCodeLen/clearChunk, clearSteps)
}

func TestInstantSpread(t *testing.T) {
	tab := fixedTable(t)
	// static codes are at most 9 bits, so the instant region covers them all
	require.Equal(t, uint(9), tab.instantMaxBit)
	for sym := uint32(0); sym < maxLitLen; sym++ {
		code, bits := tab.code(sym)
		for high := uint32(0); high < 1<<(tab.instantMaxBit-bits); high++ {
			l := tab.leaves[code|high<<bits]
			require.Equal(t, sym, l.symbol())
			require.Equal(t, bits, l.bits())
		}
	}
}

func TestBuildOverSubscribed(t *testing.T) {
	err := buildTable(&huffTable{}, []uint8{1, 1, 1})
	require.ErrorIs(t, err, ErrFormat)
}

func TestBuildLengthTooLong(t *testing.T) {
	err := buildTable(&huffTable{}, []uint8{16, 1})
	require.ErrorIs(t, err, ErrBuilder)
}

func TestBuildTooManySymbols(t *testing.T) {
	err := buildTable(&huffTable{}, make([]uint8, maxLitLen+1))
	require.ErrorIs(t, err, ErrBuilder)
}

func TestBuildEmpty(t *testing.T) {
	tab := &huffTable{}
	require.NoError(t, buildTable(tab, make([]uint8, 30)))
	_, err := tab.lookup(0)
	require.ErrorIs(t, err, ErrUnresolvedCode)
}

func TestLookupIncomplete(t *testing.T) {
	tab := &huffTable{}
	require.NoError(t, buildTable(tab, []uint8{1}))
	l, err := tab.lookup(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), l.symbol())
	_, err = tab.lookup(1)
	require.ErrorIs(t, err, ErrUnresolvedCode)
}

func TestBuilderSteps(t *testing.T) {
	lengths := longCodes()
	var b tableBuilder
	tab := &huffTable{}
	require.NoError(t, b.start(tab, lengths))
	steps := 0
	for {
		done, err := b.step()
		require.NoError(t, err)
		steps++
		if done {
			break
		}
	}
	// histogram, bounds, first codes and assignment each take a step per
	// item, clearing one per chunk and spreading one per replicated slot.
	require.Greater(t, steps, 2*len(lengths)+2*maxCodeLen)

	done, err := b.step()
	require.NoError(t, err)
	require.True(t, done)
}
