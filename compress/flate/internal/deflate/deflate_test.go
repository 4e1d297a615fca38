// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package deflate

import (
	"bytes"
	"compress/flate"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func opticks(t testing.TB) (data []byte) {
	data, _ = os.ReadFile(filepath.Join(runtime.GOROOT(), "src", "testdata", "Isaac.Newton-Opticks.txt"))
	if data == nil {
		t.Skip("skip for no test data file")
	}
	return data
}

// staticCode returns the reversed RFC 1951 fixed code for a literal/length
// symbol.
func staticCode(sym uint32) (uint32, uint) {
	switch {
	case sym < 144:
		return ReverseBits(0x30+sym, 8), 8
	case sym < 256:
		return ReverseBits(0x190+sym-144, 9), 9
	case sym < 280:
		return ReverseBits(sym-256, 7), 7
	}
	return ReverseBits(0xc0+sym-280, 8), 8
}

func TestBitBufPut(t *testing.T) {
	out := make([]byte, 4)
	var b BitBuf
	b.Reset(out)
	require.NoError(t, b.Put(0b101, 3))
	require.NoError(t, b.Put(0b11111, 5))
	require.Equal(t, 1, b.Len())
	require.Equal(t, byte(0b11111_101), out[0])

	require.NoError(t, b.Put(0x1ff, 9))
	require.Equal(t, 2, b.Len())
	require.Equal(t, uint(1), b.Pending())
	require.NoError(t, b.Flush())
	require.Equal(t, []byte{0xfd, 0xff, 0x01}, out[:b.Len()])
	require.NoError(t, b.Flush())
	require.Equal(t, 3, b.Len())
}

func TestBitBufRejects(t *testing.T) {
	var b BitBuf
	b.Reset(make([]byte, 1))
	require.ErrorIs(t, b.Put(0, 10), ErrCodeWidth)
	require.ErrorIs(t, b.Put(4, 2), ErrCodeWidth)
	require.NoError(t, b.Put(0xff, 8))
	require.ErrorIs(t, b.Put(0xff, 8), ErrBufferFull)
}

func TestBitBufPutWide(t *testing.T) {
	out := make([]byte, 4)
	var b BitBuf
	b.Reset(out)
	require.NoError(t, b.PutWide(0x1abc, 13))
	require.NoError(t, b.PutWide(0x7, 3))
	require.Equal(t, []byte{0xbc, 0xfa}, out[:b.Len()])
}

func TestLengthSymbol(t *testing.T) {
	for length := 3; length <= MaxMatch; length++ {
		sym, extra, nb := LengthSymbol(length)
		require.GreaterOrEqual(t, sym, uint32(FirstLengthSym))
		require.LessOrEqual(t, sym, uint32(LastLengthSym))
		i := sym - FirstLengthSym
		require.Equal(t, uint(ExtraLengthBits[i]), nb)
		require.Less(t, extra, uint32(1)<<nb)
		require.Equal(t, length, int(CopyLength[i])+int(extra))
	}
	sym, _, nb := LengthSymbol(MaxMatch)
	require.Equal(t, uint32(LastLengthSym), sym)
	require.Zero(t, nb)
}

func TestDistSymbol(t *testing.T) {
	for dist := uint32(1); dist <= WindowSize; dist++ {
		sym, extra := DistSymbol(dist)
		require.Less(t, sym, uint32(NumDistCodes))
		nb := DistExtraBits(sym)
		require.Less(t, extra, uint32(1)<<nb)
		require.Equal(t, dist, uint32(CopyDistance[sym])+extra)
	}
}

func TestReverseBits(t *testing.T) {
	require.Equal(t, uint32(0b001), ReverseBits(0b100, 3))
	require.Equal(t, uint32(0b1011), ReverseBits(0b1101, 4))
	require.Equal(t, uint32(0x0c), ReverseBits(0x30, 8))
}

func TestMatcher(t *testing.T) {
	input := []byte("abcdefgh-abcdefgh-abcd")
	var m Matcher
	length, _ := m.Find(input, 0)
	require.Zero(t, length)
	length, dist := m.Find(input, 9)
	require.Equal(t, 9, dist)
	require.Equal(t, len(input)-9, length)

	m.Reset()
	length, _ = m.Find(input, 9)
	require.Zero(t, length)
}

func TestMatcherShortTail(t *testing.T) {
	var m Matcher
	length, _ := m.Find([]byte("abc"), 0)
	require.Zero(t, length)
	m.Insert([]byte("abc"), 0)
}

// A static block written symbol by symbol must read back through the
// standard library.
func TestStaticStream(t *testing.T) {
	for _, source := range [][]byte{
		nil,
		[]byte("a"),
		bytes.Repeat([]byte("tick tock "), 200),
		opticks(t)[:1<<14],
	} {
		out := make([]byte, 2*len(source)+16)
		var b BitBuf
		b.Reset(out)
		var m Matcher
		require.NoError(t, b.Put(3, 3))
		for pos := 0; pos < len(source); {
			if length, dist := m.Find(source, pos); length > 0 {
				sym, extra, nb := LengthSymbol(length)
				require.NoError(t, b.Put(staticCode(sym)))
				require.NoError(t, b.PutWide(extra, nb))
				dsym, dextra := DistSymbol(uint32(dist))
				require.NoError(t, b.Put(ReverseBits(dsym, 5), 5))
				require.NoError(t, b.PutWide(dextra, DistExtraBits(dsym)))
				pos += length
				continue
			}
			require.NoError(t, b.Put(staticCode(uint32(source[pos]))))
			pos++
		}
		require.NoError(t, b.Put(staticCode(EndOfBlock)))
		require.NoError(t, b.Flush())

		data, err := io.ReadAll(flate.NewReader(bytes.NewReader(out[:b.Len()])))
		require.NoError(t, err)
		require.Equal(t, len(source), len(data))
		require.True(t, bytes.Equal(source, data))
	}
}

func BenchmarkMatcher(b *testing.B) {
	data := opticks(b)[:1<<15]
	var m Matcher
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		m.Reset()
		for pos := 0; pos < len(data); {
			length, _ := m.Find(data, pos)
			if length == 0 {
				length = 1
			}
			pos += length
		}
	}
}
