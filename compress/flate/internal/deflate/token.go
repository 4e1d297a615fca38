// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package deflate

import (
	"math/bits"
)

// RFC 1951 section 3.2.5 tables. Length symbols are indexed by symbol-257,
// distance extra bits by code>>1.
var (
	CopyLength = [29]uint16{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31, 35,
		43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
	}

	ExtraLengthBits = [29]uint8{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
	}

	CopyDistance = [30]uint16{
		0x0001, 0x0002, 0x0003, 0x0004, 0x0005, 0x0007, 0x0009, 0x000d,
		0x0011, 0x0019, 0x0021, 0x0031, 0x0041, 0x0061, 0x0081, 0x00c1,
		0x0101, 0x0181, 0x0201, 0x0301, 0x0401, 0x0601, 0x0801, 0x0c01,
		0x1001, 0x1801, 0x2001, 0x3001, 0x4001, 0x6001,
	}

	ExtraDistanceBits = [15]uint8{0, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}

	// CodeLengthOrder is the order of the code length alphabet lengths
	// in a dynamic block header.
	CodeLengthOrder = [19]uint8{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}
)

const (
	EndOfBlock     = 256
	FirstLengthSym = 257
	LastLengthSym  = 285
	NumDistCodes   = 30
)

// DistExtraBits returns how many extra bits follow distance code sym.
func DistExtraBits(sym uint32) uint {
	return uint(ExtraDistanceBits[sym>>1])
}

// LengthSymbol maps a match length in [3,258] to its literal/length symbol
// and the extra bits that refine it.
func LengthSymbol(length int) (sym uint32, extra uint32, extraBits uint) {
	i := len(CopyLength) - 1
	for int(CopyLength[i]) > length {
		i--
	}
	return uint32(FirstLengthSym + i), uint32(length - int(CopyLength[i])), uint(ExtraLengthBits[i])
}

// DistSymbol maps a distance in [1,32768] to its distance code and the value
// of its extra bits.
func DistSymbol(dist uint32) (sym uint32, extraBits uint32) {
	if dist <= 2 {
		return dist - 1, 0
	}
	dist--
	msb := 32 - bits.LeadingZeros32(dist)
	numExtraBits := uint32(msb - 2)
	extraBits = dist & ((1 << numExtraBits) - 1)
	dist >>= numExtraBits
	sym = dist + 2*numExtraBits
	return sym, extraBits
}

// ReverseBits reverses the low n bits of code. DEFLATE transmits Huffman
// codes MSB first inside an LSB-first stream.
func ReverseBits(code uint32, n uint) uint32 {
	return uint32(bits.Reverse16(uint16(code)) >> (16 - n))
}
