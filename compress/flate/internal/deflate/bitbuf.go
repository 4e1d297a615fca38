// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package deflate

import (
	"github.com/pkg/errors"
)

// MaxPutWidth is the widest code a single Put may pack. Static literal/length
// codes are at most 9 bits, so wider values are split by the caller.
const MaxPutWidth = 9

var (
	ErrCodeWidth  = errors.New("code wider than its bit width")
	ErrBufferFull = errors.New("output buffer full")
)

// BitBuf packs LSB-first codes into a fixed output buffer. The partial byte
// is held in bits/bitLen across calls and only whole bytes reach output.
type BitBuf struct {
	output []byte
	idx    int
	bits   uint32
	bitLen uint
}

func (b *BitBuf) Reset(output []byte) {
	b.output = output
	b.idx = 0
	b.bits = 0
	b.bitLen = 0
}

// Len is the number of bytes emitted so far.
func (b *BitBuf) Len() int {
	return b.idx
}

// Pending is the number of bits waiting for a byte boundary.
func (b *BitBuf) Pending() uint {
	return b.bitLen
}

// Put appends the low width bits of value.
func (b *BitBuf) Put(value uint32, width uint) error {
	if width > MaxPutWidth {
		return errors.Wrapf(ErrCodeWidth, "width %d > %d", width, MaxPutWidth)
	}
	if value >= 1<<width {
		return errors.Wrapf(ErrCodeWidth, "value %#x does not fit in %d bits", value, width)
	}
	b.bits |= value << b.bitLen
	b.bitLen += width
	for b.bitLen >= 8 {
		if err := b.emit(byte(b.bits)); err != nil {
			return err
		}
		b.bits >>= 8
		b.bitLen -= 8
	}
	return nil
}

// PutWide splits value into MaxPutWidth chunks, low bits first.
func (b *BitBuf) PutWide(value uint32, width uint) error {
	for width > MaxPutWidth {
		if err := b.Put(value&(1<<MaxPutWidth-1), MaxPutWidth); err != nil {
			return err
		}
		value >>= MaxPutWidth
		width -= MaxPutWidth
	}
	return b.Put(value, width)
}

// Flush emits the trailing partial byte, zero padded.
func (b *BitBuf) Flush() error {
	if b.bitLen == 0 {
		return nil
	}
	if err := b.emit(byte(b.bits)); err != nil {
		return err
	}
	b.bits = 0
	b.bitLen = 0
	return nil
}

func (b *BitBuf) emit(c byte) error {
	if b.idx >= len(b.output) {
		return errors.Wrapf(ErrBufferFull, "at byte %d", b.idx)
	}
	b.output[b.idx] = c
	b.idx++
	return nil
}
