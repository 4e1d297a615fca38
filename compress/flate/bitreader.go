// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	windowBytes  = 4
	windowBits   = windowBytes * 8
	maxPeekWidth = 16
)

// bitReader keeps a 4-byte lookahead window over the input buffer.
// window[0] is in[di]; dio is the bit offset inside it. Bits are read
// LSB first, bytes ascending.
//
// Consuming bits shifts the window and leaves it short; fetch refills one
// byte per tick and peek/advance refuse to run until all four are back.
type bitReader struct {
	in     []byte
	limit  int // bytes written into in
	di     int
	dio    uint
	window [windowBytes]byte
	nb     int
}

func (r *bitReader) reset(in []byte, start, limit int) {
	r.in = in
	r.limit = limit
	r.di = start
	r.dio = 0
	r.nb = 0
	r.window = [windowBytes]byte{}
}

func (r *bitReader) filled() bool {
	return r.nb == windowBytes
}

// fetch loads the next missing window byte. Bytes past the end of the
// buffer read as zero; consuming them is caught by advance.
func (r *bitReader) fetch() {
	if r.nb == windowBytes {
		return
	}
	idx := r.di + r.nb
	var b byte
	if idx < len(r.in) {
		b = r.in[idx]
	}
	r.window[r.nb] = b
	r.nb++
}

// peek returns width bits starting offset bits past the cursor.
func (r *bitReader) peek(offset, width uint) (uint32, error) {
	if r.nb != windowBytes {
		return 0, errors.Wrapf(ErrInternal, "peek with %d window bytes", r.nb)
	}
	if width > maxPeekWidth || r.dio+offset+width > windowBits {
		return 0, errors.Wrapf(ErrInternal, "peek %d+%d bits at bit offset %d", offset, width, r.dio)
	}
	w := binary.LittleEndian.Uint32(r.window[:])
	return (w >> (r.dio + offset)) & (1<<width - 1), nil
}

// advance consumes width bits and drops the whole bytes crossed from the
// window.
func (r *bitReader) advance(width uint) error {
	if r.nb != windowBytes {
		return errors.Wrapf(ErrInternal, "advance with %d window bytes", r.nb)
	}
	pos := r.dio + width
	if pos > windowBits {
		return errors.Wrapf(ErrInternal, "advance %d bits at bit offset %d", width, r.dio)
	}
	shift := int(pos >> 3)
	if (r.di+shift)*8+int(pos&7) > r.limit*8 {
		return errors.Wrapf(ErrOverrun, "input consumed past %d bytes", r.limit)
	}
	r.di += shift
	r.dio = pos & 7
	if shift > 0 {
		copy(r.window[:], r.window[shift:])
		r.nb -= shift
	}
	return nil
}

// take is peek followed by advance.
func (r *bitReader) take(width uint) (uint32, error) {
	v, err := r.peek(0, width)
	if err != nil {
		return 0, err
	}
	return v, r.advance(width)
}
