// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

// This file implements DEFLATE block header parsing and Huffman table
// setup for the tick-stepped engine. It handles stored, static and dynamic
// blocks as specified in RFC 1951.
package flate

import (
	"github.com/pkg/errors"

	"github.com/intel/tickflate/compress/flate/internal/deflate"
)

const (
	maxLiteralCodes  = 286 // HLIT above this is rejected
	maxDistanceCodes = 30
)

// readHeader decodes BFINAL and BTYPE and dispatches on the block type.
func (e *Engine) readHeader() error {
	if e.stall() {
		return nil
	}
	hdr, err := e.br.peek(0, 3)
	if err != nil {
		return err
	}
	e.final = hdr&1 == 1
	e.method = hdr >> 1
	e.stats.Blocks++
	e.log.Debugf("block %d: final %t, type %d", e.stats.Blocks, e.final, e.method)

	switch e.method {
	case methodStored:
		// Skip the header and the padding to the next byte boundary. A header
		// that straddles a byte boundary pushes the skip one byte further.
		skip := 8 - e.br.dio
		if skip <= 2 {
			skip = 16 - e.br.dio
		}
		length, err := e.br.peek(skip, 16)
		if err != nil {
			return err
		}
		if err := e.br.advance(skip + 16); err != nil {
			return err
		}
		e.length = int(length)
		e.cur = 0
		e.state = stateStoredLen
	case methodStatic:
		if err := e.br.advance(3); err != nil {
			return err
		}
		e.state = stateStatic
	case methodDynamic:
		if err := e.br.advance(3); err != nil {
			return err
		}
		e.state = stateBlockCounts
	default:
		return errors.Wrapf(ErrFormat, "invalid block type %d", e.method)
	}
	return nil
}

// readStoredLen checks NLEN against LEN.
func (e *Engine) readStoredLen() error {
	if e.stall() {
		return nil
	}
	nlen, err := e.br.take(16)
	if err != nil {
		return err
	}
	if nlen != ^uint32(e.length)&0xffff {
		return errors.Wrapf(ErrFormat, "stored block LEN %#04x does not match NLEN %#04x", e.length, nlen)
	}
	if e.length == 0 {
		e.endBlock()
		return nil
	}
	e.state = stateStoredCopy
	return nil
}

// copyStored moves one stored byte per tick.
func (e *Engine) copyStored() error {
	if e.stall() {
		return nil
	}
	if e.do >= len(e.out) {
		return errors.Wrapf(ErrOutputFull, "at %d", e.do)
	}
	b, err := e.br.take(8)
	if err != nil {
		return err
	}
	e.out[e.do] = byte(b)
	e.do++
	e.cur++
	if e.cur == e.length {
		e.endBlock()
	}
	return nil
}

func (e *Engine) endBlock() {
	if e.final {
		e.finish()
		return
	}
	e.state = stateHeader
}

// setupStatic starts building the fixed literal/length table. Static
// distances are read as 5 reversed bits and need no table.
func (e *Engine) setupStatic() error {
	fixedLitLengths(e.lens[:maxLitLen])
	after := stateNext
	if e.compress {
		after = stateZlibHeader
		if e.cfg.Raw {
			after = stateBlockStart
		}
	}
	return e.startBuild(&e.lit, e.lens[:maxLitLen], after)
}

// readBlockCounts reads HLIT, HDIST and HCLEN.
func (e *Engine) readBlockCounts() error {
	if e.stall() {
		return nil
	}
	v, err := e.br.take(14)
	if err != nil {
		return err
	}
	e.numLiterals = int(v&0x1f) + 257
	e.numDistance = int(v>>5&0x1f) + 1
	e.numCodeLengthGiven = int(v>>10) + 4
	if e.numLiterals > maxLiteralCodes || e.numDistance > maxDistanceCodes {
		return errors.Wrapf(ErrFormat, "too many length or distance codes: %d, %d", e.numLiterals, e.numDistance)
	}
	e.cur = 0
	e.state = stateCodeLengthCodes
	return nil
}

// readCodeLengthCodes fills one code length alphabet entry per tick, in
// transmission order. Entries past HCLEN are zero.
func (e *Engine) readCodeLengthCodes() error {
	if e.cur == numCodeLengthCodes {
		e.numCodeLength = 0
		return e.startBuild(&e.clc, e.clcLens[:], stateReadLengths)
	}
	var n uint32
	if e.cur < e.numCodeLengthGiven {
		if e.stall() {
			return nil
		}
		var err error
		if n, err = e.br.take(3); err != nil {
			return err
		}
	}
	e.clcLens[deflate.CodeLengthOrder[e.cur]] = uint8(n)
	e.cur++
	return nil
}

// readLengths decodes one code length alphabet symbol and its repeat count.
func (e *Engine) readLengths() error {
	total := e.numLiterals + e.numDistance
	if e.numCodeLength >= total {
		if e.lens[deflate.EndOfBlock] == 0 {
			return errors.Wrap(ErrFormat, "no code for end of block")
		}
		return e.startBuild(&e.lit, e.lens[:e.numLiterals], stateDistTree)
	}
	if e.stall() {
		return nil
	}
	cand, err := e.br.peek(0, e.clc.maxBits)
	if err != nil {
		return err
	}
	l, err := e.clc.lookup(cand)
	if err != nil {
		return err
	}
	n := l.bits()
	var extra uint
	switch sym := l.symbol(); {
	case sym < 16:
		e.lastToken = uint8(sym)
		e.howOften = 1
	case sym == 16:
		if e.numCodeLength == 0 {
			return errors.Wrap(ErrFormat, "repeat with no previous length")
		}
		e.lastToken = e.lens[e.numCodeLength-1]
		extra = 2
		v, err := e.br.peek(n, extra)
		if err != nil {
			return err
		}
		e.howOften = 3 + int(v)
	case sym == 17:
		e.lastToken = 0
		extra = 3
		v, err := e.br.peek(n, extra)
		if err != nil {
			return err
		}
		e.howOften = 3 + int(v)
	case sym == 18:
		e.lastToken = 0
		extra = 7
		v, err := e.br.peek(n, extra)
		if err != nil {
			return err
		}
		e.howOften = 11 + int(v)
	default:
		return errors.Wrapf(ErrFormat, "invalid code length symbol %d", sym)
	}
	if err := e.br.advance(n + extra); err != nil {
		return err
	}
	e.state = stateRepeat
	return nil
}

// repeatLength stores one code length per tick.
func (e *Engine) repeatLength() error {
	if e.numCodeLength >= e.numLiterals+e.numDistance {
		return errors.Wrapf(ErrFormat, "code lengths overrun %d entries", e.numLiterals+e.numDistance)
	}
	e.lens[e.numCodeLength] = e.lastToken
	e.numCodeLength++
	e.howOften--
	if e.howOften == 0 {
		e.state = stateReadLengths
	}
	return nil
}

// setupDistTree builds the distance table from the lengths that follow
// the literal/length lengths.
func (e *Engine) setupDistTree() error {
	return e.startBuild(&e.dist, e.lens[e.numLiterals:e.numLiterals+e.numDistance], stateNext)
}
