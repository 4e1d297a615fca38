// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"github.com/pkg/errors"

	"github.com/intel/tickflate/compress/flate/internal/deflate"
)

const staticDistBits = 5

// nextSymbol decodes the next literal/length symbol.
func (e *Engine) nextSymbol() error {
	if e.stall() {
		return nil
	}
	cand, err := e.br.peek(0, e.lit.maxBits)
	if err != nil {
		return err
	}
	l, err := e.lit.lookup(cand)
	if err != nil {
		return err
	}
	if err := e.br.advance(l.bits()); err != nil {
		return err
	}
	e.code = l.symbol()
	e.state = stateInflate
	return nil
}

// inflateSymbol acts on the decoded symbol: a literal is written, end of
// block closes the block, a length code reads its extra bits.
func (e *Engine) inflateSymbol() error {
	switch {
	case e.code < deflate.EndOfBlock:
		if e.do >= len(e.out) {
			return errors.Wrapf(ErrOutputFull, "at %d", e.do)
		}
		e.out[e.do] = byte(e.code)
		e.do++
		e.state = stateNext
	case e.code == deflate.EndOfBlock:
		e.endBlock()
	case e.code <= deflate.LastLengthSym:
		if e.stall() {
			return nil
		}
		i := e.code - deflate.FirstLengthSym
		nb := uint(deflate.ExtraLengthBits[i])
		extra, err := e.br.take(nb)
		if err != nil {
			return err
		}
		e.length = int(deflate.CopyLength[i]) + int(extra)
		e.state = stateDistNext
	default:
		return errors.Wrapf(ErrInvalidToken, "literal/length symbol %d", e.code)
	}
	return nil
}

// nextDistance decodes the distance code. Static blocks carry it as five
// bits, most significant first.
func (e *Engine) nextDistance() error {
	if e.stall() {
		return nil
	}
	var d uint32
	if e.method == methodStatic {
		v, err := e.br.take(staticDistBits)
		if err != nil {
			return err
		}
		d = deflate.ReverseBits(v, staticDistBits)
	} else {
		cand, err := e.br.peek(0, e.dist.maxBits)
		if err != nil {
			return err
		}
		l, err := e.dist.lookup(cand)
		if err != nil {
			return err
		}
		if err := e.br.advance(l.bits()); err != nil {
			return err
		}
		d = l.symbol()
	}
	if d >= deflate.NumDistCodes {
		return errors.Wrapf(ErrFormat, "distance code %d", d)
	}
	e.distCode = d
	e.state = stateDistExtra
	return nil
}

// distanceExtra reads the distance extra bits and sets up the copy.
func (e *Engine) distanceExtra() error {
	if e.stall() {
		return nil
	}
	extra, err := e.br.take(deflate.DistExtraBits(e.distCode))
	if err != nil {
		return err
	}
	e.distance = int(deflate.CopyDistance[e.distCode]) + int(extra)
	if e.distance > e.do {
		return errors.Wrapf(ErrOverrun, "distance %d reaches before output start at %d", e.distance, e.do)
	}
	e.copySrc = e.do - e.distance
	e.cur = 0
	e.state = stateCopy
	return nil
}

// copyMatch copies one byte per tick. Source and destination may overlap,
// so a short distance repeats the bytes it has just written.
func (e *Engine) copyMatch() error {
	if e.do >= len(e.out) {
		return errors.Wrapf(ErrOutputFull, "at %d", e.do)
	}
	e.out[e.do] = e.out[e.copySrc+e.cur]
	e.do++
	e.cur++
	if e.cur == e.length {
		e.state = stateNext
	}
	return nil
}
