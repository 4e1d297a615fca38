// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"github.com/pkg/errors"

	"github.com/intel/tickflate/compress/flate/internal/deflate"
)

const (
	zlibCMF = 0x78 // deflate, 32K window
	zlibFLG = 0x9c // default level, check bits
)

// put emits a code through the bit writer and maps its faults.
func (e *Engine) put(value uint32, width uint) error {
	return encodeFault(e.bw.PutWide(value, width))
}

func encodeFault(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, deflate.ErrBufferFull):
		return errors.Wrap(ErrOverrun, err.Error())
	case errors.Is(err, deflate.ErrCodeWidth):
		return errors.Wrap(ErrFormat, err.Error())
	}
	return err
}

func (e *Engine) writeZlibHeader() error {
	if err := e.put(zlibCMF, 8); err != nil {
		return err
	}
	if err := e.put(zlibFLG, 8); err != nil {
		return err
	}
	e.state = stateBlockStart
	return nil
}

// writeBlockStart emits BFINAL=1, BTYPE=01.
func (e *Engine) writeBlockStart() error {
	if err := e.put(1|methodStatic<<1, 3); err != nil {
		return err
	}
	e.stats.Blocks++
	e.cur = 0
	e.state = stateEncode
	return nil
}

// encodeToken emits one literal, or one match at BestSpeed.
func (e *Engine) encodeToken() error {
	input := e.in[:e.inputLen]
	if e.cur >= len(input) {
		e.state = stateEndBlock
		return nil
	}
	if e.cfg.Level == BestSpeed {
		if length, dist := e.matcher.Find(input, e.cur); length > 0 {
			if err := e.encodeMatch(length, dist); err != nil {
				return err
			}
			e.adler.Write(input[e.cur : e.cur+length])
			for i := 1; i < length && i < deflate.MinMatch; i++ {
				e.matcher.Insert(input, e.cur+i)
			}
			e.cur += length
			return nil
		}
	}
	code, n := e.lit.code(uint32(input[e.cur]))
	if err := e.put(code, n); err != nil {
		return err
	}
	e.adler.Write(input[e.cur : e.cur+1])
	e.cur++
	return nil
}

func (e *Engine) encodeMatch(length, dist int) error {
	sym, extra, extraBits := deflate.LengthSymbol(length)
	code, n := e.lit.code(sym)
	if err := e.put(code, n); err != nil {
		return err
	}
	if extraBits > 0 {
		if err := e.put(extra, extraBits); err != nil {
			return err
		}
	}
	dsym, dextra := deflate.DistSymbol(uint32(dist))
	if err := e.put(deflate.ReverseBits(dsym, staticDistBits), staticDistBits); err != nil {
		return err
	}
	if nb := deflate.DistExtraBits(dsym); nb > 0 {
		return e.put(dextra, nb)
	}
	return nil
}

// writeEndBlock emits the end-of-block code and pads to a byte boundary.
func (e *Engine) writeEndBlock() error {
	code, n := e.lit.code(deflate.EndOfBlock)
	if err := e.put(code, n); err != nil {
		return err
	}
	if err := encodeFault(e.bw.Flush()); err != nil {
		return err
	}
	if e.cfg.Raw {
		e.finish()
		return nil
	}
	e.state = stateTrailer
	return nil
}

// writeTrailer emits the Adler-32 of the input, big-endian.
func (e *Engine) writeTrailer() error {
	sum := e.adler.Sum32()
	for shift := 24; shift >= 0; shift -= 8 {
		if err := e.put(sum>>shift&0xff, 8); err != nil {
			return err
		}
	}
	e.finish()
	return nil
}
