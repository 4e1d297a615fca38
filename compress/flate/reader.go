// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"compress/flate"
	"io"

	"github.com/pkg/errors"
)

type (
	Reader   = flate.Reader
	Resetter = flate.Resetter
)

// NewReader returns a raw DEFLATE decompressor. The engine starts at the
// default buffer size and is replaced by larger ones, up to MaxBufferSize,
// when the stream or its output does not fit.
func NewReader(r io.Reader) io.ReadCloser {
	rr, err := NewReaderConfig(r, Config{Raw: true})
	if err != nil {
		// the default config always validates
		panic(err)
	}
	return rr
}

// NewReaderConfig returns a decompressor backed by an engine built from cfg.
// A zero BufferSize lets the reader move to larger engines as NewReader does;
// otherwise the stream and its output must fit the given size.
func NewReaderConfig(r io.Reader, cfg Config) (io.ReadCloser, error) {
	grow := cfg.BufferSize == 0
	e, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &decompressor{engine: e, grow: grow, r: r}, nil
}

type decompressor struct {
	engine  *Engine
	grow    bool
	r       io.Reader
	output  []byte
	readPos int
	err     error
	started bool
}

func (f *decompressor) Reset(under io.Reader, _ []byte) error {
	f.r = under
	f.output = nil
	f.readPos = 0
	f.err = nil
	f.started = false
	return nil
}

func (f *decompressor) Close() error {
	return nil
}

func (f *decompressor) Read(b []byte) (n int, err error) {
	for {
		if len(f.output)-f.readPos > 0 {
			num := copy(b, f.output[f.readPos:])
			f.readPos += num
			if f.readPos == len(f.output) {
				return num, f.err
			}
			return num, nil
		}
		if f.err != nil {
			return 0, f.err
		}
		f.err = f.step()
		if f.err != nil && len(f.output) == f.readPos {
			return 0, f.err
		}
	}
}

// step loads the whole stream, runs the engine once and stages its output.
func (f *decompressor) step() error {
	if f.started {
		return io.EOF
	}
	f.started = true
	capacity := f.engine.Capacity()
	if f.grow {
		capacity = MaxBufferSize
	}
	input, err := io.ReadAll(io.LimitReader(f.r, int64(capacity)+1))
	if err != nil {
		return errors.Wrap(err, "read compressed stream")
	}
	if len(input) > capacity {
		return errors.Wrapf(ErrOverrun, "compressed stream exceeds buffer of %d", capacity)
	}
	if !f.grow {
		f.output, err = f.engine.Decompress(input)
		if err != nil {
			return err
		}
		f.readPos = 0
		return io.EOF
	}
	if len(input) > f.engine.Capacity() {
		cfg := f.engine.Config()
		cfg.BufferSize = 0
		e, err := NewEngine(fitBuffer(cfg, len(input)))
		if err != nil {
			return err
		}
		f.engine = e
	}
	f.engine, f.output, err = decompressFit(f.engine, input)
	if err != nil {
		return err
	}
	f.readPos = 0
	return io.EOF
}

// Decompress decodes a whole stream with an engine built from cfg. A zero
// BufferSize starts from the smallest engine that holds p and doubles it,
// up to MaxBufferSize, while the output does not fit.
func Decompress(p []byte, cfg Config) ([]byte, error) {
	grow := cfg.BufferSize == 0
	e, err := NewEngine(fitBuffer(cfg, len(p)))
	if err != nil {
		return nil, err
	}
	if !grow {
		return e.Decompress(p)
	}
	_, out, err := decompressFit(e, p)
	return out, err
}

// decompressFit decodes p, moving to an engine with twice the buffer size
// after each ErrOutputFull until MaxBufferSize. It returns the engine that
// produced the result.
func decompressFit(e *Engine, p []byte) (*Engine, []byte, error) {
	for {
		out, err := e.Decompress(p)
		if !errors.Is(err, ErrOutputFull) || e.Capacity() >= MaxBufferSize {
			return e, out, err
		}
		cfg := e.Config()
		cfg.BufferSize = e.Capacity() << 1
		next, nerr := NewEngine(cfg)
		if nerr != nil {
			return e, nil, nerr
		}
		e.log.Debugf("output exceeds buffer of %d, retrying with %d", e.Capacity(), cfg.BufferSize)
		e = next
	}
}

// fitBuffer picks the smallest power of two buffer, at least the default,
// that holds n bytes.
func fitBuffer(cfg Config, n int) Config {
	if cfg.BufferSize != 0 {
		return cfg
	}
	size := DefaultBufferSize
	for size < n && size < MaxBufferSize {
		size <<= 1
	}
	cfg.BufferSize = size
	return cfg
}
