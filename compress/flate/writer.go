// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"io"

	"github.com/pkg/errors"
)

var errWriterClosed = errors.New("flate: write to closed writer")

// Writer buffers everything written to it and emits one static block on
// Close.
type Writer struct {
	engine *Engine
	under  io.Writer
	closed bool
}

// NewWriter creates a raw DEFLATE compressor with the default buffer size.
// Supported levels: HuffmanOnly, BestSpeed and DefaultCompression.
func NewWriter(under io.Writer, level int) (w *Writer, err error) {
	return NewWriterConfig(under, Config{Level: level, Raw: true})
}

// NewWriterConfig creates a compressor backed by an engine built from cfg.
func NewWriterConfig(under io.Writer, cfg Config) (w *Writer, err error) {
	e, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	e.inputLen = 0
	return &Writer{engine: e, under: under}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errWriterClosed
	}
	e := w.engine
	if len(p) > len(e.in)-e.inputLen {
		return 0, errors.Wrapf(ErrOverrun, "%d bytes exceed buffer of %d", e.inputLen+len(p), len(e.in))
	}
	copy(e.in[e.inputLen:], p)
	e.inputLen += len(p)
	return len(p), nil
}

// Close compresses the buffered input and writes it to the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	e := w.engine
	e.StartCompress()
	if _, err := e.Run(); err != nil {
		return err
	}
	_, err := w.under.Write(e.out[:e.ResultLen()])
	return errors.Wrap(err, "write compressed stream")
}

// Reset discards buffered input and switches to a new underlying writer.
func (w *Writer) Reset(under io.Writer) {
	w.under = under
	w.closed = false
	w.engine.inputLen = 0
}

// Compress encodes p with an engine built from cfg. A zero BufferSize is
// sized to fit p.
func Compress(p []byte, cfg Config) ([]byte, error) {
	e, err := NewEngine(fitBuffer(cfg, len(p)))
	if err != nil {
		return nil, err
	}
	return e.Compress(p)
}
