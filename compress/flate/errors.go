// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"fmt"

	"github.com/pkg/errors"
)

// Fault classes. Every fault is fatal for the operation in flight; the engine
// must be restarted with StartDecompress or StartCompress.
var (
	// ErrFormat reports a malformed bitstream: bad block type, bad
	// code-length symbol, over-subscribed or overrunning code lengths.
	ErrFormat = errors.New("format fault")

	// ErrUnresolvedCode reports a Huffman lookup that landed on an empty leaf.
	ErrUnresolvedCode = errors.New("unresolved code")

	// ErrInvalidToken reports a literal/length symbol past the last length code.
	ErrInvalidToken = errors.New("invalid token")

	// ErrOverrun reports a cursor leaving its buffer: input consumed past
	// the written size, output past capacity, or a distance reaching
	// before the start of the output.
	ErrOverrun = errors.New("overrun")

	// ErrOutputFull is the ErrOverrun raised when decoded output reaches
	// the end of the output buffer. A larger engine may succeed.
	ErrOutputFull = errors.Wrap(ErrOverrun, "output full")

	// ErrBuilder reports a code length or symbol outside table capacity.
	ErrBuilder = errors.New("builder fault")

	// ErrInternal reports a bit reader access with an unfilled window or
	// an engine command issued in the wrong state.
	ErrInternal = errors.New("internal fault")
)

// Fault is returned by Tick and Run. It records where the machine stopped.
type Fault struct {
	State     string
	InputPos  int
	OutputPos int
	Err       error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("flate: %v (state %s, input %d, output %d)", f.Err, f.State, f.InputPos, f.OutputPos)
}

func (f *Fault) Unwrap() error {
	return f.Err
}
