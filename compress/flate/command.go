// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"github.com/pkg/errors"
)

// Mode selects what an Engine does on one Exec call.
type Mode uint8

const (
	ModeIdle Mode = iota // tick the operation in flight
	ModeWrite
	ModeRead
	ModeStartCompress
	ModeStartDecompress
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "IDLE"
	case ModeWrite:
		return "WRITE"
	case ModeRead:
		return "READ"
	case ModeStartCompress:
		return "START_COMPRESS"
	case ModeStartDecompress:
		return "START_DECOMPRESS"
	}
	return "UNKNOWN"
}

// Command is one request on the engine's command port.
type Command struct {
	Mode Mode
	Addr int
	Data byte
}

// Exec applies one command. Only ModeIdle advances the state machine;
// ModeRead returns the output byte at Addr.
func (e *Engine) Exec(cmd Command) (byte, error) {
	switch cmd.Mode {
	case ModeIdle:
		return 0, e.Tick()
	case ModeWrite:
		return 0, e.Write(cmd.Addr, cmd.Data)
	case ModeRead:
		return e.Read(cmd.Addr)
	case ModeStartCompress:
		e.StartCompress()
		return 0, nil
	case ModeStartDecompress:
		e.StartDecompress()
		return 0, nil
	}
	return 0, errors.Wrapf(ErrInternal, "unknown mode %d", cmd.Mode)
}
