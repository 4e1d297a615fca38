// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"compress/flate"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Compression level constants compatible with standard library
const (
	NoCompression      = flate.NoCompression      // zero value, same as HuffmanOnly
	BestSpeed          = flate.BestSpeed          // static block with LZ77 matches
	BestCompression    = flate.BestCompression    // not supported by the engine
	DefaultCompression = flate.DefaultCompression // same as HuffmanOnly
	HuffmanOnly        = flate.HuffmanOnly        // static block, literals only
)

const (
	// DefaultBufferSize is the input buffer size used when Config leaves it unset.
	DefaultBufferSize = 1 << 16

	MinBufferSize = 1 << 8
	MaxBufferSize = 1 << 24
)

// Config sizes and tunes an Engine. The zero value is usable.
type Config struct {
	// BufferSize is the input buffer capacity. It must be a power of two.
	BufferSize int

	// Level selects the encoder: HuffmanOnly (default) or BestSpeed. Zero
	// and DefaultCompression select HuffmanOnly.
	Level int

	// Raw disables the zlib header skip on decompress and the zlib framing
	// on compress.
	Raw bool

	Log *logrus.Entry
}

func (c Config) withDefaults() (Config, error) {
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.Level == DefaultCompression || c.Level == NoCompression {
		c.Level = HuffmanOnly
	}
	if c.Log == nil {
		c.Log = logrus.WithField("pkg", "flate")
	}
	return c, c.Validate()
}

// Validate reports a configuration the engine cannot run with.
func (c Config) Validate() error {
	if c.BufferSize < MinBufferSize || c.BufferSize > MaxBufferSize {
		return errors.Errorf("buffer size %d outside [%d, %d]", c.BufferSize, MinBufferSize, MaxBufferSize)
	}
	if c.BufferSize&(c.BufferSize-1) != 0 {
		return errors.Errorf("buffer size %d is not a power of two", c.BufferSize)
	}
	switch c.Level {
	case NoCompression, DefaultCompression, HuffmanOnly, BestSpeed:
	default:
		return errors.Errorf("unsupported compression level %d", c.Level)
	}
	return nil
}
