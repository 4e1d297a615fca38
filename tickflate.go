// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

// Package tickflate provides a DEFLATE (RFC 1951) codec built as an explicit,
// tick-stepped state machine over fixed-capacity buffers. The engine lives in
// compress/flate; cmd/tickflate is a command line front end.
package tickflate

import "github.com/intel/tickflate/compress/flate"

// Version is the release of the codec and the command line tool.
const Version = "0.1.0"

// DefaultBufferSize is the engine input buffer size used when none is
// configured.
const DefaultBufferSize = flate.DefaultBufferSize
