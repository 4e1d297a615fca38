// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package flate

import (
	"hash"
	"hash/adler32"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/intel/tickflate/compress/flate/internal/deflate"
)

type state uint8

const (
	stateIdle state = iota
	stateHeader
	stateStoredLen
	stateStoredCopy
	stateStatic
	stateBlockCounts
	stateCodeLengthCodes
	stateReadLengths
	stateRepeat
	stateDistTree
	stateBuild
	stateNext
	stateInflate
	stateDistNext
	stateDistExtra
	stateCopy
	stateZlibHeader
	stateBlockStart
	stateEncode
	stateEndBlock
	stateTrailer
	stateDone
)

var stateNames = [...]string{
	stateIdle:            "IDLE",
	stateHeader:          "HEADER",
	stateStoredLen:       "STORED_LEN",
	stateStoredCopy:      "STORED_COPY",
	stateStatic:          "STATIC",
	stateBlockCounts:     "BL",
	stateCodeLengthCodes: "BL_CODES",
	stateReadLengths:     "READBL",
	stateRepeat:          "REPEAT",
	stateDistTree:        "DISTTREE",
	stateBuild:           "BUILD",
	stateNext:            "NEXT",
	stateInflate:         "INFLATE",
	stateDistNext:        "D_NEXT",
	stateDistExtra:       "D_EXTRA",
	stateCopy:            "COPY",
	stateZlibHeader:      "ZLIB_HEADER",
	stateBlockStart:      "BLOCK_START",
	stateEncode:          "CSTATIC",
	stateEndBlock:        "END_BLOCK",
	stateTrailer:         "TRAILER",
	stateDone:            "DONE",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

const (
	methodStored  = 0
	methodStatic  = 1
	methodDynamic = 2

	zlibHeaderSize = 2
)

// Stats counts the work done by the last operation.
type Stats struct {
	Ticks  int // ticks spent in a non-idle state
	Stalls int // ticks spent refilling the bit reader window
	Blocks int // block headers read or written
	Builds int // Huffman tables built
}

// Engine is the DEFLATE state machine. It owns a fixed input and output
// buffer and advances one bounded unit of work per Tick. An Engine runs
// one operation at a time and is not safe for concurrent use.
type Engine struct {
	cfg Config
	log *logrus.Entry

	in       []byte
	out      []byte
	inputLen int

	state      state
	afterBuild state
	compress   bool
	done       bool
	resultLen  int
	err        error

	br bitReader
	bw deflate.BitBuf
	do int // output cursor while decoding

	// block context
	final              bool
	method             uint32
	numLiterals        int
	numDistance        int
	numCodeLengthGiven int
	numCodeLength      int
	lastToken          uint8
	howOften           int

	lens    [maxLitLen + maxDist]uint8
	clcLens [numCodeLengthCodes]uint8

	clc     huffTable
	lit     huffTable
	dist    huffTable
	builder tableBuilder

	code     uint32 // last decoded literal/length symbol
	distCode uint32
	length   int
	distance int
	cur      int
	copySrc  int

	matcher deflate.Matcher
	adler   hash.Hash32

	stats Stats
}

// NewEngine allocates an engine and its buffers.
func NewEngine(cfg Config) (*Engine, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:   cfg,
		log:   cfg.Log,
		in:    make([]byte, cfg.BufferSize),
		out:   make([]byte, outputCapacity(cfg.BufferSize)),
		adler: adler32.New(),
	}
	return e, nil
}

// outputCapacity leaves room for a static block of incompressible input:
// 9-bit codes, block header, end-of-block code and zlib framing.
func outputCapacity(bsize int) int {
	return bsize + bsize/8 + 16
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Capacity is the size of the input buffer.
func (e *Engine) Capacity() int {
	return len(e.in)
}

// Write stores b at addr in the input buffer. The input size becomes
// addr+1; the last write wins.
func (e *Engine) Write(addr int, b byte) error {
	if addr < 0 || addr >= len(e.in) {
		return errors.Wrapf(ErrOverrun, "write address %d outside input buffer of %d", addr, len(e.in))
	}
	e.in[addr] = b
	e.inputLen = addr + 1
	return nil
}

// Read returns the output buffer byte at addr.
func (e *Engine) Read(addr int) (byte, error) {
	if addr < 0 || addr >= len(e.out) {
		return 0, errors.Wrapf(ErrOverrun, "read address %d outside output buffer of %d", addr, len(e.out))
	}
	return e.out[addr], nil
}

// Load replaces the input buffer contents with p.
func (e *Engine) Load(p []byte) error {
	if len(p) > len(e.in) {
		return errors.Wrapf(ErrOverrun, "%d input bytes exceed buffer of %d", len(p), len(e.in))
	}
	copy(e.in, p)
	e.inputLen = len(p)
	return nil
}

// Result copies out the bytes produced by the last completed operation.
func (e *Engine) Result() []byte {
	if !e.done {
		return nil
	}
	p := make([]byte, e.resultLen)
	copy(p, e.out[:e.resultLen])
	return p
}

// Done reports whether the last started operation completed.
func (e *Engine) Done() bool {
	return e.done
}

// ResultLen is the exclusive end of the output written by the last
// completed operation.
func (e *Engine) ResultLen() int {
	return e.resultLen
}

// Stats returns the counters of the current or last operation.
func (e *Engine) Stats() Stats {
	return e.stats
}

func (e *Engine) reset() {
	e.state = stateIdle
	e.afterBuild = stateIdle
	e.done = false
	e.resultLen = 0
	e.err = nil
	e.do = 0
	e.final = false
	e.method = 0
	e.numLiterals = 0
	e.numDistance = 0
	e.numCodeLengthGiven = 0
	e.numCodeLength = 0
	e.lastToken = 0
	e.howOften = 0
	e.code = 0
	e.distCode = 0
	e.length = 0
	e.distance = 0
	e.cur = 0
	e.copySrc = 0
	e.lens = [maxLitLen + maxDist]uint8{}
	e.clcLens = [numCodeLengthCodes]uint8{}
	e.clc.reset()
	e.lit.reset()
	e.dist.reset()
	e.stats = Stats{}
}

// StartDecompress resets the machine and begins decoding the input buffer.
// Unless the engine is raw, the first two bytes (zlib header) are skipped.
func (e *Engine) StartDecompress() {
	e.reset()
	e.compress = false
	start := zlibHeaderSize
	if e.cfg.Raw {
		start = 0
	}
	e.br.reset(e.in, start, e.inputLen)
	e.state = stateHeader
	e.log.Debugf("decompress %d input bytes", e.inputLen)
}

// StartCompress resets the machine and begins encoding the input buffer
// as one final static Huffman block.
func (e *Engine) StartCompress() {
	e.reset()
	e.compress = true
	e.bw.Reset(e.out)
	e.matcher.Reset()
	e.adler.Reset()
	e.state = stateStatic
	e.log.Debugf("compress %d input bytes at level %d", e.inputLen, e.cfg.Level)
}

// Tick advances the machine by one unit of work. It is a no-op when no
// operation is in flight. A fault stops the machine and is returned by
// every later Tick until the next start command.
func (e *Engine) Tick() error {
	if e.err != nil {
		return e.err
	}
	if e.state == stateIdle || e.state == stateDone {
		return nil
	}
	e.stats.Ticks++
	if err := e.step(); err != nil {
		e.err = &Fault{
			State:     e.state.String(),
			InputPos:  e.inputPos(),
			OutputPos: e.outputPos(),
			Err:       err,
		}
		e.log.Debugf("fault: %v", e.err)
		e.state = stateIdle
		return e.err
	}
	return nil
}

// Run ticks until the operation in flight completes and returns the result
// length.
func (e *Engine) Run() (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	if e.state == stateIdle && !e.done {
		return 0, errors.Wrap(ErrInternal, "no operation started")
	}
	for !e.done {
		if err := e.Tick(); err != nil {
			return 0, err
		}
	}
	return e.resultLen, nil
}

// Decompress loads p, decodes it and returns a copy of the output.
func (e *Engine) Decompress(p []byte) ([]byte, error) {
	if err := e.Load(p); err != nil {
		return nil, err
	}
	e.StartDecompress()
	if _, err := e.Run(); err != nil {
		return nil, err
	}
	return e.Result(), nil
}

// Compress loads p, encodes it and returns a copy of the output.
func (e *Engine) Compress(p []byte) ([]byte, error) {
	if err := e.Load(p); err != nil {
		return nil, err
	}
	e.StartCompress()
	if _, err := e.Run(); err != nil {
		return nil, err
	}
	return e.Result(), nil
}

func (e *Engine) inputPos() int {
	if e.compress {
		return e.cur
	}
	return e.br.di
}

func (e *Engine) outputPos() int {
	if e.compress {
		return e.bw.Len()
	}
	return e.do
}

// stall refills one window byte when the bit reader is short. It reports
// whether the tick was spent refilling.
func (e *Engine) stall() bool {
	if e.br.filled() {
		return false
	}
	e.br.fetch()
	e.stats.Stalls++
	return true
}

func (e *Engine) startBuild(t *huffTable, lengths []uint8, after state) error {
	if err := e.builder.start(t, lengths); err != nil {
		return err
	}
	e.afterBuild = after
	e.state = stateBuild
	return nil
}

func (e *Engine) stepBuild() error {
	done, err := e.builder.step()
	if err != nil || !done {
		return err
	}
	e.stats.Builds++
	t := e.builder.table
	e.log.Debugf("table built: %d symbols, bits %d..%d, instant %d", t.numSymbols, t.minBits, t.maxBits, t.instantMaxBit)
	e.state = e.afterBuild
	return nil
}

func (e *Engine) finish() {
	e.resultLen = e.outputPos()
	e.done = true
	e.state = stateDone
	e.log.Debugf("done: %d bytes out, %d ticks, %d stalls, %d blocks", e.resultLen, e.stats.Ticks, e.stats.Stalls, e.stats.Blocks)
}

func (e *Engine) step() error {
	switch e.state {
	case stateHeader:
		return e.readHeader()
	case stateStoredLen:
		return e.readStoredLen()
	case stateStoredCopy:
		return e.copyStored()
	case stateStatic:
		return e.setupStatic()
	case stateBlockCounts:
		return e.readBlockCounts()
	case stateCodeLengthCodes:
		return e.readCodeLengthCodes()
	case stateReadLengths:
		return e.readLengths()
	case stateRepeat:
		return e.repeatLength()
	case stateDistTree:
		return e.setupDistTree()
	case stateBuild:
		return e.stepBuild()
	case stateNext:
		return e.nextSymbol()
	case stateInflate:
		return e.inflateSymbol()
	case stateDistNext:
		return e.nextDistance()
	case stateDistExtra:
		return e.distanceExtra()
	case stateCopy:
		return e.copyMatch()
	case stateZlibHeader:
		return e.writeZlibHeader()
	case stateBlockStart:
		return e.writeBlockStart()
	case stateEncode:
		return e.encodeToken()
	case stateEndBlock:
		return e.writeEndBlock()
	case stateTrailer:
		return e.writeTrailer()
	}
	return errors.Wrapf(ErrInternal, "tick in state %s", e.state)
}
