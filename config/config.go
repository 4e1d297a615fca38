// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/intel/tickflate"
	"github.com/intel/tickflate/compress/flate"
)

const (
	EnvVarPrefix = "TICKFLATE"

	CommandCompress   = "compress"
	CommandDecompress = "decompress"

	LevelHuffmanOnly = "huffman-only"
	LevelBestSpeed   = "best-speed"

	DefaultLevel          = LevelHuffmanOnly
	DefaultNumWorkers     = 2
	DefaultCompressSuffix = ".zz"

	MinNumWorkers = 1
	MaxNumWorkers = 64
)

var (
	// VERSION is reported by --version
	VERSION = tickflate.Version

	validLevels = map[string]int{
		LevelHuffmanOnly: flate.HuffmanOnly,
		LevelBestSpeed:   flate.BestSpeed,
	}
)

type Config struct {
	CLI  *CLI
	TOML *TOML
}

type TOML struct {
	Engine *TOMLEngine `toml:"engine"`
	Batch  *TOMLBatch  `toml:"batch"`
}

type TOMLEngine struct {
	BufferSize int    `toml:"buffer_size"`
	Level      string `toml:"level"`
	Raw        bool   `toml:"raw"`
}

type TOMLBatch struct {
	Workers        int    `toml:"workers"`
	CompressSuffix string `toml:"compress_suffix"`
	OutputDir      string `toml:"output_dir"`
}

type FilesCmd struct {
	Files []string `kong:"arg,help='Files to process',type='path'"`
}

type CLI struct {
	ConfigFile string `kong:"help='Path to the TOML config file',type='path',short='c'"`

	Compress   FilesCmd `kong:"cmd,help='Compress files into zlib streams'"`
	Decompress FilesCmd `kong:"cmd,help='Decompress zlib streams'"`

	Workers    int    `kong:"help='Number of parallel workers (overrides batch.workers)',short='w'"`
	BufferSize int    `kong:"help='Engine buffer size in bytes (overrides engine.buffer_size)',short='b'"`
	Level      string `kong:"help='Compression level: huffman-only or best-speed (overrides engine.level)',short='l'"`
	Raw        bool   `kong:"help='Raw DEFLATE without zlib framing',short='r'"`
	OutputDir  string `kong:"help='Directory for output files (overrides batch.output_dir)',type='path',short='o'"`

	Debug   bool             `kong:"help='Enable debug output',short='d'"`
	Quiet   bool             `kong:"help='Disable showing pre/post output',short='q'"`
	Version kong.VersionFlag `help:"Show version and exit" short:"v" env:"-"`

	// Internal bits
	Command string        `kong:"-"`
	Ctx     *kong.Context `kong:"-"`
}

// NewConfig parses args (without the program name), loads .env and the TOML
// file, applies CLI overrides and validates the result.
func NewConfig(args []string) (*Config, error) {
	// Attempt to load .env
	_ = godotenv.Load(".env")

	cli, err := readCLIArgs(args)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing CLI args")
	}

	tomlConfig, err := readTOML(cli.ConfigFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	applyCLIOverrides(cli, tomlConfig)

	if err := validateTOML(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error validating TOML config")
	}

	return &Config{
		CLI:  cli,
		TOML: tomlConfig,
	}, nil
}

// Files returns the positional arguments of the selected command.
func (c *Config) Files() []string {
	if c.CLI.Command == CommandDecompress {
		return c.CLI.Decompress.Files
	}
	return c.CLI.Compress.Files
}

// EngineConfig translates [engine] into an engine configuration.
func (c *Config) EngineConfig(log *logrus.Entry) flate.Config {
	return flate.Config{
		BufferSize: c.TOML.Engine.BufferSize,
		Level:      validLevels[c.TOML.Engine.Level],
		Raw:        c.TOML.Engine.Raw,
		Log:        log,
	}
}

func setTOMLDefaults(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	if t.Engine == nil {
		t.Engine = &TOMLEngine{}
	}

	if t.Batch == nil {
		t.Batch = &TOMLBatch{}
	}

	// Set defaults for [engine]
	if t.Engine.BufferSize == 0 {
		t.Engine.BufferSize = flate.DefaultBufferSize
	}

	if t.Engine.Level == "" {
		t.Engine.Level = DefaultLevel
	}

	// Set defaults for [batch]
	if t.Batch.Workers == 0 {
		t.Batch.Workers = DefaultNumWorkers
	}

	if t.Batch.CompressSuffix == "" {
		t.Batch.CompressSuffix = DefaultCompressSuffix
	}

	return nil
}

func applyCLIOverrides(cli *CLI, t *TOML) {
	if cli.Workers != 0 {
		t.Batch.Workers = cli.Workers
	}

	if cli.BufferSize != 0 {
		t.Engine.BufferSize = cli.BufferSize
	}

	if cli.Level != "" {
		t.Engine.Level = cli.Level
	}

	if cli.Raw {
		t.Engine.Raw = true
	}

	if cli.OutputDir != "" {
		t.Batch.OutputDir = cli.OutputDir
	}
}

func validateTOML(t *TOML) error {
	if t == nil {
		return errors.New("toml config cannot be nil")
	}

	// Validate [engine]
	if err := validateTOMLEngine(t.Engine); err != nil {
		return errors.Wrap(err, "engine error(s)")
	}

	// Validate [batch]
	if err := validateTOMLBatch(t.Batch); err != nil {
		return errors.Wrap(err, "batch error(s)")
	}

	return nil
}

func validateTOMLEngine(e *TOMLEngine) error {
	if e == nil {
		return errors.New("engine cannot be empty")
	}

	level, ok := validLevels[e.Level]
	if !ok {
		return errors.Errorf("engine.level %s is invalid", e.Level)
	}

	cfg := flate.Config{BufferSize: e.BufferSize, Level: level}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "engine.buffer_size")
	}

	return nil
}

func validateTOMLBatch(b *TOMLBatch) error {
	if b == nil {
		return errors.New("batch cannot be empty")
	}

	if b.Workers < MinNumWorkers || b.Workers > MaxNumWorkers {
		return errors.Errorf("batch.workers must be between %d and %d", MinNumWorkers, MaxNumWorkers)
	}

	if b.CompressSuffix == "" {
		return errors.New("batch.compress_suffix cannot be empty")
	}

	if strings.ContainsRune(b.CompressSuffix, os.PathSeparator) {
		return errors.Errorf("batch.compress_suffix %s cannot contain a path separator", b.CompressSuffix)
	}

	return nil
}

func readCLIArgs(args []string) (*CLI, error) {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("tickflate"),
		kong.Description("Tick-stepped DEFLATE codec"),
		kong.UsageOnError(),
		kong.DefaultEnvars(EnvVarPrefix),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"version": VERSION,
		})
	if err != nil {
		return nil, errors.Wrap(err, "error building CLI parser")
	}

	cli.Ctx, err = parser.Parse(args)
	if err != nil {
		return nil, err
	}

	cli.Command = strings.Fields(cli.Ctx.Command())[0]

	if err := validateCLIArgs(cli); err != nil {
		return nil, errors.Wrap(err, "error validating args")
	}

	return cli, nil
}

// readTOML loads file, or starts from defaults when no file is given.
func readTOML(file string) (*TOML, error) {
	tomlConfig := &TOML{}

	if file != "" {
		// Attempt to load file
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrap(err, "error reading file")
		}

		if err := toml.Unmarshal(data, tomlConfig); err != nil {
			return nil, errors.Wrap(err, "error parsing TOML config")
		}
	}

	// Set defaults
	if err := setTOMLDefaults(tomlConfig); err != nil {
		return nil, errors.Wrap(err, "error setting TOML defaults")
	}

	return tomlConfig, nil
}

func validateCLIArgs(cli *CLI) error {
	if cli == nil {
		return errors.New("config cannot be nil")
	}

	if len(cli.Compress.Files) == 0 && len(cli.Decompress.Files) == 0 {
		return errors.New("no files given")
	}

	if cli.Workers < 0 || cli.BufferSize < 0 {
		return errors.New("workers and buffer size cannot be negative")
	}

	return nil
}
