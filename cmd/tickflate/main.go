// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/intel/tickflate/config"
	"github.com/intel/tickflate/internal/batch"
)

func main() {
	cfg, err := config.NewConfig(os.Args[1:])
	if err != nil {
		fmt.Println("ERROR: ", err)
		os.Exit(1)
	}

	if cfg.CLI.Debug {
		logrus.Info("debug mode enabled")
		logrus.SetLevel(logrus.DebugLevel)
	}

	if !cfg.CLI.Quiet {
		displayConfig(cfg)
	}

	mode := batch.Compress
	if cfg.CLI.Command == config.CommandDecompress {
		mode = batch.Decompress
	}

	r, err := batch.New(batch.Options{
		Fs:        afero.NewOsFs(),
		Engine:    cfg.EngineConfig(logrus.WithField("pkg", "flate")),
		Workers:   cfg.TOML.Batch.Workers,
		Suffix:    cfg.TOML.Batch.CompressSuffix,
		OutputDir: cfg.TOML.Batch.OutputDir,
	})
	if err != nil {
		logrus.Errorf("unable to create batch runner: %s", err)
		os.Exit(1)
	}

	jobs, err := r.Plan(mode, cfg.Files())
	if err != nil {
		logrus.Errorf("unable to plan jobs: %s", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := r.Run(ctx, jobs)
	if err != nil {
		logrus.Errorf("error during %s run: %s", mode, err)
		stop()
		os.Exit(1)
	}

	if cfg.CLI.Quiet {
		return
	}

	for _, res := range results {
		logrus.Infof("%s -> %s: %d -> %d bytes, %d ticks, %d blocks",
			res.Job.Src, res.Job.Dst, res.In, res.Out, res.Stats.Ticks, res.Stats.Blocks)
	}
}

func displayConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	logrus.Info("tickflate settings:")
	logrus.Info("  [CLI]")
	logrus.Infof("  version: %s", config.VERSION)
	logrus.Infof("  command: %s", cfg.CLI.Command)
	logrus.Infof("  debug: %v", cfg.CLI.Debug)
	logrus.Infof("  config file: %s", cfg.CLI.ConfigFile)
	logrus.Infof("  files: %d", len(cfg.Files()))
	logrus.Info("")
	logrus.Info("  [ENGINE]")
	logrus.Infof("  engine.buffer_size: %d", cfg.TOML.Engine.BufferSize)
	logrus.Infof("  engine.level: %s", cfg.TOML.Engine.Level)
	logrus.Infof("  engine.raw: %v", cfg.TOML.Engine.Raw)
	logrus.Info("")
	logrus.Info("  [BATCH]")
	logrus.Infof("  batch.workers: %d", cfg.TOML.Batch.Workers)
	logrus.Infof("  batch.compress_suffix: %s", cfg.TOML.Batch.CompressSuffix)
	logrus.Infof("  batch.output_dir: %s", cfg.TOML.Batch.OutputDir)
}
