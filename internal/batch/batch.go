// Copyright (c) 2024, Intel Corporation.
// SPDX-License-Identifier: BSD-3-Clause

// Package batch compresses or decompresses many files in parallel. Each
// worker borrows an engine from a fixed pool, so at most one operation runs
// per engine at a time.
package batch

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/intel/tickflate/compress/flate"
)

type Mode int

const (
	Compress Mode = iota
	Decompress
)

func (m Mode) String() string {
	if m == Decompress {
		return "decompress"
	}
	return "compress"
}

type Options struct {
	Fs        afero.Fs
	Engine    flate.Config
	Workers   int
	Suffix    string
	OutputDir string
}

type Job struct {
	Src  string
	Dst  string
	Mode Mode
}

type Result struct {
	Job   Job
	In    int
	Out   int
	Stats flate.Stats
}

type Runner struct {
	opts    Options
	log     *logrus.Entry
	engines chan *flate.Engine
}

func New(opts Options) (*Runner, error) {
	if opts.Fs == nil {
		return nil, errors.New("filesystem cannot be nil")
	}

	if opts.Workers < 1 {
		return nil, errors.Errorf("workers must be at least 1, got %d", opts.Workers)
	}

	if opts.Suffix == "" {
		return nil, errors.New("suffix cannot be empty")
	}

	r := &Runner{
		opts:    opts,
		log:     logrus.WithField("pkg", "batch"),
		engines: make(chan *flate.Engine, opts.Workers),
	}

	for i := 0; i < opts.Workers; i++ {
		e, err := flate.NewEngine(opts.Engine)
		if err != nil {
			return nil, errors.Wrap(err, "unable to create engine")
		}
		r.engines <- e
	}

	return r, nil
}

// Plan maps input files to jobs. Compressed files get the suffix appended;
// decompressed files must carry it and have it removed.
func (r *Runner) Plan(mode Mode, files []string) ([]Job, error) {
	jobs := make([]Job, 0, len(files))

	for _, src := range files {
		var dst string

		switch mode {
		case Compress:
			dst = src + r.opts.Suffix
		case Decompress:
			if !strings.HasSuffix(src, r.opts.Suffix) || len(src) == len(r.opts.Suffix) {
				return nil, errors.Errorf("%s does not end in %s", src, r.opts.Suffix)
			}
			dst = strings.TrimSuffix(src, r.opts.Suffix)
		default:
			return nil, errors.Errorf("unknown mode %d", mode)
		}

		if r.opts.OutputDir != "" {
			dst = filepath.Join(r.opts.OutputDir, filepath.Base(dst))
		}

		jobs = append(jobs, Job{Src: src, Dst: dst, Mode: mode})
	}

	return jobs, nil
}

// Run executes jobs with at most Workers in flight. The first failure
// cancels jobs that have not started yet.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	if r.opts.OutputDir != "" {
		if err := r.opts.Fs.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "unable to create output dir")
		}
	}

	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			e := <-r.engines
			defer func() { r.engines <- e }()

			res, err := r.runJob(e, job)
			if err != nil {
				return errors.Wrapf(err, "error processing %s", job.Src)
			}

			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (r *Runner) runJob(e *flate.Engine, job Job) (Result, error) {
	llog := r.log.WithFields(logrus.Fields{
		"method": "runJob",
		"mode":   job.Mode.String(),
		"src":    job.Src,
	})

	data, err := afero.ReadFile(r.opts.Fs, job.Src)
	if err != nil {
		return Result{}, errors.Wrap(err, "unable to read input")
	}

	var out []byte
	if job.Mode == Decompress {
		out, err = e.Decompress(data)
	} else {
		out, err = e.Compress(data)
	}
	if err != nil {
		return Result{}, err
	}

	if err := afero.WriteFile(r.opts.Fs, job.Dst, out, 0o644); err != nil {
		return Result{}, errors.Wrap(err, "unable to write output")
	}

	llog.Debugf("wrote %d bytes to %s", len(out), job.Dst)

	return Result{
		Job:   job,
		In:    len(data),
		Out:   len(out),
		Stats: e.Stats(),
	}, nil
}
