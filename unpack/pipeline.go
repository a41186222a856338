// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

/*
Package unpack turns a client manifest and pack index into a batched,
per-archive extraction plan and executes it. Archives are processed
strictly sequentially; every failure below the manifest/index loading
stage is recoverable, so a partially broken install still yields every
file the intact archives can provide.
*/
package unpack

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/LUDevNet/LUnpack/ledger"
	"github.com/LUDevNet/LUnpack/manifest"
	"github.com/LUDevNet/LUnpack/pki"
)

// Options configures one pipeline run.
type Options struct {
	// Input is the client root, expected to contain
	// versions/trunk.txt and versions/primary.pki.
	Input string
	// Output is the destination root; empty means Input.
	Output string
	// GlobFile optionally names an inclusion pattern file.
	GlobFile string
	// DryRun reports destinations without touching the filesystem.
	DryRun bool
	// SkipExisting enables the opt-in skip of files the ledger knows
	// to be extracted already. The default is to overwrite.
	SkipExisting bool
	// Progress draws a batch progress bar on stderr.
	Progress bool
	// Stdout receives dry-run report lines; defaults to os.Stdout.
	Stdout io.Writer
	// Log receives diagnostics; defaults to the package logger.
	Log logrus.FieldLogger
}

func (o *Options) logger() logrus.FieldLogger {
	if o.Log != nil {
		return o.Log
	}
	return log
}

// LoadPlan loads the manifest, index and filter for the given client
// root and returns the extraction plan. Failures here are fatal to the
// run: nothing has been extracted yet and nothing can be without them.
func LoadPlan(input, globFile string, flog logrus.FieldLogger) ([]Batch, error) {
	filter := MatchAll()
	if globFile != "" {
		var err error
		filter, err = LoadFilter(globFile, flog)
		if err != nil {
			return nil, wrapNotFound(globFile, fmt.Errorf("loading glob file: %w", err))
		}
	}

	trunk := filepath.Join(input, "versions", "trunk.txt")
	m, err := manifest.LoadFile(trunk)
	if err != nil {
		return nil, wrapNotFound(trunk, fmt.Errorf("loading manifest: %w", err))
	}

	index := filepath.Join(input, "versions", "primary.pki")
	idx, err := pki.LoadFile(index)
	if err != nil {
		return nil, wrapNotFound(index, fmt.Errorf("loading pack index: %w", err))
	}

	return Plan(m, filter, idx), nil
}

func wrapNotFound(path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return &FileNotFoundError{Path: path, Err: err}
	}
	return err
}

// Run executes the full pipeline: load, plan, then extract one batch
// at a time. A failing batch is logged with its archive key and the
// run continues; Run only returns an error for startup failures.
func Run(opts Options) error {
	flog := opts.logger()

	input := opts.Input
	if input == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		input = wd
	}
	output := opts.Output
	if output == "" {
		output = input
	}

	batches, err := LoadPlan(input, opts.GlobFile, flog)
	if err != nil {
		return err
	}

	var led *ledger.Ledger
	if opts.SkipExisting && !opts.DryRun {
		led = ledger.Load(filepath.Join(output, ledger.DefaultName))
	}

	x := &Extractor{
		Input:        input,
		Output:       output,
		DryRun:       opts.DryRun,
		SkipExisting: opts.SkipExisting,
		Ledger:       led,
		Stdout:       opts.Stdout,
		Log:          flog,
	}

	var bar *pb.ProgressBar
	if opts.Progress && !opts.DryRun {
		bar = pb.New(len(batches)).Prefix("Archives:").Start()
	}
	total := len(batches)
	for i, b := range batches {
		if err := x.ExtractBatch(i+1, total, b); err != nil {
			flog.Errorf("failed to unpack %s: %v", b.Key, err)
		}
		if bar != nil {
			bar.Increment()
		}
	}
	if bar != nil {
		bar.Finish()
	}

	if led != nil {
		if err := led.Persist(); err != nil {
			flog.Warnf("failed to persist extraction ledger: %v", err)
		}
	}
	return nil
}
