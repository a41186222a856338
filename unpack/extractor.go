// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

package unpack

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/LUDevNet/LUnpack/ledger"
	"github.com/LUDevNet/LUnpack/pack"
)

// copyChunkSize bounds the peak memory spent per extracted file.
const copyChunkSize = 16 * 1024

// shortKey strips the common archive directory prefix for log lines.
func shortKey(key string) string {
	return strings.TrimPrefix(key, `client\res\pack\`)
}

// fsPath converts a backslash-separated relative path from the
// manifest or index into a native filesystem path under root.
func fsPath(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(rel, `\`, "/")))
}

// Extractor pulls the requests of one batch out of its archive.
type Extractor struct {
	// Input is the client root; archive keys resolve against it.
	Input string
	// Output is the destination root for extracted files.
	Output string
	// DryRun reports destination paths to Stdout instead of writing.
	DryRun bool
	// SkipExisting skips files the ledger records as already
	// extracted, provided the on-disk size still matches.
	SkipExisting bool
	// Ledger records extractions; may be nil.
	Ledger *ledger.Ledger
	// Stdout receives dry-run report lines; defaults to os.Stdout.
	Stdout io.Writer
	// Log receives diagnostics; defaults to the package logger.
	Log logrus.FieldLogger
}

func (x *Extractor) stdout() io.Writer {
	if x.Stdout != nil {
		return x.Stdout
	}
	return os.Stdout
}

func (x *Extractor) logger() logrus.FieldLogger {
	if x.Log != nil {
		return x.Log
	}
	return log
}

// ExtractBatch processes one batch, ordinal out of total. An archive
// that cannot be opened is a warning and a nil return: the rest of the
// run must go on. A bad magic signature is logged but parsing
// continues. An unreadable trailer or entry directory fails the batch;
// the caller logs it and moves to the next archive. Within the batch a
// missing entry or an uncreatable destination only skips that request.
func (x *Extractor) ExtractBatch(ordinal, total int, b Batch) error {
	flog := x.logger()
	key := shortKey(b.Key)

	f, err := os.Open(fsPath(x.Input, b.Key))
	if err != nil {
		flog.Warnf("failed to open %q", key)
		return nil
	}
	defer f.Close()
	pk := pack.NewReader(f)

	if err := pk.CheckMagic(); err != nil {
		flog.Errorf("failed to check pk magic for %q: %v", key, err)
	}
	trailer, err := pk.Trailer()
	if err != nil {
		return err
	}
	entries, err := pk.Entries(trailer.EntryListAddr)
	if err != nil {
		return err
	}

	buf := make([]byte, copyChunkSize)
	for _, req := range b.Requests {
		i := sort.Search(len(entries), func(i int) bool { return entries[i].Crc >= req.Crc })
		if i == len(entries) || entries[i].Crc != req.Crc {
			flog.Warnf("failed to find %q in %q", req.Path, key)
			continue
		}
		entry := entries[i]
		if entry.IsCompressed() {
			flog.Debugf("compressed: %s", req.Path)
		}
		dest := fsPath(x.Output, req.Path)
		if x.DryRun {
			fmt.Fprintln(x.stdout(), dest)
			continue
		}
		if x.SkipExisting && x.Ledger != nil && x.Ledger.Seen(req.Path, req.Size, req.Hash.String()) && onDiskSizeIs(dest, req.Size) {
			flog.Debugf("skipping existing: %s", req.Path)
			continue
		}
		stream, err := pk.Open(entry)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		out, err := os.Create(dest)
		if err != nil {
			flog.Errorf("failed to write %q: %v", dest, err)
			continue
		}
		if _, err := io.CopyBuffer(out, stream, buf); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
		if x.Ledger != nil {
			x.Ledger.Record(req.Path, req.Size, req.Hash.String(), req.Crc)
		}
	}

	flog.Infof("%d/%d %s", ordinal, total, key)
	return nil
}

func onDiskSizeIs(path string, size uint32) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.Size() == int64(size)
}
