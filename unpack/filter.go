// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

package unpack

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"
)

// Filter is the compiled inclusion filter: a path is included when at
// least one pattern matches. Patterns use `/` as the separator with
// globset semantics, so `*` stops at separators and `**` does not;
// manifest paths are normalized from backslashes before matching.
type Filter struct {
	globs []glob.Glob
}

// MatchAll returns the default filter used when no pattern file is
// given.
func MatchAll() *Filter {
	return &Filter{globs: []glob.Glob{glob.MustCompile("**", '/')}}
}

// CompileFilter reads one pattern per line from r. Blank lines and
// lines starting with '#' are skipped. A line that fails to compile is
// logged as a warning with its line number and excluded; the remaining
// patterns stay active.
func CompileFilter(r io.Reader, flog logrus.FieldLogger) (*Filter, error) {
	if flog == nil {
		flog = log
	}
	f := &Filter{}
	scanner := bufio.NewScanner(r)
	for num := 1; scanner.Scan(); num++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		g, err := glob.Compile(line, '/')
		if err != nil {
			flog.Warnf("invalid glob %q on line %d: %v", line, num, err)
			continue
		}
		f.globs = append(f.globs, g)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadFilter compiles the pattern file at path.
func LoadFilter(path string, flog logrus.FieldLogger) (*Filter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return CompileFilter(file, flog)
}

// Match reports whether the given manifest-relative path is included.
func (f *Filter) Match(path string) bool {
	normalized := strings.ReplaceAll(path, `\`, "/")
	for _, g := range f.globs {
		if g.Match(normalized) {
			return true
		}
	}
	return false
}
