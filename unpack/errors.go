// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

package unpack

import "fmt"

// FileNotFoundError marks a required input file (manifest, index,
// filter) that does not exist, as opposed to a generic I/O failure.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("could not find %s", e.Path)
}

func (e *FileNotFoundError) Unwrap() error {
	return e.Err
}
