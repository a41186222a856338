// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

package main

import (
	"os"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
)

func realMain() error {
	// logging is unrequested output; stdout is reserved for what the
	// user asked for (dry-run report lines, plan output) so that
	// redirecting it produces a clean file.
	logrus.SetOutput(os.Stderr)

	if os.Getenv("LUNPACK_PROFILE") != "" {
		defer profile.Start().Stop()
	}
	return Execute()
}

func main() {
	// wrapping main allows us to use defer in realMain and still have
	// them executed even if we want to exit with a non-zero value,
	// which requires that we use os.Exit()
	if err := realMain(); err != nil {
		os.Exit(1)
	}
}
