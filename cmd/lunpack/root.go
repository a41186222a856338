// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lunpack",
	Short: "Extract asset files from a client's pack archives",
	Long: `The lunpack utility reads a client installation's manifest
(versions/trunk.txt) and pack index (versions/primary.pki), resolves
which pack archive holds each manifest entry, and extracts the raw
files to disk. Extraction is resilient: missing archives and missing
entries are logged and skipped, so a partially broken install still
yields everything its intact archives contain.`,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printErrorChain(err)
		return err
	}
	return nil
}

// printErrorChain prints the error followed by each underlying cause,
// one per line, so startup failures are diagnosable without re-running.
func printErrorChain(err error) {
	fmt.Fprintln(os.Stderr, err)
	cause := errors.Unwrap(err)
	if cause == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Caused by:")
	for ; cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(os.Stderr, "\t%v\n", cause)
	}
}
