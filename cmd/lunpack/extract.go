// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/LUDevNet/LUnpack/unpack"
)

var extractOpts struct {
	output       string
	dryRun       bool
	globFile     string
	skipExisting bool
	noProgress   bool
}

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:                   "extract [flags] [CLIENT_DIR]",
	DisableFlagsInUseLine: true,
	Args:                  cobra.MaximumNArgs(1),
	Short:                 "Extract manifest files from the client's pack archives",
	RunE: func(cmd *cobra.Command, args []string) error {
		input := ""
		if len(args) == 1 {
			input = args[0]
		} else {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			input = wd
		}
		// errors past this point are about the install, not the usage
		cmd.SilenceUsage = true
		return unpack.Run(unpack.Options{
			Input:        input,
			Output:       extractOpts.output,
			GlobFile:     extractOpts.globFile,
			DryRun:       extractOpts.dryRun,
			SkipExisting: extractOpts.skipExisting,
			Progress:     !extractOpts.noProgress && !extractOpts.dryRun,
		})
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&extractOpts.output, "output", "o", "", "directory to put files into (defaults to CLIENT_DIR)")
	extractCmd.Flags().BoolVarP(&extractOpts.dryRun, "dry-run", "d", false, "print destination paths instead of writing files")
	extractCmd.Flags().StringVarP(&extractOpts.globFile, "glob", "g", "", "file with one inclusion glob per line")
	extractCmd.Flags().BoolVar(&extractOpts.skipExisting, "skip-existing", false, "skip files recorded as already extracted")
	extractCmd.Flags().BoolVar(&extractOpts.noProgress, "no-progress", false, "disable the archive progress bar")
}
