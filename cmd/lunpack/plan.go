// Copyright 2022 the LUnpack authors
// Licensed under the Apache License, Version 2.0. See LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/LUDevNet/LUnpack/unpack"
)

var planOpts struct {
	globFile string
}

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:                   "plan [flags] [CLIENT_DIR]",
	DisableFlagsInUseLine: true,
	Args:                  cobra.MaximumNArgs(1),
	Short:                 "Print the extraction plan as YAML without extracting",
	Long: `Resolves the manifest against the pack index and prints which
archive each file would be pulled from, as YAML on stdout. Useful for
diffing two installs or checking what a glob file selects.`,
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
		cmd.SilenceUsage = true
		batches, err := unpack.LoadPlan(input, planOpts.globFile, nil)
		if err != nil {
			return err
		}
		doc := make(yaml.MapSlice, 0, len(batches))
		for _, b := range batches {
			paths := make([]string, 0, len(b.Requests))
			for _, req := range b.Requests {
				paths = append(paths, req.Path)
			}
			doc = append(doc, yaml.MapItem{Key: b.Key, Value: paths})
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVarP(&planOpts.globFile, "glob", "g", "", "file with one inclusion glob per line")
}
