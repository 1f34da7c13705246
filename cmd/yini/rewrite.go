// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/playbymail/yini"
)

var cmdRewrite = &cobra.Command{
	Use:   "rewrite <source> <out>",
	Short: "merge dynamic-value updates back into a copy of the source file (spec §4.I)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := yini.ParseFile(args[0], nil)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		if err := doc.MergeIntoSource(args[0], args[1]); err != nil {
			log.Fatalf("error: %v\n", err)
		}
		fmt.Printf("wrote %s\n", args[1])
	},
}
