// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/playbymail/yini"
)

var cmdParse = &cobra.Command{
	Use:   "parse <file>",
	Short: "parse and evaluate a YINI file, printing its canonical text form",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := yini.ParseFile(args[0], nil)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		fmt.Print(doc.Text())
	},
}
