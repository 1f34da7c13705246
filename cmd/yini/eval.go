// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/playbymail/yini"
	"github.com/playbymail/yini/internal/textfmt"
)

var cmdEval = &cobra.Command{
	Use:   "eval <file> <section.key>",
	Short: "parse a YINI file and print the value of a single entry",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := yini.ParseFile(args[0], nil)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		section, key, ok := strings.Cut(args[1], ".")
		if !ok {
			log.Fatalf("error: expected section.key, got %q\n", args[1])
		}
		v, ok := doc.Lookup(section, key)
		if !ok {
			log.Fatalf("error: no such entry %q\n", args[1])
		}
		fmt.Println(textfmt.FormatValue(v))
	},
}
