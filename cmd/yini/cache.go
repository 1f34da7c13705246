// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/playbymail/yini"
)

var cmdCache = &cobra.Command{
	Use:   "cache",
	Short: "build and inspect binary caches (spec §4.H)",
}

var argsCacheBuild struct {
	out string
}

var cmdCacheBuild = &cobra.Command{
	Use:   "build <file>",
	Short: "parse a YINI file and write its binary cache",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := yini.ParseFile(args[0], nil)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		out := argsCacheBuild.out
		if out == "" {
			out = args[0] + ".ycache"
		}
		if err := doc.SaveBinary(out); err != nil {
			log.Fatalf("error: %v\n", err)
		}
		fmt.Printf("wrote %s\n", out)
	},
}

var cmdCacheInspect = &cobra.Command{
	Use:   "inspect <cache-file> <section.key>",
	Short: "look up a key directly out of a binary cache",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := yini.LoadBinary(args[0])
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		defer f.Close()

		section, key, ok := strings.Cut(args[1], ".")
		if !ok {
			log.Fatalf("error: expected section.key, got %q\n", args[1])
		}
		v, found, err := f.Lookup(section, key)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		if !found {
			log.Fatalf("error: no such entry %q\n", args[1])
		}
		fmt.Printf("%+v\n", v)
	},
}

func init() {
	cmdCacheBuild.Flags().StringVar(&argsCacheBuild.out, "out", "", "output path (default: <file>.ycache)")
}
