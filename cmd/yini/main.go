// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package main implements the yini command-line tool.
package main

import (
	"log"

	"github.com/maloquacious/semver"
	"github.com/spf13/cobra"
)

var version = semver.Version{
	Major: 0,
	Minor: 1,
	Patch: 0,
	Build: semver.Commit(),
}

func main() {
	log.SetFlags(log.Lshortfile | log.Ltime)
	if err := Execute(); err != nil {
		log.Fatal(err)
	}
}

var argsRoot struct {
	debug bool
}

var cmdRoot = &cobra.Command{
	Use:   "yini",
	Short: "Root command for the yini tool",
	Long:  `Parse, evaluate, cache, and rewrite YINI configuration files.`,
}

func Execute() error {
	cmdRoot.PersistentFlags().BoolVar(&argsRoot.debug, "debug", false, "enable debug logging")

	cmdRoot.AddCommand(cmdParse)
	cmdRoot.AddCommand(cmdEval)

	cmdRoot.AddCommand(cmdCache)
	cmdCache.AddCommand(cmdCacheBuild)
	cmdCache.AddCommand(cmdCacheInspect)

	cmdRoot.AddCommand(cmdRewrite)
	cmdRoot.AddCommand(cmdVersion)

	return cmdRoot.Execute()
}
