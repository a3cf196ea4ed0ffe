// Command remake is a build tool combining static Makefile-like rules with
// dynamic dependencies discovered at build time through recursive
// invocations of itself.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/msageha/remake/internal/config"
	"github.com/msageha/remake/internal/orchestrator"
	"github.com/msageha/remake/internal/rlog"
)

const usageText = `Usage: remake [options] [target] ...
Options
  -d                 Print lots of debugging information.
  -h, --help         Print this message and exit.
  -j[N], --jobs=[N]  Allow N jobs at once; infinite jobs with no arg.
  -n, --notify       Send a desktop notification when the build finishes.
`

const defaultsFile = ".remakerc.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	defaults, err := config.LoadDefaults(defaultsFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	opts, err := config.ParseArgs(os.Args[1:], defaults)
	switch {
	case errors.Is(err, config.ErrHelp):
		fmt.Print(usageText)
		return 0
	case errors.Is(err, config.ErrUsage):
		fmt.Fprint(os.Stderr, usageText)
		return 1
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	level := rlog.LevelInfo
	if opts.Debug {
		level = rlog.LevelDebug
	}
	logger := rlog.New(os.Stderr, level)

	if socketPath := os.Getenv("REMAKE_SOCKET"); socketPath != "" {
		return exitFor(orchestrator.RunClient(socketPath, opts.Targets))
	}

	return exitFor(orchestrator.RunServer(opts, logger))
}

func exitFor(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, orchestrator.ErrBuildFailed):
		return 1
	default:
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
}
