// Package config parses command-line options and the optional
// .remakerc.yaml defaults file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUsage is returned for a malformed command line; callers should print
// usage and exit 1.
var ErrUsage = errors.New("usage error")

// ErrHelp is returned when -h/--help was given; callers should print usage
// and exit 0.
var ErrHelp = errors.New("help requested")

// Options holds the parsed command line.
type Options struct {
	Debug     bool
	Jobs      int // 0 means unbounded
	Notify    bool
	Targets   []string
	SocketDir string
}

// Defaults holds the optional .remakerc.yaml contents. Any field left at
// its zero value falls back to the built-in default.
type Defaults struct {
	Jobs      int    `yaml:"jobs"`
	Debug     bool   `yaml:"debug"`
	Notify    bool   `yaml:"notify"`
	SocketDir string `yaml:"socket_dir"`
}

// LoadDefaults reads path if it exists; a missing file yields the zero
// Defaults, matching the optional, off-by-default nature of the file.
func LoadDefaults(path string) (Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults{}, nil
		}
		return Defaults{}, fmt.Errorf("read %s: %w", path, err)
	}
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}

// ParseArgs parses argv (without the program name) against defaults.
//
// Options: -d enables debug logging; -h/--help requests usage (ErrHelp);
// -n/--notify enables the build-completion notification;
// -jN or --jobs=N sets the job cap (0 or a missing N means unbounded; a
// non-numeric or absent argument is treated as 0); anything else starting
// with '-' is an unknown option (ErrUsage); everything else is a target.
func ParseArgs(argv []string, defaults Defaults) (Options, error) {
	opts := Options{
		Debug:     defaults.Debug,
		Jobs:      defaults.Jobs,
		Notify:    defaults.Notify,
		SocketDir: defaults.SocketDir,
	}

	for _, arg := range argv {
		switch {
		case arg == "":
			return Options{}, ErrUsage

		case arg == "-h" || arg == "--help":
			return Options{}, ErrHelp

		case arg == "-d":
			opts.Debug = true

		case arg == "-n" || arg == "--notify":
			opts.Notify = true

		case arg == "-j" || strings.HasPrefix(arg, "-j"):
			opts.Jobs = parseJobs(strings.TrimPrefix(arg, "-j"))

		case strings.HasPrefix(arg, "--jobs="):
			opts.Jobs = parseJobs(strings.TrimPrefix(arg, "--jobs="))

		case strings.HasPrefix(arg, "-"):
			return Options{}, ErrUsage

		default:
			opts.Targets = append(opts.Targets, arg)
		}
	}

	return opts, nil
}

func parseJobs(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
