package main

import (
	"flag"
	"io"
	"time"
)

// Options holds CLI options for the simulator.
type Options struct {
	ConfigPath string
	// Duration and Nodes override the config when non-zero.
	Duration time.Duration
	Nodes    int
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string, stderr io.Writer) (Options, error) {
	fs := flag.NewFlagSet("loadsim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
	fs.DurationVar(&opts.Duration, "duration", 0, "Override simulation duration (e.g. 10s)")
	fs.IntVar(&opts.Nodes, "nodes", 0, "Override number of nodes")
	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	return opts, nil
}
