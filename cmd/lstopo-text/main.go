// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// lstopo-text renders a hardware topology as console text or as a synthetic
// description.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/antimetal/lstopo/internal/hardware"
	"github.com/antimetal/lstopo/internal/loader"
	"github.com/antimetal/lstopo/internal/render"
	"github.com/antimetal/lstopo/pkg/topology"
)

// errReported marks errors whose message was already written to stderr.
var errReported = errors.New("reported")

type cliOptions struct {
	input    string
	snapshot string

	logical    bool
	physical   bool
	verbose    int
	silent     bool
	cpuset     bool
	cpusetOnly bool
	taskset    bool
	only       string
	ignore     []string
	distances  bool
	format     string
	synthFlags uint
	pid        int
	force      bool

	logLevel  int
	logFormat string

	logger logr.Logger
}

func main() {
	cmd := newRootCommand(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "lstopo-text: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	o := &cliOptions{logger: logr.Discard()}

	cmd := &cobra.Command{
		Use:   "lstopo-text [flags] [output]",
		Short: "Show the hardware topology as text",
		Long: "lstopo-text prints a hardware topology loaded from a YAML description or a\n" +
			"hardware snapshot. The output is written to standard output unless a file\n" +
			"name is given; \"-\" also designates standard output.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(o.logLevel, o.logFormat, stderr)
			if err != nil {
				return err
			}
			o.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := "-"
			if len(args) == 1 {
				output = args[0]
			}
			return run(cmd.Context(), o, output, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.input, "input", "i", "", "YAML topology description to render")
	flags.StringVar(&o.snapshot, "snapshot", "", "YAML hardware snapshot to render")
	flags.BoolVarP(&o.logical, "logical", "l", true, "Display logical object indexes")
	flags.BoolVarP(&o.physical, "physical", "p", false, "Display physical object indexes")
	flags.CountVarP(&o.verbose, "verbose", "v", "Include additional details, repeat for more")
	flags.BoolVarP(&o.silent, "silent", "s", false, "Only print the level summary")
	flags.BoolVarP(&o.cpuset, "cpuset", "c", false, "Show the cpuset of each object")
	flags.BoolVarP(&o.cpusetOnly, "cpuset-only", "C", false, "Only show the cpuset of each object")
	flags.BoolVar(&o.taskset, "taskset", false, "Show cpusets in taskset format")
	flags.StringVar(&o.only, "only", "", "Only show objects of the given type")
	flags.StringSliceVar(&o.ignore, "ignore", nil, "Ignore objects of the given type (only PU is supported)")
	flags.BoolVar(&o.distances, "distances", false, "Only show the latency matrices")
	flags.StringVar(&o.format, "of", "console", "Output format: console or synthetic")
	flags.UintVar(&o.synthFlags, "export-synthetic-flags", 0,
		"Synthetic export flags: 1 disables extended types, 2 disables attributes")
	flags.IntVar(&o.pid, "pid", render.NoPID, "Mark the PUs the process is bound to as running, 0 for this process")
	flags.BoolVarP(&o.force, "force", "f", false, "Overwrite the output file if it exists")

	cmd.PersistentFlags().IntVar(&o.logLevel, "log-level", -1, "Log verbosity, negative disables logging")
	cmd.PersistentFlags().StringVar(&o.logFormat, "log-format", "zap", "Log format: zap or plain")

	return cmd
}

// newLogger returns a zap development logger, or a plain funcr logger, that
// shows V(level) messages on w.
func newLogger(level int, format string, w io.Writer) (logr.Logger, error) {
	if level < 0 {
		return logr.Discard(), nil
	}

	switch format {
	case "zap":
		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.Level(-level))
		config.OutputPaths = []string{"stderr"}
		zapLog, err := config.Build()
		if err != nil {
			return logr.Logger{}, fmt.Errorf("failed to create logger: %w", err)
		}
		return zapr.NewLogger(zapLog), nil
	case "plain":
		return funcr.New(func(prefix, args string) {
			fmt.Fprintf(w, "%s [%s] %s\n", time.Now().Format(time.RFC3339), prefix, args)
		}, funcr.Options{
			Verbosity: level,
		}), nil
	default:
		return logr.Logger{}, fmt.Errorf("unknown log format %q", format)
	}
}

func run(ctx context.Context, o *cliOptions, output string, stdout, stderr io.Writer) error {
	opts, err := o.renderOptions(stdout, stderr)
	if err != nil {
		return err
	}

	topo, err := o.load(ctx)
	if err != nil {
		return err
	}

	switch o.format {
	case "console":
		err = render.Console(topo, opts, output)
	case "synthetic":
		err = render.Synthetic(topo, opts, output)
	default:
		return fmt.Errorf("unknown output format %q", o.format)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", errReported, err)
	}
	return nil
}

func (o *cliOptions) load(ctx context.Context) (*topology.Topology, error) {
	switch {
	case o.input != "" && o.snapshot != "":
		return nil, errors.New("--input and --snapshot are mutually exclusive")
	case o.input != "":
		return loader.New(o.logger).LoadYAML(o.input)
	case o.snapshot != "":
		snapshot, err := hardware.LoadSnapshot(o.snapshot)
		if err != nil {
			return nil, err
		}
		if ctx == nil {
			ctx = context.Background()
		}
		return hardware.NewBuilder(o.logger).BuildFromSnapshot(ctx, snapshot)
	default:
		return nil, errors.New("no topology to render, pass --input or --snapshot")
	}
}

func (o *cliOptions) renderOptions(stdout, stderr io.Writer) (render.Options, error) {
	opts := render.DefaultOptions()
	opts.Logger = o.logger
	opts.Stdout = stdout
	opts.Stderr = stderr

	opts.Logical = o.logical && !o.physical
	opts.Verbose += o.verbose
	if o.silent {
		opts.Verbose = 0
	}

	switch {
	case o.cpusetOnly:
		opts.ShowCPUSet = render.CPUSetOnly
	case o.cpuset:
		opts.ShowCPUSet = render.CPUSetWithText
	}
	opts.ShowTaskset = o.taskset
	opts.ShowDistancesOnly = o.distances
	opts.Overwrite = o.force
	opts.PID = o.pid
	opts.ExportSyntheticFlags = topology.SyntheticFlags(o.synthFlags)

	if o.only != "" {
		typ, err := topology.ParseType(o.only)
		if err != nil {
			return opts, fmt.Errorf("invalid --only: %w", err)
		}
		opts.ShowOnly = typ
	}
	for _, name := range o.ignore {
		typ, err := topology.ParseType(name)
		if err != nil {
			return opts, fmt.Errorf("invalid --ignore: %w", err)
		}
		if typ != topology.TypePU {
			return opts, fmt.Errorf("ignoring %s objects is not supported", strings.TrimSpace(name))
		}
		opts.IgnorePUs = true
	}
	return opts, nil
}
