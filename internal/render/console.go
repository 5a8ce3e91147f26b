// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package render

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/antimetal/lstopo/pkg/cpu"
	"github.com/antimetal/lstopo/pkg/topology"
)

// Console writes the console report of topo to the sink called filename.
// When the sink cannot be opened a message goes to Options.Stderr, nothing
// else is written and the error is returned.
func Console(topo *topology.Topology, opts Options, filename string) error {
	logger := opts.Logger.WithName("console")

	out, err := OpenOutput(filename, opts.Overwrite, opts.stdout())
	if err != nil {
		fmt.Fprintf(opts.stderr(), "Failed to open %s for writing (%s)\n", filename, systemErrorText(err))
		logger.Error(err, "Failed to open output", "filename", filename)
		return err
	}

	newTextRenderer(topo, opts, out).writeConsole()
	if err := out.Close(); err != nil {
		logger.Error(err, "Failed to write console report", "filename", filename)
		return err
	}

	logger.V(1).Info("Wrote console report", "filename", filename,
		"size", humanize.Bytes(uint64(out.Written())))
	return nil
}

// WriteConsole writes the console report of topo to w.
func WriteConsole(w io.Writer, topo *topology.Topology, opts Options) error {
	bw := bufio.NewWriter(w)
	newTextRenderer(topo, opts, bw).writeConsole()
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write console report: %w", err)
	}
	return nil
}

func (r *textRenderer) writeConsole() {
	if r.opts.ShowDistancesOnly {
		r.writeDistances()
		return
	}

	filtered := r.opts.ShowOnly != topology.TypeNone
	verbose := r.opts.Verbose
	switch {
	case filtered:
		if verbose > 1 {
			fmt.Fprintf(r.w, "Only showing %s objects\n", topology.TypeName(r.opts.ShowOnly))
		}
		r.writeOnly(r.topo.Root())
	case verbose >= 1:
		r.writeTree(r.topo.Root(), nil, 0)
		io.WriteString(r.w, "\n")
	}

	if filtered {
		return
	}
	if verbose == 0 || verbose > 1 {
		r.writeSummary()
	}
	if verbose > 1 {
		r.writeDistances()
		r.writeDiagnostics()
	}
}

// writeDiagnostics reports CPUs missing from the topology, CPUs the process
// may not use and topologies loaded from another system.
func (r *textRenderer) writeDiagnostics() {
	topo := r.topo.CPUSet()
	complete := r.topo.CompleteCPUSet()
	allowed := r.topo.AllowedCPUSet()

	if !topo.Equals(complete) {
		unknown := complete.Difference(topo)
		fmt.Fprintf(r.w, "%d processors not represented in topology: %s\n", unknown.Size(), cpu.FormatMask(unknown))
	}
	if !topo.Equals(allowed) {
		disallowed := topo.Difference(allowed)
		fmt.Fprintf(r.w, "%d processors represented but not allowed: %s\n", disallowed.Size(), cpu.FormatMask(disallowed))
	}
	if !r.topo.IsThisSystem() {
		io.WriteString(r.w, "Topology not from this system\n")
	}
}
