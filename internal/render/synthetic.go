// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package render

import (
	"fmt"

	"github.com/antimetal/lstopo/pkg/topology"
)

// Synthetic writes the synthetic description of topo followed by a newline to
// the sink called filename. Asymmetric topologies and export failures are
// reported on Options.Stderr and leave the sink untouched.
func Synthetic(topo *topology.Topology, opts Options, filename string) error {
	logger := opts.Logger.WithName("synthetic")
	stderr := opts.stderr()

	if !topo.Root().SymmetricSubtree {
		fmt.Fprintf(stderr, "Cannot output assymetric topology in synthetic format.\n")
		return fmt.Errorf("%w: %w", topology.ErrExport, topology.ErrAsymmetric)
	}

	if misc := topo.NbObjsByType(topology.TypeMisc); misc > 0 {
		fmt.Fprintf(stderr, "Ignoring %d Misc objects.\n", misc)
		fmt.Fprintf(stderr, "Passing --ignore Misc may remove them.\n")
	}
	bridges := topo.NbObjsByType(topology.TypeBridge)
	pcidevs := topo.NbObjsByType(topology.TypePCIDevice)
	osdevs := topo.NbObjsByType(topology.TypeOSDevice)
	if bridges+pcidevs+osdevs > 0 {
		fmt.Fprintf(stderr, "Ignoring %d Bridge, %d PCI device and %d OS device objects\n", bridges, pcidevs, osdevs)
		fmt.Fprintf(stderr, "Passing --no-io may remove them.\n")
	}

	desc, err := topology.ExportSynthetic(topo, opts.ExportSyntheticFlags)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to export a synthetic description (%s)\n", err)
		return err
	}

	out, err := OpenOutput(filename, opts.Overwrite, opts.stdout())
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open %s for writing (%s)\n", filename, systemErrorText(err))
		logger.Error(err, "Failed to open output", "filename", filename)
		return err
	}
	fmt.Fprintf(out, "%s\n", desc)
	if err := out.Close(); err != nil {
		logger.Error(err, "Failed to write synthetic description", "filename", filename)
		return err
	}

	logger.V(1).Info("Wrote synthetic description", "filename", filename, "description", desc)
	return nil
}
