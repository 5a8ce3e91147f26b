// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package hardware converts hardware inventory snapshots into topologies.
package hardware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"

	"github.com/antimetal/lstopo/pkg/topology"
)

// ErrNoProcessors is returned for snapshots without per-processor CPU data.
var ErrNoProcessors = errors.New("snapshot has no processors")

// Builder constructs topologies from hardware snapshots
type Builder struct {
	logger logr.Logger
	etcDir string
	varDir string
}

// NewBuilder creates a new snapshot builder. HOST_ETC and HOST_VAR relocate
// the files identifying the running system.
func NewBuilder(logger logr.Logger) *Builder {
	etcDir := os.Getenv("HOST_ETC")
	if etcDir == "" {
		etcDir = "/etc"
	}
	varDir := os.Getenv("HOST_VAR")
	if varDir == "" {
		varDir = "/var"
	}
	return &Builder{
		logger: logger.WithName("hardware"),
		etcDir: etcDir,
		varDir: varDir,
	}
}

type coreKey struct {
	pkg  int32
	core int32
}

// BuildFromSnapshot builds the topology of a snapshot: a machine holding NUMA
// nodes when NUMA is enabled, then packages, cores and PUs. Disks and network
// interfaces become OS devices below the machine.
func (b *Builder) BuildFromSnapshot(ctx context.Context, snapshot *Snapshot) (*topology.Topology, error) {
	b.logger.Info("Building topology from snapshot", "node", snapshot.NodeName)

	if snapshot.CPUInfo == nil || len(snapshot.CPUInfo.Cores) == 0 {
		return nil, ErrNoProcessors
	}

	tb := topology.NewBuilder(b.logger)
	machine := topology.Object{Type: topology.TypeMachine, OSIndex: 0}
	if snapshot.NodeName != "" {
		machine.Infos = append(machine.Infos, topology.Info{Name: "HostName", Value: snapshot.NodeName})
	}
	if snapshot.MachineID != "" {
		machine.Infos = append(machine.Infos, topology.Info{Name: "MachineID", Value: snapshot.MachineID})
	}

	nodes := b.numaNodes(snapshot)
	if nodes == nil && snapshot.MemoryInfo != nil {
		machine.Memory.Local = snapshot.MemoryInfo.TotalBytes
	}
	root := tb.Add(topology.NoObject, machine)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if nodes == nil {
		b.buildPackages(tb, root, snapshot.CPUInfo, snapshot.CPUInfo.Cores)
	} else {
		for _, node := range nodes {
			id := tb.Add(root, topology.Object{
				Type:    topology.TypeNUMANode,
				OSIndex: uint(node.NodeID),
				Memory:  topology.Memory{Local: node.TotalBytes},
			})
			b.logger.V(1).Info("Created NUMA node", "node", node.NodeID, "memory", humanize.IBytes(node.TotalBytes))
			b.buildPackages(tb, id, snapshot.CPUInfo, coresOf(snapshot.CPUInfo.Cores, node.CPUs))
		}
		if distances, ok := numaDistances(nodes); ok {
			tb.SetDistances(root, distances)
		} else {
			b.logger.V(1).Info("Incomplete NUMA distances, skipping latency matrix")
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, disk := range snapshot.DiskInfo {
		tb.AddIO(root, diskDevice(disk))
	}
	for _, iface := range snapshot.NetworkInfo {
		if iface.Type == "loopback" || iface.Interface == "lo" {
			continue
		}
		tb.AddIO(root, networkDevice(iface))
	}

	if id := localMachineID(b.etcDir, b.varDir); id != "" && id == snapshot.MachineID {
		tb.SetThisSystem(true)
	}

	topo, err := tb.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build topology: %w", err)
	}
	b.logger.Info("Successfully built topology",
		"pus", topo.NbObjsByType(topology.TypePU),
		"numaNodes", topo.NbObjsByType(topology.TypeNUMANode),
		"memory", humanize.IBytes(topo.Root().Memory.Total))
	return topo, nil
}

// numaNodes returns the NUMA nodes sorted by ID, or nil when NUMA is disabled
// or some processor belongs to no node.
func (b *Builder) numaNodes(snapshot *Snapshot) []NUMANode {
	mem := snapshot.MemoryInfo
	if mem == nil || !mem.NUMAEnabled || len(mem.NUMANodes) == 0 {
		return nil
	}

	nodes := slices.Clone(mem.NUMANodes)
	slices.SortFunc(nodes, func(a, b NUMANode) int { return int(a.NodeID) - int(b.NodeID) })

	covered := make(map[int32]bool)
	for _, node := range nodes {
		for _, cpu := range node.CPUs {
			covered[cpu] = true
		}
	}
	for _, core := range snapshot.CPUInfo.Cores {
		if !covered[core.Processor] {
			b.logger.V(1).Info("Processor outside any NUMA node, ignoring NUMA layout", "processor", core.Processor)
			return nil
		}
	}
	return nodes
}

// coresOf returns the processors of cores listed in cpus.
func coresOf(cores []CPUCore, cpus []int32) []CPUCore {
	var out []CPUCore
	for _, core := range cores {
		if slices.Contains(cpus, core.Processor) {
			out = append(out, core)
		}
	}
	return out
}

// buildPackages adds Package -> Core -> PU below parent for the processors
// in cores, ordered by package, core and processor number.
func (b *Builder) buildPackages(tb *topology.Builder, parent topology.ID, info *CPUInfo, cores []CPUCore) {
	byCore := make(map[coreKey][]int32)
	var keys []coreKey
	for _, core := range cores {
		key := coreKey{pkg: core.PhysicalID, core: core.CoreID}
		if _, ok := byCore[key]; !ok {
			keys = append(keys, key)
		}
		byCore[key] = append(byCore[key], core.Processor)
	}
	slices.SortFunc(keys, func(a, b coreKey) int {
		if a.pkg != b.pkg {
			return int(a.pkg) - int(b.pkg)
		}
		return int(a.core) - int(b.core)
	})

	pkgID := topology.NoObject
	current := int32(-1)
	for _, key := range keys {
		if pkgID == topology.NoObject || key.pkg != current {
			pkgID = tb.Add(parent, packageObject(info, key.pkg))
			current = key.pkg
		}
		coreID := tb.Add(pkgID, topology.Object{Type: topology.TypeCore, OSIndex: uint(key.core)})

		pus := byCore[key]
		slices.Sort(pus)
		for _, pu := range pus {
			tb.Add(coreID, topology.Object{Type: topology.TypePU, OSIndex: uint(pu)})
		}
	}
}

func packageObject(info *CPUInfo, physicalID int32) topology.Object {
	obj := topology.Object{Type: topology.TypePackage, OSIndex: uint(physicalID)}
	if info.VendorID != "" {
		obj.Infos = append(obj.Infos, topology.Info{Name: "CPUVendor", Value: info.VendorID})
	}
	if info.ModelName != "" {
		obj.Infos = append(obj.Infos, topology.Info{Name: "CPUModel", Value: info.ModelName})
	}
	return obj
}

// numaDistances builds the latency matrix between nodes, normalized so the
// smallest distance is 1. ok is false when some distance is missing.
func numaDistances(nodes []NUMANode) (d topology.Distances, ok bool) {
	n := len(nodes)
	if n < 2 {
		return d, false
	}

	raw := make([]int32, 0, n*n)
	for _, from := range nodes {
		for _, to := range nodes {
			if int(to.NodeID) >= len(from.Distances) {
				return d, false
			}
			raw = append(raw, from.Distances[to.NodeID])
		}
	}
	base := slices.Min(raw)
	if base <= 0 {
		return d, false
	}

	d = topology.Distances{RelativeDepth: 1, NbObjs: n, Latency: make([]float64, len(raw))}
	for i, v := range raw {
		d.Latency[i] = float64(v) / float64(base)
	}
	return d, true
}

func diskDevice(disk *DiskInfo) topology.Object {
	obj := topology.Object{
		Type:    topology.TypeOSDevice,
		OSIndex: topology.UnsetIndex,
		Name:    disk.Device,
		OSDev:   &topology.OSDevAttr{Kind: topology.OSDevBlock},
	}
	if disk.Vendor != "" {
		obj.Infos = append(obj.Infos, topology.Info{Name: "Vendor", Value: strings.TrimSpace(disk.Vendor)})
	}
	if disk.Model != "" {
		obj.Infos = append(obj.Infos, topology.Info{Name: "Model", Value: strings.TrimSpace(disk.Model)})
	}
	if disk.SizeBytes != 0 {
		obj.Infos = append(obj.Infos, topology.Info{Name: "Size", Value: strconv.FormatUint(disk.SizeBytes>>10, 10)})
	}
	if disk.Rotational {
		obj.Subtype = "HDD"
	} else if strings.HasPrefix(disk.Device, "nvme") {
		obj.Subtype = "NVMe"
	}
	return obj
}

func networkDevice(iface *NetworkInfo) topology.Object {
	obj := topology.Object{
		Type:    topology.TypeOSDevice,
		OSIndex: topology.UnsetIndex,
		Name:    iface.Interface,
		OSDev:   &topology.OSDevAttr{Kind: topology.OSDevNetwork},
	}
	if iface.MACAddress != "" {
		obj.Infos = append(obj.Infos, topology.Info{Name: "Address", Value: iface.MACAddress})
	}
	return obj
}
