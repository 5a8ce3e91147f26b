// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package render

import (
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/lstopo/pkg/topology"
)

func TestIndexFragment(t *testing.T) {
	pci := &topology.Object{Type: topology.TypePCIDevice, OSIndex: topology.UnsetIndex, LogicalIndex: 4}
	core := &topology.Object{Type: topology.TypeCore, OSIndex: 7, LogicalIndex: 2}
	unset := &topology.Object{Type: topology.TypeCore, OSIndex: topology.UnsetIndex, LogicalIndex: 2}

	tests := []struct {
		name     string
		obj      *topology.Object
		logical  bool
		verbose  int
		expected string
	}{
		{name: "logical core", obj: core, logical: true, verbose: 1, expected: " L#2"},
		{name: "physical core", obj: core, verbose: 1, expected: " P#7"},
		{name: "unset physical index is hidden", obj: unset, verbose: 2, expected: ""},
		{name: "special hidden below verbose 2", obj: pci, logical: true, verbose: 1, expected: ""},
		{name: "special shown at verbose 2", obj: pci, logical: true, verbose: 2, expected: " L#4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Logical: tt.logical, Verbose: tt.verbose}
			phys, logical := indexStrings(tt.obj, 1)
			assert.Equal(t, tt.expected, indexFragment(tt.obj, opts, phys, logical))
		})
	}
}

func TestIndexStringsCollapsed(t *testing.T) {
	obj := &topology.Object{Type: topology.TypePCIDevice, OSIndex: 9, LogicalIndex: 5}

	phys, logical := indexStrings(obj, 3)
	assert.Equal(t, "[collapsed]", phys)
	assert.Equal(t, "5-7", logical)

	phys, logical = indexStrings(obj, 1)
	assert.Equal(t, "9", phys)
	assert.Equal(t, "5", logical)
}

func TestPhysicalFragment(t *testing.T) {
	tests := []struct {
		name     string
		obj      *topology.Object
		opts     Options
		expected string
	}{
		{name: "PU", obj: &topology.Object{Type: topology.TypePU, OSIndex: 3}, opts: Options{Logical: true, Verbose: 1}, expected: "P#3"},
		{name: "NUMA node", obj: &topology.Object{Type: topology.TypeNUMANode, OSIndex: 1}, opts: Options{Logical: true, Verbose: 1}, expected: "P#1"},
		{name: "core needs verbose 2", obj: &topology.Object{Type: topology.TypeCore, OSIndex: 1}, opts: Options{Logical: true, Verbose: 1}, expected: ""},
		{name: "core at verbose 2", obj: &topology.Object{Type: topology.TypeCore, OSIndex: 1}, opts: Options{Logical: true, Verbose: 2}, expected: "P#1"},
		{name: "physical mode", obj: &topology.Object{Type: topology.TypePU, OSIndex: 3}, opts: Options{Verbose: 2}, expected: ""},
		{name: "unset", obj: &topology.Object{Type: topology.TypePU, OSIndex: topology.UnsetIndex}, opts: Options{Logical: true, Verbose: 2}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phys, _ := indexStrings(tt.obj, 1)
			assert.Equal(t, tt.expected, physicalFragment(tt.obj, tt.opts, phys))
		})
	}
}

func TestAttributeFragment(t *testing.T) {
	attrs := topology.Attrs{{Value: "4096MB"}}

	assert.Equal(t, "", attributeFragment("", nil))
	assert.Equal(t, " (P#0)", attributeFragment("P#0", nil))
	assert.Equal(t, " (4096MB)", attributeFragment("", attrs))
	assert.Equal(t, " (P#0 4096MB)", attributeFragment("P#0", attrs))
}

func TestNameFragments(t *testing.T) {
	osdev := &topology.Object{Type: topology.TypeOSDevice, Name: "sda"}
	core := &topology.Object{Type: topology.TypeCore, Name: "big"}
	group := &topology.Object{Type: topology.TypeGroup, Name: "cluster"}
	misc := &topology.Object{Type: topology.TypeMisc, Name: "note"}

	assert.Equal(t, ` "sda"`, nameFragment(osdev, 1))
	assert.Equal(t, "", nameFragment(core, 1))
	assert.Equal(t, ` "big"`, nameFragment(core, 2))
	assert.Equal(t, "", nameFragment(group, 2))
	assert.Equal(t, "", nameFragment(misc, 2))

	assert.Equal(t, " cluster", labelFragment(group))
	assert.Equal(t, " note", labelFragment(misc))
	assert.Equal(t, "", labelFragment(core))
}

func TestTotalMemoryFragment(t *testing.T) {
	root := &topology.Object{Parent: topology.NoObject, Memory: topology.Memory{Local: 1 << 30, Total: 16 << 30}}
	child := &topology.Object{Parent: 0, Memory: topology.Memory{Local: 1 << 30, Total: 16 << 30}}
	flat := &topology.Object{Parent: topology.NoObject, Memory: topology.Memory{Local: 1 << 30, Total: 1 << 30}}

	assert.Equal(t, " (16GB total)", totalMemoryFragment(root, 1))
	assert.Equal(t, "", totalMemoryFragment(root, 2))
	assert.Equal(t, "", totalMemoryFragment(child, 1))
	assert.Equal(t, "", totalMemoryFragment(flat, 1))
}

func TestCollapseCount(t *testing.T) {
	tests := []struct {
		name     string
		obj      topology.Object
		expected uint
	}{
		{name: "no info", obj: topology.Object{Type: topology.TypePCIDevice}, expected: 1},
		{name: "count", obj: topology.Object{Type: topology.TypePCIDevice, Infos: []topology.Info{collapse("4")}}, expected: 4},
		{name: "hidden", obj: topology.Object{Type: topology.TypePCIDevice, Infos: []topology.Info{collapse("0")}}, expected: 0},
		{name: "trailing text", obj: topology.Object{Type: topology.TypePCIDevice, Infos: []topology.Info{collapse("2x")}}, expected: 2},
		{name: "leading plus", obj: topology.Object{Type: topology.TypePCIDevice, Infos: []topology.Info{collapse(" +3")}}, expected: 3},
		{name: "negative wraps", obj: topology.Object{Type: topology.TypePCIDevice, Infos: []topology.Info{collapse("-1")}}, expected: 4294967295},
		{name: "sign without digits", obj: topology.Object{Type: topology.TypePCIDevice, Infos: []topology.Info{collapse("-x")}}, expected: 0},
		{name: "not a number", obj: topology.Object{Type: topology.TypePCIDevice, Infos: []topology.Info{collapse("many")}}, expected: 0},
		{name: "only PCI devices collapse", obj: topology.Object{Type: topology.TypeOSDevice, Infos: []topology.Info{collapse("0")}}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, collapseCount(&tt.obj))
		})
	}
}

// TestBusIDString validates bus ids with and without domains and collapsing.
func TestBusIDString(t *testing.T) {
	build := func(t *testing.T, domain uint16) *topology.Topology {
		b := topology.NewBuilder(testr.New(t))
		root := b.Add(topology.NoObject, topology.Object{Type: topology.TypeMachine, OSIndex: 0})
		b.Add(root, topology.Object{Type: topology.TypePU, OSIndex: 0})
		host := b.AddIO(root, topology.Object{Type: topology.TypeBridge, OSIndex: topology.UnsetIndex,
			Bridge: &topology.BridgeAttr{Domain: domain}})
		for fn := uint8(0); fn < 2; fn++ {
			dev := pciDevice(0x81, 0, fn, 0x8086, 0x10fb, classEthernet)
			dev.PCI.Domain = domain
			b.AddIO(host, dev)
		}
		dev := pciDevice(0x81, 1, 0, 0x8086, 0x10fb, classEthernet)
		dev.PCI.Domain = domain
		b.AddIO(host, dev)
		topo, err := b.Build()
		require.NoError(t, err)
		return topo
	}

	local := build(t, 0)
	first := local.ObjByDepth(topology.DepthPCIDevice, 0)
	assert.Equal(t, "81:00.0", busIDString(local, first, 0))
	assert.Equal(t, "81:00.0", busIDString(local, first, 1))
	assert.Equal(t, "81:00.0-1", busIDString(local, first, 2))
	assert.Equal(t, "81:00.0-01.0", busIDString(local, first, 3))
	assert.Equal(t, "81:00.0-01.0", busIDString(local, first, 9), "ranges stop at the last cousin")

	remote := build(t, 2)
	assert.Equal(t, "0002:81:00.0-1", busIDString(remote, remote.ObjByDepth(topology.DepthPCIDevice, 0), 2))
}

// TestCollapseBusID validates the field substitution, including attributes
// without a bus id.
func TestCollapseBusID(t *testing.T) {
	attrs := topology.Attrs{
		{Key: topology.AttrBusID, Value: "0000:00:1f.0"},
		{Key: topology.AttrID, Value: "8086:a323"},
	}
	assert.Equal(t, "busid=00:1f.0-2 id=8086:a323", collapseBusID(attrs, "00:1f.0-2").String(" "))

	plain := topology.Attrs{{Value: "4096MB"}}
	assert.Equal(t, "4096MB", collapseBusID(plain, "00:1f.0-2").String(" "))
}
