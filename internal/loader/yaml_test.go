// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package loader

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/cpuset"

	"github.com/antimetal/lstopo/internal/render"
	"github.com/antimetal/lstopo/pkg/topology"
)

const machineYAML = `
allowed: "0-2"
root:
  type: Machine
  os_index: 0
  memory:
    local: 8589934592
  infos:
    - name: Backend
      value: Linux
  children:
    - type: Package
      os_index: 0
      children:
        - type: L2Cache
          cache:
            size: 1048576
            linesize: 64
            associativity: 8
          children:
            - type: Core
              os_index: 0
              children:
                - {type: PU, os_index: 0}
                - {type: PU, os_index: 1}
            - type: Core
              os_index: 1
              children:
                - {type: PU, os_index: 2}
                - {type: PU, os_index: 3}
  io:
    - type: Bridge
      bridge:
        secondary_bus: "00"
        subordinate_bus: "3f"
      io:
        - type: PCIDev
          pci: {busid: "00:1f.0", vendor: "8086", device: "a323", class: "0c05"}
          collapse: 2
        - type: PCIDev
          pci: {busid: "00:1f.1", vendor: "8086", device: "a323", class: "0c05"}
          collapse: 0
        - type: PCIDev
          pci: {busid: "0000:00:19.0", vendor: "8086", device: "1533", class: "0200"}
          io:
            - {type: OSDev, osdev: network, name: eth0}
  misc:
    - {type: Misc, name: rack-1}
`

// TestParseYAML validates the object tree, attributes and sets of a
// description.
func TestParseYAML(t *testing.T) {
	topo, err := New(testr.New(t)).ParseYAML([]byte(machineYAML))
	require.NoError(t, err)

	root := topo.Root()
	assert.Equal(t, topology.TypeMachine, root.Type)
	assert.Equal(t, uint64(8<<30), root.Memory.Local)
	backend, ok := root.Info("Backend")
	assert.True(t, ok)
	assert.Equal(t, "Linux", backend)

	assert.Equal(t, 5, topo.Depth())
	assert.Equal(t, 4, topo.NbObjsByType(topology.TypePU))
	assert.Equal(t, 1, topo.NbObjsByType(topology.TypeBridge))
	assert.Equal(t, 3, topo.NbObjsByType(topology.TypePCIDevice))
	assert.Equal(t, 1, topo.NbObjsByType(topology.TypeOSDevice))
	assert.Equal(t, 1, topo.NbObjsByType(topology.TypeMisc))

	cache := topo.ObjByDepth(2, 0)
	require.NotNil(t, cache.Cache)
	assert.Equal(t, uint(2), cache.Cache.Level)
	assert.Equal(t, uint64(1<<20), cache.Cache.Size)
	assert.Equal(t, 8, cache.Cache.Associativity)
	assert.True(t, cache.CPUSet.Equals(cpuset.New(0, 1, 2, 3)))

	nic := topo.ObjByDepth(topology.DepthPCIDevice, 2)
	require.NotNil(t, nic.PCI)
	assert.Equal(t, uint8(0x19), nic.PCI.Dev)
	assert.Equal(t, uint16(0x0200), nic.PCI.ClassID)

	eth := topo.ObjByDepth(topology.DepthOSDevice, 0)
	assert.Equal(t, topology.OSDevNetwork, eth.OSDev.Kind)
	assert.Equal(t, "eth0", eth.Name)

	assert.True(t, topo.AllowedCPUSet().Equals(cpuset.New(0, 1, 2)))
	assert.True(t, topo.CompleteCPUSet().Equals(cpuset.New(0, 1, 2, 3)))
	assert.False(t, topo.IsThisSystem())
}

// TestParseYAMLRender validates a loaded description end to end.
func TestParseYAMLRender(t *testing.T) {
	topo, err := New(testr.New(t)).ParseYAML([]byte(machineYAML))
	require.NoError(t, err)

	opts := render.DefaultOptions()
	opts.Logger = testr.New(t)
	var buf bytes.Buffer
	require.NoError(t, render.WriteConsole(&buf, topo, opts))

	expected := `Machine L#0 (8192MB) + Package L#0 + L2 L#0 (1024KB)
  Core L#0
    PU L#0 (P#0)
    PU L#1 (P#1)
  Core L#1
    PU L#2 (P#2)
    PU L#3 (P#3)
  HostBridge
    2 x { PCI 00:1f.0-1 (SMBus) }
    PCI 00:19.0 (Ethernet)
      Net "eth0"
  Misc rack-1
`
	assert.Equal(t, expected, buf.String())
}

func TestParseYAMLOptionalFields(t *testing.T) {
	data := `
this_system: true
complete: "0x000000ff"
root:
  type: Machine
  children:
    - {type: PU, cpuset: "0x1"}
`
	topo, err := New(testr.New(t)).ParseYAML([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, topology.UnsetIndex, topo.Root().OSIndex)
	assert.True(t, topo.IsThisSystem())
	assert.True(t, topo.CompleteCPUSet().Equals(cpuset.New(0, 1, 2, 3, 4, 5, 6, 7)))
	assert.True(t, topo.ObjByDepth(1, 0).CPUSet.Equals(cpuset.New(0)))
}

func TestParseYAMLDistances(t *testing.T) {
	data := `
root:
  type: Machine
  os_index: 0
  distances:
    - relative_depth: 1
      latency:
        - [10, 21]
        - [21, 10]
  children:
    - {type: NUMANode, os_index: 0, children: [{type: PU, os_index: 0}]}
    - {type: NUMANode, os_index: 1, children: [{type: PU, os_index: 1}]}
`
	topo, err := New(testr.New(t)).ParseYAML([]byte(data))
	require.NoError(t, err)

	distances := topo.Root().Distances
	require.Len(t, distances, 1)
	assert.Equal(t, 1, distances[0].RelativeDepth)
	assert.Equal(t, 2, distances[0].NbObjs)
	assert.Equal(t, []float64{10, 21, 21, 10}, distances[0].Latency)
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not YAML", data: "root: [unterminated"},
		{name: "no root", data: "allowed: 0-3\n"},
		{name: "unknown type", data: "root: {type: Spaceship}\n"},
		{name: "bad cpuset", data: "root: {type: Machine, cpuset: \"3-1\"}\n"},
		{name: "bad bus id", data: "root:\n  type: Machine\n  io:\n    - {type: PCIDev, pci: {busid: \"zz\"}}\n"},
		{name: "bad osdev kind", data: "root:\n  type: Machine\n  io:\n    - {type: OSDev, osdev: floppy}\n"},
		{name: "ragged latency", data: "root:\n  type: Machine\n  distances:\n    - {relative_depth: 1, latency: [[1, 2], [1]]}\n"},
		{name: "bad allowed set", data: "allowed: \"x\"\nroot: {type: Machine}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(testr.New(t)).ParseYAML([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(machineYAML), 0o644))

	topo, err := New(testr.New(t)).LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 4, topo.NbObjsByType(topology.TypePU))

	_, err = New(testr.New(t)).LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseBusID(t *testing.T) {
	tests := []struct {
		input  string
		domain uint16
		bus    uint8
		dev    uint8
		fn     uint8
		err    bool
	}{
		{input: "00:1f.3", bus: 0, dev: 0x1f, fn: 3},
		{input: "0001:81:00.1", domain: 1, bus: 0x81, dev: 0, fn: 1},
		{input: "81:00", err: true},
		{input: "1:2:3:4.5", err: true},
		{input: "gg:00.0", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			domain, bus, dev, fn, err := parseBusID(tt.input)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.domain, domain)
			assert.Equal(t, tt.bus, bus)
			assert.Equal(t, tt.dev, dev)
			assert.Equal(t, tt.fn, fn)
		})
	}
}

func TestCacheFromTypeName(t *testing.T) {
	tests := []struct {
		name  string
		level uint
		kind  topology.CacheKind
	}{
		{name: "L2Cache", level: 2, kind: topology.CacheUnified},
		{name: "L1d", level: 1, kind: topology.CacheData},
		{name: "L1iCache", level: 1, kind: topology.CacheInstruction},
		{name: "Cache", level: 0, kind: topology.CacheUnified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, err := convertCache(tt.name, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.level, cache.Level)
			assert.Equal(t, tt.kind, cache.Kind)
		})
	}
}
