// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package render

import (
	"bytes"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/lstopo/pkg/topology"
)

const (
	classVGA      = 0x0300
	classSMBus    = 0x0c05
	classEthernet = 0x0200
	classHost     = 0x0600
)

// smallMachine is one package with two cores of two PUs and 8GB of memory.
// customize runs before Build.
func smallMachine(t *testing.T, customize func(b *topology.Builder)) *topology.Topology {
	t.Helper()
	b := topology.NewBuilder(testr.New(t))
	root := b.Add(topology.NoObject, topology.Object{
		Type: topology.TypeMachine, OSIndex: 0, Memory: topology.Memory{Local: 8 << 30},
	})
	pkg := b.Add(root, topology.Object{Type: topology.TypePackage, OSIndex: 0})
	for c := 0; c < 2; c++ {
		core := b.Add(pkg, topology.Object{Type: topology.TypeCore, OSIndex: uint(c)})
		for p := 0; p < 2; p++ {
			b.Add(core, topology.Object{Type: topology.TypePU, OSIndex: uint(c*2 + p)})
		}
	}
	if customize != nil {
		customize(b)
	}
	topo, err := b.Build()
	require.NoError(t, err)
	return topo
}

// numaMachine is two NUMA nodes of 4GB, each with one core of two PUs, and
// a latency matrix between the nodes attached to the machine.
func numaMachine(t *testing.T) *topology.Topology {
	t.Helper()
	b := topology.NewBuilder(testr.New(t))
	root := b.Add(topology.NoObject, topology.Object{Type: topology.TypeMachine, OSIndex: 0})
	for n := 0; n < 2; n++ {
		node := b.Add(root, topology.Object{
			Type: topology.TypeNUMANode, OSIndex: uint(n), Memory: topology.Memory{Local: 4 << 30},
		})
		core := b.Add(node, topology.Object{Type: topology.TypeCore, OSIndex: uint(n)})
		b.Add(core, topology.Object{Type: topology.TypePU, OSIndex: uint(2 * n)})
		b.Add(core, topology.Object{Type: topology.TypePU, OSIndex: uint(2*n + 1)})
	}
	b.SetDistances(root, topology.Distances{
		RelativeDepth: 1,
		NbObjs:        2,
		Latency:       []float64{1, 2.1, 2.1, 1},
	})
	topo, err := b.Build()
	require.NoError(t, err)
	return topo
}

func pciDevice(bus, dev, fn uint8, vendor, device, class uint16, infos ...topology.Info) topology.Object {
	return topology.Object{
		Type:    topology.TypePCIDevice,
		OSIndex: topology.UnsetIndex,
		PCI: &topology.PCIAttr{
			Bus: bus, Dev: dev, Func: fn, VendorID: vendor, DeviceID: device, ClassID: class,
		},
		Infos: infos,
	}
}

func collapse(n string) topology.Info {
	return topology.Info{Name: topology.InfoCollapse, Value: n}
}

// ioMachine is a machine with a single PU, a host bridge holding a VGA
// device, three collapsed SMBus functions and a PCI bridge with an Ethernet
// device and its network interface, plus a misc annotation.
func ioMachine(t *testing.T) *topology.Topology {
	t.Helper()
	b := topology.NewBuilder(testr.New(t))
	root := b.Add(topology.NoObject, topology.Object{Type: topology.TypeMachine, OSIndex: 0})
	b.Add(root, topology.Object{Type: topology.TypePU, OSIndex: 0})

	host := b.AddIO(root, topology.Object{
		Type:    topology.TypeBridge,
		OSIndex: topology.UnsetIndex,
		Bridge:  &topology.BridgeAttr{SecondaryBus: 0, SubordinateBus: 0x3f},
	})
	b.AddIO(host, pciDevice(0, 0x02, 0, 0x8086, 0x0412, classVGA))
	b.AddIO(host, pciDevice(0, 0x1f, 0, 0x8086, 0xa323, classSMBus, collapse("3")))
	b.AddIO(host, pciDevice(0, 0x1f, 1, 0x8086, 0xa323, classSMBus, collapse("0")))
	b.AddIO(host, pciDevice(0, 0x1f, 2, 0x8086, 0xa323, classSMBus, collapse("0")))

	bridge := b.AddIO(host, topology.Object{
		Type:    topology.TypeBridge,
		OSIndex: topology.UnsetIndex,
		Bridge: &topology.BridgeAttr{
			UpstreamPCI:    true,
			Upstream:       topology.PCIAttr{Dev: 0x1c, VendorID: 0x8086, DeviceID: 0xa33c, ClassID: 0x0604},
			SecondaryBus:   1,
			SubordinateBus: 1,
		},
	})
	nic := b.AddIO(bridge, pciDevice(1, 0, 0, 0x8086, 0x1533, classEthernet))
	b.AddIO(nic, topology.Object{
		Type:    topology.TypeOSDevice,
		OSIndex: topology.UnsetIndex,
		Name:    "eth0",
		OSDev:   &topology.OSDevAttr{Kind: topology.OSDevNetwork},
		Infos:   []topology.Info{{Name: "Address", Value: "00:11:22:33:44:55"}},
	})

	b.AddMisc(root, topology.Object{Type: topology.TypeMisc, OSIndex: topology.UnsetIndex, Name: "annotation"})

	topo, err := b.Build()
	require.NoError(t, err)
	return topo
}

func testOptions(t *testing.T) Options {
	t.Helper()
	opts := DefaultOptions()
	opts.Logger = testr.New(t)
	return opts
}

func renderConsole(t *testing.T, topo *topology.Topology, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteConsole(&buf, topo, opts))
	return buf.String()
}
