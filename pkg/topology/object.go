// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package topology

import (
	"k8s.io/utils/cpuset"
)

// ID is a handle to an object owned by a Topology.
type ID int

// NoObject is the handle of a missing object, e.g. the parent of the root.
const NoObject ID = -1

// UnsetIndex marks an index that is not known. It is never displayed.
const UnsetIndex = ^uint(0)

// InfoCollapse is the info name holding the number of identical consecutive
// PCI devices an object stands for. "0" hides the device.
const InfoCollapse = "lstopoCollapse"

// Memory holds byte counts of memory attached to an object. Total includes the
// memory of the whole subtree.
type Memory struct {
	Local uint64
	Total uint64
}

// CacheAttr describes a CPU cache. Associativity -1 means fully associative and
// 0 means unknown.
type CacheAttr struct {
	Level         uint
	Size          uint64
	LineSize      uint
	Associativity int
	Kind          CacheKind
}

// GroupAttr holds the depth of a group among groups, or UnsetIndex.
type GroupAttr struct {
	Depth uint
}

// PCIAttr describes a PCI function. LinkSpeed is in GB/s, 0 when unknown.
type PCIAttr struct {
	Domain    uint16
	Bus       uint8
	Dev       uint8
	Func      uint8
	VendorID  uint16
	DeviceID  uint16
	ClassID   uint16
	LinkSpeed float64
}

// BridgeAttr describes a host or PCI-to-PCI bridge and the buses below it.
// Upstream is only meaningful when UpstreamPCI is set.
type BridgeAttr struct {
	UpstreamPCI    bool
	Upstream       PCIAttr
	Domain         uint16
	SecondaryBus   uint8
	SubordinateBus uint8
}

// OSDevAttr describes an operating-system device.
type OSDevAttr struct {
	Kind OSDevKind
}

// Info is a free-form name/value annotation.
type Info struct {
	Name  string
	Value string
}

// Distances is a matrix of relative latencies between the objects that are
// RelativeDepth levels below the owner and inside its cpuset. Latency is row
// major with NbObjs*NbObjs entries, or empty when no latency is known.
type Distances struct {
	RelativeDepth int
	NbObjs        int
	Latency       []float64
}

// Object is a node of the topology tree. Callers fill the descriptive fields
// and hand the object to a Builder, which sets the structural ones.
type Object struct {
	Type    ObjType
	Subtype string
	Name    string

	// OSIndex is the physical index, or UnsetIndex.
	OSIndex uint

	// CPUSet is nil for I/O and misc objects.
	CPUSet *cpuset.CPUSet
	Memory Memory

	Cache  *CacheAttr
	Group  *GroupAttr
	PCI    *PCIAttr
	Bridge *BridgeAttr
	OSDev  *OSDevAttr

	Infos     []Info
	Distances []Distances

	// Set by Builder.Build.
	ID               ID
	Parent           ID
	Depth            int
	LogicalIndex     uint
	Children         []ID
	IOChildren       []ID
	MiscChildren     []ID
	SymmetricSubtree bool

	nextCousin ID
}

// Info returns the value of the first info with the given name.
func (o *Object) Info(name string) (string, bool) {
	for _, info := range o.Infos {
		if info.Name == name {
			return info.Value, true
		}
	}
	return "", false
}

// Arity is the number of normal children.
func (o *Object) Arity() int {
	return len(o.Children)
}

// NewCPUSet returns a pointer to a set of the given CPUs, for Object.CPUSet.
func NewCPUSet(cpus ...int) *cpuset.CPUSet {
	set := cpuset.New(cpus...)
	return &set
}
