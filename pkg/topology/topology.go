// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package topology models a hardware topology tree: machines, NUMA nodes,
// packages, caches, cores and processing units on normal levels, plus bridges,
// PCI devices, OS devices and misc objects on virtual levels.
//
// A Topology is built once with a Builder and is read-only afterwards. Objects
// are owned by the Topology and addressed by ID handles.
package topology

import (
	"k8s.io/utils/cpuset"
)

// Topology is an immutable object tree with per-depth levels.
type Topology struct {
	objects []Object
	root    ID
	levels  [][]ID
	special map[int][]ID

	complete   cpuset.CPUSet
	allowed    cpuset.CPUSet
	thisSystem bool

	pciNonzeroDomains bool
}

// Root returns the root object.
func (t *Topology) Root() *Object {
	return &t.objects[t.root]
}

// Object returns the object with the given handle, or nil.
func (t *Topology) Object(id ID) *Object {
	if id < 0 || int(id) >= len(t.objects) {
		return nil
	}
	return &t.objects[id]
}

// Parent returns the parent of obj, or nil for the root.
func (t *Topology) Parent(obj *Object) *Object {
	return t.Object(obj.Parent)
}

// Depth returns the number of normal levels.
func (t *Topology) Depth() int {
	return len(t.levels)
}

func (t *Topology) level(depth int) []ID {
	if depth >= 0 {
		if depth >= len(t.levels) {
			return nil
		}
		return t.levels[depth]
	}
	return t.special[depth]
}

// NbObjsByDepth returns the number of objects at a normal or virtual depth.
func (t *Topology) NbObjsByDepth(depth int) int {
	return len(t.level(depth))
}

// ObjByDepth returns the idx-th object at depth, or nil.
func (t *Topology) ObjByDepth(depth, idx int) *Object {
	level := t.level(depth)
	if idx < 0 || idx >= len(level) {
		return nil
	}
	return &t.objects[level[idx]]
}

// DepthType returns the type of the objects at depth, or TypeNone.
func (t *Topology) DepthType(depth int) ObjType {
	level := t.level(depth)
	if len(level) == 0 {
		switch depth {
		case DepthBridge:
			return TypeBridge
		case DepthPCIDevice:
			return TypePCIDevice
		case DepthOSDevice:
			return TypeOSDevice
		case DepthMisc:
			return TypeMisc
		}
		return TypeNone
	}
	return t.objects[level[0]].Type
}

// TypeDepth returns the depth of the level holding objects of type typ. It is
// DepthMultiple when several levels hold the type, as with caches, and
// DepthUnknown when none does.
func (t *Topology) TypeDepth(typ ObjType) int {
	if IsSpecial(typ) {
		return SpecialDepth(typ)
	}
	depth := DepthUnknown
	for d := range t.levels {
		if t.DepthType(d) != typ {
			continue
		}
		if depth != DepthUnknown {
			return DepthMultiple
		}
		depth = d
	}
	return depth
}

// NbObjsByType returns the number of objects of a type across all levels.
func (t *Topology) NbObjsByType(typ ObjType) int {
	if IsSpecial(typ) {
		return t.NbObjsByDepth(SpecialDepth(typ))
	}
	n := 0
	for d := range t.levels {
		if t.DepthType(d) == typ {
			n += len(t.levels[d])
		}
	}
	return n
}

// NextCousin returns the next object on the same level as obj, or nil.
func (t *Topology) NextCousin(obj *Object) *Object {
	return t.Object(obj.nextCousin)
}

// ObjsInsideCPUSetByDepth returns the objects at depth whose non-empty cpuset
// is included in set, in logical index order.
func (t *Topology) ObjsInsideCPUSetByDepth(set cpuset.CPUSet, depth int) []*Object {
	var objs []*Object
	for _, id := range t.level(depth) {
		obj := &t.objects[id]
		if obj.CPUSet == nil || obj.CPUSet.IsEmpty() {
			continue
		}
		if obj.CPUSet.IsSubsetOf(set) {
			objs = append(objs, obj)
		}
	}
	return objs
}

// CPUSet returns the set of CPUs covered by the topology.
func (t *Topology) CPUSet() cpuset.CPUSet {
	if cs := t.Root().CPUSet; cs != nil {
		return *cs
	}
	return cpuset.New()
}

// CompleteCPUSet returns every CPU of the system, including CPUs the topology
// does not represent.
func (t *Topology) CompleteCPUSet() cpuset.CPUSet {
	return t.complete
}

// AllowedCPUSet returns the CPUs the current process may use.
func (t *Topology) AllowedCPUSet() cpuset.CPUSet {
	return t.allowed
}

// IsThisSystem reports whether the topology describes the running system.
func (t *Topology) IsThisSystem() bool {
	return t.thisSystem
}

// PCINonzeroDomains reports whether any PCI object sits in a non-zero domain.
func (t *Topology) PCINonzeroDomains() bool {
	return t.pciNonzeroDomains
}
