// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package topology

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"k8s.io/utils/cpuset"
)

var (
	// ErrNoRoot is returned by Build when no root object was added.
	ErrNoRoot = errors.New("topology has no root object")
	// ErrInvalidObject is returned by Build when an object was linked where its
	// type cannot live.
	ErrInvalidObject = errors.New("invalid topology object")
)

type linkKind int

const (
	linkNormal linkKind = iota
	linkIO
	linkMisc
)

// Builder assembles a Topology. Objects are added top-down; Build assigns the
// structural fields and validates the tree.
type Builder struct {
	logger  logr.Logger
	objects []Object
	root    ID

	complete   *cpuset.CPUSet
	allowed    *cpuset.CPUSet
	thisSystem bool

	errs []error
}

// NewBuilder creates a new topology builder
func NewBuilder(logger logr.Logger) *Builder {
	return &Builder{
		logger: logger.WithName("topology"),
		root:   NoObject,
	}
}

// Add links obj as a normal child of parent. A parent of NoObject makes obj
// the root.
func (b *Builder) Add(parent ID, obj Object) ID {
	if parent == NoObject {
		if b.root != NoObject {
			b.errs = append(b.errs, fmt.Errorf("%w: second root %s", ErrInvalidObject, TypeName(obj.Type)))
			return NoObject
		}
		if IsSpecial(obj.Type) {
			b.errs = append(b.errs, fmt.Errorf("%w: %s cannot be the root", ErrInvalidObject, TypeName(obj.Type)))
			return NoObject
		}
		id := b.store(obj, NoObject)
		b.root = id
		return id
	}
	return b.link(parent, obj, linkNormal)
}

// AddIO links a bridge, PCI device or OS device below parent.
func (b *Builder) AddIO(parent ID, obj Object) ID {
	return b.link(parent, obj, linkIO)
}

// AddMisc links a misc object below parent.
func (b *Builder) AddMisc(parent ID, obj Object) ID {
	return b.link(parent, obj, linkMisc)
}

// SetDistances attaches latency matrices to a normal object.
func (b *Builder) SetDistances(owner ID, distances ...Distances) {
	if !b.valid(owner) {
		b.errs = append(b.errs, fmt.Errorf("%w: distances attached to unknown object %d", ErrInvalidObject, owner))
		return
	}
	obj := &b.objects[owner]
	obj.Distances = append(obj.Distances, distances...)
}

// SetComplete sets the CPUs of the whole system. It defaults to the root cpuset.
func (b *Builder) SetComplete(set cpuset.CPUSet) {
	b.complete = &set
}

// SetAllowed sets the CPUs the process may use. It defaults to the root cpuset.
func (b *Builder) SetAllowed(set cpuset.CPUSet) {
	b.allowed = &set
}

// SetThisSystem marks the topology as describing the running system.
func (b *Builder) SetThisSystem(thisSystem bool) {
	b.thisSystem = thisSystem
}

func (b *Builder) valid(id ID) bool {
	return id >= 0 && int(id) < len(b.objects)
}

func (b *Builder) store(obj Object, parent ID) ID {
	id := ID(len(b.objects))
	obj.ID = id
	obj.Parent = parent
	obj.Children = nil
	obj.IOChildren = nil
	obj.MiscChildren = nil
	obj.nextCousin = NoObject
	b.objects = append(b.objects, obj)
	return id
}

func (b *Builder) link(parent ID, obj Object, kind linkKind) ID {
	if !b.valid(parent) {
		b.errs = append(b.errs, fmt.Errorf("%w: %s added below unknown object %d", ErrInvalidObject, TypeName(obj.Type), parent))
		return NoObject
	}

	var ok bool
	switch kind {
	case linkNormal:
		ok = !IsSpecial(obj.Type) && obj.Type != TypeRoot && obj.Type != TypeNone
	case linkIO:
		ok = IsIO(obj.Type)
	case linkMisc:
		ok = obj.Type == TypeMisc
	}
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("%w: %s cannot be linked as this kind of child", ErrInvalidObject, TypeName(obj.Type)))
		return NoObject
	}
	if kind == linkNormal && IsSpecial(b.objects[parent].Type) {
		b.errs = append(b.errs, fmt.Errorf("%w: %s cannot be a normal child of %s", ErrInvalidObject,
			TypeName(obj.Type), TypeName(b.objects[parent].Type)))
		return NoObject
	}

	id := b.store(obj, parent)
	p := &b.objects[parent]
	switch kind {
	case linkNormal:
		p.Children = append(p.Children, id)
	case linkIO:
		p.IOChildren = append(p.IOChildren, id)
	case linkMisc:
		p.MiscChildren = append(p.MiscChildren, id)
	}
	return id
}

// Build finalizes the topology. The builder must not be used afterwards.
func (b *Builder) Build() (*Topology, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if b.root == NoObject {
		return nil, ErrNoRoot
	}

	t := &Topology{
		objects:    b.objects,
		root:       b.root,
		special:    make(map[int][]ID),
		thisSystem: b.thisSystem,
	}
	b.objects = nil

	t.finishCPUSets(t.root)
	t.finishMemory(t.root)
	if err := t.buildLevels(t.root, 0); err != nil {
		return nil, err
	}
	t.buildSpecialLevels(t.root)
	t.linkCousins()
	t.propagateSymmetry(t.root)
	if err := t.checkDistances(); err != nil {
		return nil, err
	}

	t.complete = t.CPUSet()
	if b.complete != nil {
		t.complete = *b.complete
	}
	t.allowed = t.CPUSet()
	if b.allowed != nil {
		t.allowed = *b.allowed
	}

	b.logger.V(1).Info("Built topology",
		"objects", len(t.objects), "depth", t.Depth(), "cpus", t.CPUSet().Size(),
		"pciNonzeroDomains", t.pciNonzeroDomains)
	return t, nil
}

// finishCPUSets fills missing cpusets of normal objects: a PU covers its own
// OS index and any other object covers the union of its children.
func (t *Topology) finishCPUSets(id ID) {
	obj := &t.objects[id]
	for _, child := range obj.Children {
		t.finishCPUSets(child)
	}
	if obj.CPUSet != nil {
		return
	}
	if obj.Type == TypePU && obj.OSIndex != UnsetIndex {
		obj.CPUSet = NewCPUSet(int(obj.OSIndex))
		return
	}
	set := cpuset.New()
	for _, child := range obj.Children {
		if cs := t.objects[child].CPUSet; cs != nil {
			set = set.Union(*cs)
		}
	}
	obj.CPUSet = &set
}

// finishMemory computes missing total memory from local memory and children.
func (t *Topology) finishMemory(id ID) uint64 {
	obj := &t.objects[id]
	var below uint64
	for _, child := range obj.Children {
		below += t.finishMemory(child)
	}
	if obj.Memory.Total == 0 {
		obj.Memory.Total = obj.Memory.Local + below
	}
	return obj.Memory.Total
}

func (t *Topology) buildLevels(id ID, depth int) error {
	obj := &t.objects[id]
	obj.Depth = depth
	if depth == len(t.levels) {
		t.levels = append(t.levels, nil)
	} else if first := t.objects[t.levels[depth][0]].Type; first != obj.Type {
		return fmt.Errorf("%w: %s and %s objects share depth %d", ErrInvalidObject,
			TypeName(first), TypeName(obj.Type), depth)
	}
	obj.LogicalIndex = uint(len(t.levels[depth]))
	t.levels[depth] = append(t.levels[depth], id)

	for _, child := range obj.Children {
		if err := t.buildLevels(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// buildSpecialLevels walks the whole tree in the order it is rendered and
// appends I/O and misc objects to their virtual levels.
func (t *Topology) buildSpecialLevels(id ID) {
	obj := &t.objects[id]
	if IsSpecial(obj.Type) {
		depth := SpecialDepth(obj.Type)
		obj.Depth = depth
		obj.LogicalIndex = uint(len(t.special[depth]))
		t.special[depth] = append(t.special[depth], id)
	}
	switch {
	case obj.PCI != nil && obj.PCI.Domain != 0:
		t.pciNonzeroDomains = true
	case obj.Bridge != nil && (obj.Bridge.Domain != 0 || (obj.Bridge.UpstreamPCI && obj.Bridge.Upstream.Domain != 0)):
		t.pciNonzeroDomains = true
	}

	for _, child := range obj.Children {
		t.buildSpecialLevels(child)
	}
	for _, child := range obj.IOChildren {
		t.buildSpecialLevels(child)
	}
	for _, child := range obj.MiscChildren {
		t.buildSpecialLevels(child)
	}
}

func (t *Topology) linkCousins() {
	link := func(level []ID) {
		for i := 0; i+1 < len(level); i++ {
			t.objects[level[i]].nextCousin = level[i+1]
		}
	}
	for _, level := range t.levels {
		link(level)
	}
	for _, level := range t.special {
		link(level)
	}
}

// propagateSymmetry marks objects whose normal children subtrees all have
// the same shape. Leaves are symmetric.
func (t *Topology) propagateSymmetry(id ID) {
	obj := &t.objects[id]
	obj.SymmetricSubtree = false
	if len(obj.Children) == 0 {
		obj.SymmetricSubtree = true
		return
	}

	symmetric := true
	for _, child := range obj.Children {
		t.propagateSymmetry(child)
		if !t.objects[child].SymmetricSubtree {
			symmetric = false
		}
	}
	if !symmetric {
		return
	}

	walk := make([]*Object, len(obj.Children))
	for i, child := range obj.Children {
		walk[i] = &t.objects[child]
	}
	for {
		first := walk[0]
		for _, o := range walk[1:] {
			if o.Depth != first.Depth || len(o.Children) != len(first.Children) {
				return
			}
		}
		if len(first.Children) == 0 {
			break
		}
		for i, o := range walk {
			walk[i] = &t.objects[o.Children[0]]
		}
	}
	obj.SymmetricSubtree = true
}

func (t *Topology) checkDistances() error {
	for i := range t.objects {
		obj := &t.objects[i]
		for _, d := range obj.Distances {
			if IsSpecial(obj.Type) {
				return fmt.Errorf("%w: distances attached to %s", ErrInvalidObject, TypeName(obj.Type))
			}
			if d.RelativeDepth < 1 || obj.Depth+d.RelativeDepth >= t.Depth() {
				return fmt.Errorf("%w: distances of %s L#%d compare depth %d which does not exist",
					ErrInvalidObject, TypeName(obj.Type), obj.LogicalIndex, obj.Depth+d.RelativeDepth)
			}
			if len(d.Latency) != 0 && len(d.Latency) != d.NbObjs*d.NbObjs {
				return fmt.Errorf("%w: distances of %s L#%d hold %d latencies for %d objects",
					ErrInvalidObject, TypeName(obj.Type), obj.LogicalIndex, len(d.Latency), d.NbObjs)
			}
		}
	}
	return nil
}
