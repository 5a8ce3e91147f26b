// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package topology

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SyntheticFlags tune ExportSynthetic.
type SyntheticFlags uint

const (
	// SyntheticNoExtendedTypes uses plain type names ("Cache") instead of
	// extended ones ("L2Cache").
	SyntheticNoExtendedTypes SyntheticFlags = 1 << iota
	// SyntheticNoAttrs omits the parenthesized level attributes.
	SyntheticNoAttrs
)

var (
	// ErrExport wraps every ExportSynthetic failure.
	ErrExport = errors.New("synthetic export failed")
	// ErrAsymmetric is returned when levels differ in arity below the root.
	ErrAsymmetric = errors.New("topology is not symmetric")
	// ErrSyntheticFlags is returned for flag bits ExportSynthetic does not know.
	ErrSyntheticFlags = errors.New("invalid synthetic export flags")
)

const knownSyntheticFlags = SyntheticNoExtendedTypes | SyntheticNoAttrs

// ExportSynthetic describes a symmetric topology as one "Type:arity" token per
// level below the root, e.g. "Package:2 Core:4 PU:2". I/O and misc objects
// are not part of the description.
func ExportSynthetic(t *Topology, flags SyntheticFlags) (string, error) {
	if unknown := flags &^ knownSyntheticFlags; unknown != 0 {
		return "", fmt.Errorf("%w: %w %#x", ErrExport, ErrSyntheticFlags, uint(unknown))
	}
	root := t.Root()
	if !root.SymmetricSubtree {
		return "", fmt.Errorf("%w: %w", ErrExport, ErrAsymmetric)
	}

	withAttrs := flags&SyntheticNoAttrs == 0
	var tokens []string
	if withAttrs {
		if attrs := t.syntheticAttrs(root); attrs != "" {
			tokens = append(tokens, attrs)
		}
	}

	for obj := root; len(obj.Children) > 0; {
		child := t.Object(obj.Children[0])
		name := TypeString(child, 1)
		if flags&SyntheticNoExtendedTypes != 0 {
			name = TypeName(child.Type)
		}
		token := name + ":" + strconv.Itoa(len(obj.Children))
		if withAttrs {
			token += t.syntheticAttrs(child)
		}
		tokens = append(tokens, token)
		obj = child
	}

	return strings.Join(tokens, " "), nil
}

// syntheticAttrs returns the attributes shared by the level of obj.
func (t *Topology) syntheticAttrs(obj *Object) string {
	var attrs []string
	if obj.Type == TypeCache && obj.Cache != nil {
		attrs = append(attrs, fmt.Sprintf("size=%d", obj.Cache.Size))
	}
	if obj.Type == TypeNUMANode && obj.Memory.Local != 0 {
		attrs = append(attrs, fmt.Sprintf("memory=%d", obj.Memory.Local))
	}
	if obj.Type == TypePU || obj.Type == TypeNUMANode {
		if indexes := t.syntheticIndexes(obj.Depth); indexes != "" {
			attrs = append(attrs, "indexes="+indexes)
		}
	}
	if len(attrs) == 0 {
		return ""
	}
	return "(" + strings.Join(attrs, " ") + ")"
}

// syntheticIndexes lists the OS indexes of a level when they differ from the
// logical ones.
func (t *Topology) syntheticIndexes(depth int) string {
	needed := false
	indexes := make([]string, 0, t.NbObjsByDepth(depth))
	for obj := t.ObjByDepth(depth, 0); obj != nil; obj = t.NextCousin(obj) {
		if obj.OSIndex == UnsetIndex {
			return ""
		}
		if obj.OSIndex != obj.LogicalIndex {
			needed = true
		}
		indexes = append(indexes, strconv.FormatUint(uint64(obj.OSIndex), 10))
	}
	if !needed {
		return ""
	}
	return strings.Join(indexes, ":")
}
