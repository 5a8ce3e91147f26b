// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/antimetal/lstopo/pkg/topology"
)

// collapseCount returns how many identical devices a PCI device stands for.
// Devices without the collapse info stand for themselves. The value is read
// like atoi: an optional sign then leading digits, 0 when there are none. A
// negative count wraps to an unsigned 32-bit value.
func collapseCount(obj *topology.Object) uint {
	if obj.Type != topology.TypePCIDevice {
		return 1
	}
	value, ok := obj.Info(topology.InfoCollapse)
	if !ok {
		return 1
	}
	value = strings.TrimLeftFunc(value, unicode.IsSpace)
	sign := ""
	if value != "" && (value[0] == '+' || value[0] == '-') {
		sign, value = value[:1], value[1:]
	}
	end := strings.IndexFunc(value, func(r rune) bool { return r < '0' || r > '9' })
	if end >= 0 {
		value = value[:end]
	}
	n, err := strconv.ParseInt(sign+value, 10, 32)
	if err != nil {
		return 0
	}
	return uint(uint32(n))
}

// mergeable reports whether obj is printed on its parent's line. Only the
// single child of a parent with the same cpuset merges, and only when the
// tree is not verbose and cpusets are hidden.
func (r *textRenderer) mergeable(obj, parent *topology.Object) bool {
	if r.opts.Verbose > 1 || r.opts.ShowCPUSet != CPUSetHidden || parent == nil {
		return false
	}
	if parent.Arity() != 1 || obj.CPUSet == nil || parent.CPUSet == nil {
		return false
	}
	return obj.CPUSet.Equals(*parent.CPUSet)
}

// writeTree writes obj and its subtree. indent is the nesting level of obj.
func (r *textRenderer) writeTree(obj, parent *topology.Object, indent int) {
	collapse := collapseCount(obj)
	if collapse == 0 {
		return
	}

	if r.mergeable(obj, parent) {
		io.WriteString(r.w, " + ")
	} else {
		if parent != nil {
			io.WriteString(r.w, "\n")
		}
		io.WriteString(r.w, strings.Repeat("  ", indent))
		indent++
	}

	if collapse > 1 {
		fmt.Fprintf(r.w, "%d x { ", collapse)
	}
	io.WriteString(r.w, r.format(obj, collapse))
	if collapse > 1 {
		io.WriteString(r.w, " }")
	}

	for _, id := range obj.Children {
		child := r.topo.Object(id)
		if r.opts.IgnorePUs && child.Type == topology.TypePU {
			continue
		}
		r.writeTree(child, obj, indent)
	}
	for _, id := range obj.IOChildren {
		r.writeTree(r.topo.Object(id), obj, indent)
	}
	for _, id := range obj.MiscChildren {
		r.writeTree(r.topo.Object(id), obj, indent)
	}
}
