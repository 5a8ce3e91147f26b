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

	"github.com/go-logr/logr"
	"k8s.io/utils/cpuset"

	"github.com/antimetal/lstopo/pkg/cpu"
	"github.com/antimetal/lstopo/pkg/topology"
)

// textRenderer holds the state shared by the text outputs of one render call.
type textRenderer struct {
	topo    *topology.Topology
	opts    Options
	w       io.Writer
	logger  logr.Logger
	running cpuset.CPUSet
}

func newTextRenderer(topo *topology.Topology, opts Options, w io.Writer) *textRenderer {
	r := &textRenderer{
		topo:    topo,
		opts:    opts,
		w:       w,
		logger:  opts.Logger.WithName("render"),
		running: cpuset.New(),
	}
	if opts.Verbose >= 2 && opts.PID != NoPID {
		running, err := opts.binder()(opts.PID)
		if err != nil {
			r.logger.V(1).Info("Failed to get process binding, no PU will be marked running",
				"pid", opts.PID, "error", err.Error())
		} else {
			r.running = running
		}
	}
	return r
}

// indexStrings returns the physical and logical index text of obj. Collapsed
// PCI devices show a logical range and a placeholder physical index.
func indexStrings(obj *topology.Object, collapse uint) (phys, logical string) {
	if collapse > 1 && obj.Type == topology.TypePCIDevice {
		return "[collapsed]", fmt.Sprintf("%d-%d", obj.LogicalIndex, obj.LogicalIndex+collapse-1)
	}
	return strconv.FormatUint(uint64(obj.OSIndex), 10), strconv.FormatUint(uint64(obj.LogicalIndex), 10)
}

// typeFragment is the display type with its optional subtype.
func typeFragment(obj *topology.Object, verbose int) string {
	typ := topology.TypeString(obj, verbose-1)
	if obj.Subtype != "" {
		return typ + "(" + obj.Subtype + ")"
	}
	return typ
}

// indexFragment is " L#n" or " P#n". Special objects only show it from
// verbose 2 on.
func indexFragment(obj *topology.Object, opts Options, phys, logical string) string {
	idx, prefix, text := obj.OSIndex, " P#", phys
	if opts.Logical {
		idx, prefix, text = obj.LogicalIndex, " L#", logical
	}
	if idx == topology.UnsetIndex {
		return ""
	}
	if topology.IsSpecial(obj.Type) && opts.Verbose < 2 {
		return ""
	}
	return prefix + text
}

// labelFragment is the name of Group and Misc objects, which label them.
func labelFragment(obj *topology.Object) string {
	if obj.Name != "" && (obj.Type == topology.TypeMisc || obj.Type == topology.TypeGroup) {
		return " " + obj.Name
	}
	return ""
}

// physicalFragment is the "P#n" cross-reference shown in logical mode.
func physicalFragment(obj *topology.Object, opts Options, phys string) string {
	if !opts.Logical || obj.OSIndex == topology.UnsetIndex {
		return ""
	}
	if opts.Verbose >= 2 || obj.Type == topology.TypePU || obj.Type == topology.TypeNUMANode {
		return "P#" + phys
	}
	return ""
}

// attributeFragment joins the physical cross-reference and the attributes
// into one parenthesized group, or nothing when both are empty.
func attributeFragment(physical string, attrs topology.Attrs) string {
	text := attrs.String(" ")
	if physical == "" && text == "" {
		return ""
	}
	sep := ""
	if physical != "" && text != "" {
		sep = " "
	}
	return " (" + physical + sep + text + ")"
}

// totalMemoryFragment shows the root total memory when the tree is printed
// without attribute detail.
func totalMemoryFragment(obj *topology.Object, verbose int) string {
	if verbose != 1 || obj.Parent != topology.NoObject || obj.Memory.Total <= obj.Memory.Local {
		return ""
	}
	return fmt.Sprintf(" (%d%s total)",
		topology.MemorySizeValue(obj.Memory.Total, false), topology.MemorySizeUnit(obj.Memory.Total, false))
}

// nameFragment quotes the name of OS devices, and of any object from verbose
// 2 on. Group and Misc names are labels instead.
func nameFragment(obj *topology.Object, verbose int) string {
	if obj.Name == "" || obj.Type == topology.TypeMisc || obj.Type == topology.TypeGroup {
		return ""
	}
	if obj.Type == topology.TypeOSDevice || verbose >= 2 {
		return ` "` + obj.Name + `"`
	}
	return ""
}

// cpusetFragment serializes the cpuset per the display mode.
func cpusetFragment(obj *topology.Object, opts Options) string {
	if obj.CPUSet == nil || opts.ShowCPUSet == CPUSetHidden {
		return ""
	}
	prefix := ""
	if opts.ShowCPUSet == CPUSetWithText {
		prefix = " cpuset="
	}
	if opts.ShowTaskset {
		return prefix + cpu.FormatTaskset(*obj.CPUSet)
	}
	return prefix + cpu.FormatMask(*obj.CPUSet)
}

// puStateFragment marks PUs outside the allowed set as forbidden and PUs in
// the binding of the configured process as running.
func (r *textRenderer) puStateFragment(obj *topology.Object) string {
	if obj.Type != topology.TypePU || r.opts.Verbose < 2 {
		return ""
	}
	pu := int(obj.OSIndex)
	if obj.OSIndex == topology.UnsetIndex || !r.topo.AllowedCPUSet().Contains(pu) {
		return " (forbidden)"
	}
	if r.running.Contains(pu) {
		return " (running)"
	}
	return ""
}

// format returns the one-line description of obj. collapse is the number of
// identical PCI devices obj stands for, 0 or 1 when not collapsed.
func (r *textRenderer) format(obj *topology.Object, collapse uint) string {
	var b strings.Builder
	verbose := r.opts.Verbose

	if r.opts.ShowCPUSet < CPUSetOnly {
		phys, logical := indexStrings(obj, collapse)

		b.WriteString(typeFragment(obj, verbose))
		b.WriteString(indexFragment(obj, r.opts, phys, logical))
		b.WriteString(labelFragment(obj))

		attrs := topology.Attributes(obj, verbose-1)
		if obj.Type == topology.TypePCIDevice && obj.PCI != nil {
			busid := busIDString(r.topo, obj, collapse)
			if verbose <= 1 {
				fmt.Fprintf(&b, " %s (%s)", busid, topology.PCIClassString(obj.PCI.ClassID))
			}
			if collapse > 1 {
				attrs = collapseBusID(attrs, busid)
			}
		}
		b.WriteString(attributeFragment(physicalFragment(obj, r.opts, phys), attrs))
		b.WriteString(totalMemoryFragment(obj, verbose))
		b.WriteString(nameFragment(obj, verbose))
	}

	if obj.CPUSet == nil {
		return b.String()
	}
	b.WriteString(cpusetFragment(obj, r.opts))
	b.WriteString(r.puStateFragment(obj))
	return b.String()
}
