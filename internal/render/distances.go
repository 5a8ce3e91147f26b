// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package render

import (
	"fmt"
	"io"

	"github.com/antimetal/lstopo/pkg/topology"
)

// writeDistances writes every latency matrix of the normal levels, top-down
// and in index order.
func (r *textRenderer) writeDistances() {
	for depth := 0; depth < r.topo.Depth(); depth++ {
		for i := 0; i < r.topo.NbObjsByDepth(depth); i++ {
			obj := r.topo.ObjByDepth(depth, i)
			for _, distances := range obj.Distances {
				if len(distances.Latency) == 0 {
					continue
				}
				r.writeDistanceMatrix(obj, distances)
			}
		}
	}
}

func (r *textRenderer) writeDistanceMatrix(owner *topology.Object, distances topology.Distances) {
	depth := owner.Depth + distances.RelativeDepth
	mode, prefix, ownerIndex := "physical", " P#", owner.OSIndex
	if r.opts.Logical {
		mode, prefix, ownerIndex = "logical", " L#", owner.LogicalIndex
	}

	fmt.Fprintf(r.w, "Relative latency matrix between %d %ss (depth %d) by %s indexes (below %s%s%d):\n",
		distances.NbObjs, topology.TypeName(r.topo.DepthType(depth)), depth, mode,
		topology.TypeString(owner, 1), prefix, uint32(ownerIndex))

	set := r.topo.CPUSet()
	if owner.CPUSet != nil {
		set = *owner.CPUSet
	}
	objs := r.topo.ObjsInsideCPUSetByDepth(set, depth)
	labels := make([]uint32, distances.NbObjs)
	for j := range labels {
		labels[j] = uint32(j)
		if j < len(objs) {
			labels[j] = r.objectIndex(objs[j])
		}
	}

	io.WriteString(r.w, "  index")
	for _, label := range labels {
		fmt.Fprintf(r.w, " % 5d", label)
	}
	io.WriteString(r.w, "\n")
	for i, label := range labels {
		fmt.Fprintf(r.w, "  % 5d", label)
		for j := range labels {
			fmt.Fprintf(r.w, " %2.3f", distances.Latency[i*distances.NbObjs+j])
		}
		io.WriteString(r.w, "\n")
	}
}

// objectIndex is the logical or physical index of obj per the index mode,
// truncated to 32 bits. An unset index reads 4294967295.
func (r *textRenderer) objectIndex(obj *topology.Object) uint32 {
	if r.opts.Logical {
		return uint32(obj.LogicalIndex)
	}
	return uint32(obj.OSIndex)
}
