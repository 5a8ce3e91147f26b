// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package render

import (
	"fmt"

	"github.com/antimetal/lstopo/pkg/topology"
)

// writeSummary writes one line per level: the normal levels indented by their
// depth, then the non-empty virtual levels.
func (r *textRenderer) writeSummary() {
	for depth := 0; depth < r.topo.Depth(); depth++ {
		first := r.topo.ObjByDepth(depth, 0)
		fmt.Fprintf(r.w, "%*sdepth %d:\t%d %s (type #%d)\n", depth, "", depth,
			r.topo.NbObjsByDepth(depth), topology.TypeString(first, 1), int(first.Type))
	}
	for _, depth := range topology.SpecialDepths {
		n := r.topo.NbObjsByDepth(depth)
		if n == 0 {
			continue
		}
		typ := r.topo.DepthType(depth)
		fmt.Fprintf(r.w, "Special depth %d:\t%d %s (type #%d)\n", depth, n, topology.TypeName(typ), int(typ))
	}
}
