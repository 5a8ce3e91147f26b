// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package render

import (
	"io"

	"github.com/antimetal/lstopo/pkg/topology"
)

// writeOnly writes one line per object of the ShowOnly type below obj, in
// tree order. I/O subtrees are only visited when looking for I/O or misc
// objects and misc subtrees only when looking for misc objects.
func (r *textRenderer) writeOnly(obj *topology.Object) {
	target := r.opts.ShowOnly
	if obj.Type == target {
		io.WriteString(r.w, r.format(obj, 0))
		io.WriteString(r.w, "\n")
	}

	for _, id := range obj.Children {
		r.writeOnly(r.topo.Object(id))
	}
	if topology.IsSpecial(target) {
		for _, id := range obj.IOChildren {
			r.writeOnly(r.topo.Object(id))
		}
	}
	if target == topology.TypeMisc {
		for _, id := range obj.MiscChildren {
			r.writeOnly(r.topo.Object(id))
		}
	}
}
