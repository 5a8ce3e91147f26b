// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package render

import (
	"fmt"
	"strings"

	"github.com/antimetal/lstopo/pkg/topology"
)

// busIDString returns "[dddd:]bb:dd.f" for a PCI device. The domain is only
// shown when some PCI object of the topology sits in a non-zero domain. When
// collapse > 1 the id covers the collapsed range: "bb:dd.f-F" within one
// device, "bb:dd.f-DD.F" across devices.
func busIDString(topo *topology.Topology, obj *topology.Object, collapse uint) string {
	pci := obj.PCI
	if pci == nil {
		return ""
	}

	var b strings.Builder
	if topo.PCINonzeroDomains() {
		fmt.Fprintf(&b, "%04x:", pci.Domain)
	}
	fmt.Fprintf(&b, "%02x:%02x.%01x", pci.Bus, pci.Dev, pci.Func)

	if collapse > 1 {
		last := lastCollapsed(topo, obj, collapse)
		if last.PCI.Dev == pci.Dev {
			fmt.Fprintf(&b, "-%01x", last.PCI.Func)
		} else {
			fmt.Fprintf(&b, "-%02x.%01x", last.PCI.Dev, last.PCI.Func)
		}
	}
	return b.String()
}

// lastCollapsed returns the (collapse-1)-th next cousin of obj, stopping early
// at the end of the PCI level or at a cousin without PCI attributes.
func lastCollapsed(topo *topology.Topology, obj *topology.Object, collapse uint) *topology.Object {
	last := obj
	for i := uint(1); i < collapse; i++ {
		next := topo.NextCousin(last)
		if next == nil || next.PCI == nil {
			break
		}
		last = next
	}
	return last
}

// collapseBusID substitutes the collapsed bus id for the busid attribute.
// Attributes without a busid field are left untouched.
func collapseBusID(attrs topology.Attrs, busid string) topology.Attrs {
	return attrs.WithValue(topology.AttrBusID, busid)
}
