// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package topology

import (
	"fmt"
	"strings"
)

// Attribute keys with special meaning to renderers.
const (
	AttrBusID = "busid"
	AttrID    = "id"
)

// AttrField is one attribute of an object. Fields with an empty Key render as
// their bare value.
type AttrField struct {
	Key   string
	Value string
}

func (f AttrField) String() string {
	if f.Key == "" {
		return f.Value
	}
	return f.Key + "=" + f.Value
}

// Attrs is the ordered list of attributes of an object.
type Attrs []AttrField

// String joins the fields with sep.
func (a Attrs) String(sep string) string {
	parts := make([]string, len(a))
	for i, f := range a {
		parts[i] = f.String()
	}
	return strings.Join(parts, sep)
}

// WithValue returns a copy of the attributes where the value of every field
// named key is replaced. Attributes without such a field are returned as is.
func (a Attrs) WithValue(key, value string) Attrs {
	out := make(Attrs, len(a))
	copy(out, a)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
		}
	}
	return out
}

// Get returns the value of the first field named key.
func (a Attrs) Get(key string) (string, bool) {
	for _, f := range a {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Attributes returns the type-specific attributes of an object. A non-zero
// verbose adds detail: full memory and cache geometry, PCI ids and infos.
func Attributes(obj *Object, verbose int) Attrs {
	long := verbose != 0
	var attrs Attrs

	switch {
	case long && obj.Memory.Local != 0:
		attrs = append(attrs,
			AttrField{Key: "local", Value: memorySize(obj.Memory.Local, true)},
			AttrField{Key: "total", Value: memorySize(obj.Memory.Total, true)})
	case long && obj.Memory.Total != 0:
		attrs = append(attrs, AttrField{Key: "total", Value: memorySize(obj.Memory.Total, true)})
	case !long && obj.Memory.Local != 0:
		attrs = append(attrs, AttrField{Value: memorySize(obj.Memory.Local, false)})
	}

	switch obj.Type {
	case TypeCache:
		if obj.Cache != nil {
			attrs = append(attrs, cacheAttrs(obj.Cache, long)...)
		}
	case TypeBridge:
		if long && obj.Bridge != nil {
			attrs = append(attrs, bridgeAttrs(obj.Bridge)...)
		}
	case TypePCIDevice:
		if long && obj.PCI != nil {
			attrs = append(attrs, pciAttrs(obj.PCI)...)
		}
	}

	if long {
		for _, info := range obj.Infos {
			if info.Name == InfoCollapse {
				continue
			}
			value := info.Value
			if strings.Contains(value, " ") {
				value = `"` + value + `"`
			}
			attrs = append(attrs, AttrField{Key: info.Name, Value: value})
		}
	}

	return attrs
}

func cacheAttrs(c *CacheAttr, long bool) Attrs {
	if !long {
		return Attrs{{Value: memorySize(c.Size, false)}}
	}
	attrs := Attrs{
		{Key: "size", Value: memorySize(c.Size, true)},
		{Key: "linesize", Value: fmt.Sprintf("%d", c.LineSize)},
	}
	switch {
	case c.Associativity == -1:
		attrs = append(attrs, AttrField{Value: "fully-associative"})
	case c.Associativity > 0:
		attrs = append(attrs, AttrField{Key: "ways", Value: fmt.Sprintf("%d", c.Associativity)})
	}
	return attrs
}

func bridgeAttrs(br *BridgeAttr) Attrs {
	var attrs Attrs
	if br.UpstreamPCI {
		attrs = append(attrs, pciAttrs(&br.Upstream)...)
	}
	return append(attrs, AttrField{
		Key:   "buses",
		Value: fmt.Sprintf("%04x:[%02x-%02x]", br.Domain, br.SecondaryBus, br.SubordinateBus),
	})
}

func pciAttrs(p *PCIAttr) Attrs {
	attrs := Attrs{
		{Key: AttrBusID, Value: fmt.Sprintf("%04x:%02x:%02x.%01x", p.Domain, p.Bus, p.Dev, p.Func)},
		{Key: AttrID, Value: fmt.Sprintf("%04x:%04x", p.VendorID, p.DeviceID)},
		{Key: "class", Value: fmt.Sprintf("%04x(%s)", p.ClassID, PCIClassString(p.ClassID))},
	}
	if p.LinkSpeed != 0 {
		attrs = append(attrs, AttrField{Key: "link", Value: fmt.Sprintf("%.2fGB/s", p.LinkSpeed)})
	}
	return attrs
}

func memorySize(size uint64, verbose bool) string {
	return fmt.Sprintf("%d%s", MemorySizeValue(size, verbose), MemorySizeUnit(size, verbose))
}

// MemorySizeValue scales a byte count to the unit chosen by MemorySizeUnit,
// rounding to nearest. Verbose output always uses kilobytes.
func MemorySizeValue(size uint64, verbose bool) uint64 {
	switch {
	case size < 10<<20 || verbose:
		return ((size >> 9) + 1) >> 1
	case size < 10<<30:
		return ((size >> 19) + 1) >> 1
	case size < 10<<40:
		return ((size >> 29) + 1) >> 1
	default:
		return ((size >> 39) + 1) >> 1
	}
}

// MemorySizeUnit returns "KB", "MB", "GB" or "TB" for a byte count. Each unit
// is used up to ten of the next one.
func MemorySizeUnit(size uint64, verbose bool) string {
	switch {
	case size < 10<<20 || verbose:
		return "KB"
	case size < 10<<30:
		return "MB"
	case size < 10<<40:
		return "GB"
	default:
		return "TB"
	}
}
