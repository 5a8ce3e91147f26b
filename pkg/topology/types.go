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

// ObjType is the kind of a topology object. The numeric values are stable and
// appear in level summaries as "type #N".
type ObjType int

const (
	// TypeNone selects no type, e.g. when no type filter is configured.
	TypeNone ObjType = -1

	TypeRoot ObjType = iota - 1
	TypeMachine
	TypeNUMANode
	TypePackage
	TypeCache
	TypeCore
	TypePU
	TypeGroup
	TypeMisc
	TypeBridge
	TypePCIDevice
	TypeOSDevice

	typeMax
)

var typeNames = [...]string{
	TypeRoot:      "Root",
	TypeMachine:   "Machine",
	TypeNUMANode:  "NUMANode",
	TypePackage:   "Package",
	TypeCache:     "Cache",
	TypeCore:      "Core",
	TypePU:        "PU",
	TypeGroup:     "Group",
	TypeMisc:      "Misc",
	TypeBridge:    "Bridge",
	TypePCIDevice: "PCIDev",
	TypeOSDevice:  "OSDev",
}

// typeAliases maps lowercase alternate spellings accepted by ParseType.
var typeAliases = map[string]ObjType{
	"system":     TypeRoot,
	"socket":     TypePackage,
	"node":       TypeNUMANode,
	"numa":       TypeNUMANode,
	"pci":        TypePCIDevice,
	"pcidevice":  TypePCIDevice,
	"os":         TypeOSDevice,
	"osdevice":   TypeOSDevice,
	"hostbridge": TypeBridge,
	"pcibridge":  TypeBridge,
}

// Virtual depths of the special levels. Normal objects have depths >= 0.
const (
	DepthUnknown   = -1
	DepthMultiple  = -2
	DepthBridge    = -3
	DepthPCIDevice = -4
	DepthOSDevice  = -5
	DepthMisc      = -6
)

// SpecialDepths lists the virtual depths in summary order.
var SpecialDepths = []int{DepthBridge, DepthPCIDevice, DepthOSDevice, DepthMisc}

// CacheKind distinguishes unified, data and instruction caches.
type CacheKind int

const (
	CacheUnified CacheKind = iota
	CacheData
	CacheInstruction
)

// OSDevKind is the kind of an operating-system device.
type OSDevKind int

const (
	OSDevBlock OSDevKind = iota
	OSDevGPU
	OSDevNetwork
	OSDevOpenFabrics
	OSDevDMA
	OSDevCoProc
)

var osDevNames = [...]struct{ short, long string }{
	OSDevBlock:       {"Block", "Block"},
	OSDevGPU:         {"GPU", "GPU"},
	OSDevNetwork:     {"Net", "Network"},
	OSDevOpenFabrics: {"OpenFabrics", "OpenFabrics"},
	OSDevDMA:         {"DMA", "DMA"},
	OSDevCoProc:      {"CoProc", "Co-Processor"},
}

// ParseOSDevKind parses a case-insensitive OS device kind name, short or long.
func ParseOSDevKind(s string) (OSDevKind, error) {
	for kind, names := range osDevNames {
		if strings.EqualFold(s, names.short) || strings.EqualFold(s, names.long) {
			return OSDevKind(kind), nil
		}
	}
	return 0, fmt.Errorf("unknown OS device kind %q", s)
}

func (k OSDevKind) String() string {
	if k < 0 || int(k) >= len(osDevNames) {
		return "Unknown"
	}
	return osDevNames[k].long
}

// TypeName returns the plain name of a type, e.g. "PCIDev".
func TypeName(t ObjType) string {
	if t < 0 || t >= typeMax {
		return "Unknown"
	}
	return typeNames[t]
}

func (t ObjType) String() string {
	return TypeName(t)
}

// ParseType parses a case-insensitive type name. Cache names such as "L2" or
// "L3Cache" and "Group0" style names resolve to TypeCache and TypeGroup.
func ParseType(s string) (ObjType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t := TypeRoot; t < typeMax; t++ {
		if name == strings.ToLower(typeNames[t]) {
			return t, nil
		}
	}
	if t, ok := typeAliases[name]; ok {
		return t, nil
	}
	if len(name) >= 2 && name[0] == 'l' && name[1] >= '0' && name[1] <= '9' {
		return TypeCache, nil
	}
	if strings.HasPrefix(name, "group") {
		return TypeGroup, nil
	}
	return TypeNone, fmt.Errorf("unknown object type %q", s)
}

// IsSpecial reports whether objects of the type live outside the normal levels.
func IsSpecial(t ObjType) bool {
	return IsIO(t) || t == TypeMisc
}

// IsIO reports whether the type belongs to the I/O family.
func IsIO(t ObjType) bool {
	return t == TypeBridge || t == TypePCIDevice || t == TypeOSDevice
}

// SpecialDepth returns the virtual depth of a special type, or DepthUnknown.
func SpecialDepth(t ObjType) int {
	switch t {
	case TypeBridge:
		return DepthBridge
	case TypePCIDevice:
		return DepthPCIDevice
	case TypeOSDevice:
		return DepthOSDevice
	case TypeMisc:
		return DepthMisc
	default:
		return DepthUnknown
	}
}

// TypeString returns the display type of an object. A non-zero verbose selects
// the long forms ("L2Cache", "Bridge PCI->PCI", "Network").
func TypeString(obj *Object, verbose int) string {
	long := verbose != 0
	switch obj.Type {
	case TypeCache:
		if obj.Cache == nil {
			return TypeName(obj.Type)
		}
		suffix := ""
		switch obj.Cache.Kind {
		case CacheData:
			suffix = "d"
		case CacheInstruction:
			suffix = "i"
		}
		if long {
			return fmt.Sprintf("L%d%sCache", obj.Cache.Level, suffix)
		}
		return fmt.Sprintf("L%d%s", obj.Cache.Level, suffix)
	case TypeGroup:
		if obj.Group != nil && obj.Group.Depth != UnsetIndex {
			return fmt.Sprintf("Group%d", obj.Group.Depth)
		}
		return TypeName(obj.Type)
	case TypeBridge:
		upstreamPCI := obj.Bridge != nil && obj.Bridge.UpstreamPCI
		switch {
		case long && upstreamPCI:
			return "Bridge PCI->PCI"
		case long:
			return "Bridge Host->PCI"
		case upstreamPCI:
			return "PCIBridge"
		default:
			return "HostBridge"
		}
	case TypePCIDevice:
		return "PCI"
	case TypeOSDevice:
		if obj.OSDev == nil || int(obj.OSDev.Kind) >= len(osDevNames) || obj.OSDev.Kind < 0 {
			return TypeName(obj.Type)
		}
		if long {
			return osDevNames[obj.OSDev.Kind].long
		}
		return osDevNames[obj.OSDev.Kind].short
	default:
		return TypeName(obj.Type)
	}
}
