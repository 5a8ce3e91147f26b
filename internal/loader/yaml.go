// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package loader reads topology descriptions from YAML files.
package loader

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"
	"k8s.io/utils/cpuset"

	"github.com/antimetal/lstopo/pkg/cpu"
	"github.com/antimetal/lstopo/pkg/topology"
)

// ErrInvalidTopology is returned for descriptions that parse as YAML but do
// not describe a topology.
var ErrInvalidTopology = errors.New("invalid topology description")

// TopologyYAML is the file structure: a root object and system-wide sets.
type TopologyYAML struct {
	Root       *ObjectYAML `yaml:"root"`
	Complete   string      `yaml:"complete,omitempty"`
	Allowed    string      `yaml:"allowed,omitempty"`
	ThisSystem bool        `yaml:"this_system,omitempty"`
}

// ObjectYAML is one object and its subtrees.
type ObjectYAML struct {
	Type     string  `yaml:"type"`
	OSIndex  *uint   `yaml:"os_index,omitempty"`
	Name     string  `yaml:"name,omitempty"`
	Subtype  string  `yaml:"subtype,omitempty"`
	CPUSet   *string `yaml:"cpuset,omitempty"`
	Collapse *uint   `yaml:"collapse,omitempty"`

	Memory *MemoryYAML `yaml:"memory,omitempty"`
	Cache  *CacheYAML  `yaml:"cache,omitempty"`
	Group  *GroupYAML  `yaml:"group,omitempty"`
	PCI    *PCIYAML    `yaml:"pci,omitempty"`
	Bridge *BridgeYAML `yaml:"bridge,omitempty"`
	OSDev  string      `yaml:"osdev,omitempty"`

	Infos     []InfoYAML      `yaml:"infos,omitempty"`
	Distances []DistancesYAML `yaml:"distances,omitempty"`

	Children []*ObjectYAML `yaml:"children,omitempty"`
	IO       []*ObjectYAML `yaml:"io,omitempty"`
	Misc     []*ObjectYAML `yaml:"misc,omitempty"`
}

// MemoryYAML holds the local memory in bytes. Totals are computed.
type MemoryYAML struct {
	Local uint64 `yaml:"local"`
}

// CacheYAML describes a cache. Level defaults to the one in the type name,
// e.g. "L2Cache".
type CacheYAML struct {
	Level         uint   `yaml:"level,omitempty"`
	Size          uint64 `yaml:"size"`
	LineSize      uint   `yaml:"linesize,omitempty"`
	Associativity int    `yaml:"associativity,omitempty"`
	Kind          string `yaml:"kind,omitempty"`
}

type GroupYAML struct {
	Depth *uint `yaml:"depth,omitempty"`
}

// PCIYAML describes a PCI function. BusID is "[dddd:]bb:dd.f"; Vendor,
// Device and Class are hexadecimal.
type PCIYAML struct {
	BusID     string  `yaml:"busid"`
	Vendor    string  `yaml:"vendor,omitempty"`
	Device    string  `yaml:"device,omitempty"`
	Class     string  `yaml:"class,omitempty"`
	LinkSpeed float64 `yaml:"link_speed,omitempty"`
}

// BridgeYAML describes a bridge. Upstream is set for PCI-to-PCI bridges and
// omitted for host bridges.
type BridgeYAML struct {
	Upstream    *PCIYAML `yaml:"upstream,omitempty"`
	Domain      string   `yaml:"domain,omitempty"`
	Secondary   string   `yaml:"secondary_bus,omitempty"`
	Subordinate string   `yaml:"subordinate_bus,omitempty"`
}

type InfoYAML struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// DistancesYAML is a square latency matrix between the objects RelativeDepth
// levels below the owner.
type DistancesYAML struct {
	RelativeDepth int         `yaml:"relative_depth"`
	Latency       [][]float64 `yaml:"latency"`
}

// Loader converts YAML descriptions into topologies.
type Loader struct {
	logger logr.Logger
}

// New creates a loader logging through logger.
func New(logger logr.Logger) *Loader {
	return &Loader{logger: logger.WithName("loader")}
}

// LoadYAML loads a topology from a YAML file
func (l *Loader) LoadYAML(path string) (*topology.Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	topo, err := l.ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return topo, nil
}

// ParseYAML parses a topology from YAML bytes
func (l *Loader) ParseYAML(data []byte) (*topology.Topology, error) {
	var desc TopologyYAML
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if desc.Root == nil {
		return nil, fmt.Errorf("%w: missing root object", ErrInvalidTopology)
	}

	b := topology.NewBuilder(l.logger)
	c := converter{builder: b}
	c.add(topology.NoObject, desc.Root, c.builder.Add)

	if desc.Complete != "" {
		set, err := parseSet(desc.Complete)
		if err != nil {
			c.fail("complete", err)
		} else {
			b.SetComplete(set)
		}
	}
	if desc.Allowed != "" {
		set, err := parseSet(desc.Allowed)
		if err != nil {
			c.fail("allowed", err)
		} else {
			b.SetAllowed(set)
		}
	}
	b.SetThisSystem(desc.ThisSystem)

	if err := errors.Join(c.errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTopology, err)
	}
	topo, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build topology: %w", err)
	}

	l.logger.V(1).Info("Loaded topology", "objects", c.count, "depth", topo.Depth())
	return topo, nil
}

type converter struct {
	builder *topology.Builder
	errs    []error
	count   int
}

func (c *converter) fail(where string, err error) {
	c.errs = append(c.errs, fmt.Errorf("%s: %w", where, err))
}

// add converts y and its subtrees, linking y below parent with link.
func (c *converter) add(parent topology.ID, y *ObjectYAML, link func(topology.ID, topology.Object) topology.ID) {
	if y == nil {
		return
	}
	obj, err := convertObject(y)
	if err != nil {
		c.fail(fmt.Sprintf("object %d (%s)", c.count, y.Type), err)
		return
	}
	c.count++

	id := link(parent, obj)
	if id == topology.NoObject {
		return
	}
	if len(y.Distances) > 0 {
		distances, err := convertDistances(y.Distances)
		if err != nil {
			c.fail(fmt.Sprintf("distances of %s", y.Type), err)
		} else {
			c.builder.SetDistances(id, distances...)
		}
	}

	for _, child := range y.Children {
		c.add(id, child, c.builder.Add)
	}
	for _, child := range y.IO {
		c.add(id, child, c.builder.AddIO)
	}
	for _, child := range y.Misc {
		c.add(id, child, c.builder.AddMisc)
	}
}

func convertObject(y *ObjectYAML) (topology.Object, error) {
	typ, err := topology.ParseType(y.Type)
	if err != nil {
		return topology.Object{}, err
	}

	obj := topology.Object{
		Type:    typ,
		Name:    y.Name,
		Subtype: y.Subtype,
		OSIndex: topology.UnsetIndex,
	}
	if y.OSIndex != nil {
		obj.OSIndex = *y.OSIndex
	}
	if y.CPUSet != nil {
		set, err := parseSet(*y.CPUSet)
		if err != nil {
			return obj, fmt.Errorf("invalid cpuset: %w", err)
		}
		obj.CPUSet = &set
	}
	if y.Memory != nil {
		obj.Memory.Local = y.Memory.Local
	}

	if typ == topology.TypeCache || y.Cache != nil {
		cache, err := convertCache(y.Type, y.Cache)
		if err != nil {
			return obj, err
		}
		obj.Cache = cache
	}
	if y.Group != nil {
		obj.Group = &topology.GroupAttr{Depth: topology.UnsetIndex}
		if y.Group.Depth != nil {
			obj.Group.Depth = *y.Group.Depth
		}
	}
	if y.PCI != nil {
		pci, err := convertPCI(y.PCI)
		if err != nil {
			return obj, err
		}
		obj.PCI = &pci
	}
	if y.Bridge != nil || typ == topology.TypeBridge {
		bridge, err := convertBridge(y.Bridge)
		if err != nil {
			return obj, err
		}
		obj.Bridge = bridge
	}
	if y.OSDev != "" {
		kind, err := topology.ParseOSDevKind(y.OSDev)
		if err != nil {
			return obj, err
		}
		obj.OSDev = &topology.OSDevAttr{Kind: kind}
	}

	for _, info := range y.Infos {
		obj.Infos = append(obj.Infos, topology.Info{Name: info.Name, Value: info.Value})
	}
	if y.Collapse != nil {
		obj.Infos = append(obj.Infos, topology.Info{
			Name:  topology.InfoCollapse,
			Value: strconv.FormatUint(uint64(*y.Collapse), 10),
		})
	}
	return obj, nil
}

// parseSet reads a cpulist ("0-3,8") or a hexadecimal mask ("0x0000000f").
func parseSet(s string) (cpuset.CPUSet, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return cpu.ParseMask(s)
	}
	return cpu.ParseCPUList(s)
}

func convertCache(typeName string, y *CacheYAML) (*topology.CacheAttr, error) {
	cache := &topology.CacheAttr{Kind: topology.CacheUnified}
	if y != nil {
		cache.Level = y.Level
		cache.Size = y.Size
		cache.LineSize = y.LineSize
		cache.Associativity = y.Associativity
		switch strings.ToLower(y.Kind) {
		case "", "unified":
		case "data":
			cache.Kind = topology.CacheData
		case "instruction":
			cache.Kind = topology.CacheInstruction
		default:
			return nil, fmt.Errorf("unknown cache kind %q", y.Kind)
		}
	}
	if cache.Level == 0 {
		cache.Level = cacheLevelFromName(typeName)
	}
	if cache.Kind == topology.CacheUnified {
		cache.Kind = cacheKindFromName(typeName)
	}
	return cache, nil
}

// cacheLevelFromName returns the level of names like "L2Cache" or "l1d", 0
// when the name carries none.
func cacheLevelFromName(name string) uint {
	name = strings.ToLower(name)
	if len(name) < 2 || name[0] != 'l' {
		return 0
	}
	end := 1
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	level, err := strconv.ParseUint(name[1:end], 10, 32)
	if err != nil {
		return 0
	}
	return uint(level)
}

func cacheKindFromName(name string) topology.CacheKind {
	name = strings.ToLower(name)
	idx := strings.IndexFunc(name, func(r rune) bool { return r != 'l' && (r < '0' || r > '9') })
	if idx < 0 {
		return topology.CacheUnified
	}
	switch name[idx] {
	case 'd':
		return topology.CacheData
	case 'i':
		return topology.CacheInstruction
	default:
		return topology.CacheUnified
	}
}

func convertPCI(y *PCIYAML) (topology.PCIAttr, error) {
	domain, bus, dev, fn, err := parseBusID(y.BusID)
	if err != nil {
		return topology.PCIAttr{}, err
	}
	attr := topology.PCIAttr{Domain: domain, Bus: bus, Dev: dev, Func: fn, LinkSpeed: y.LinkSpeed}
	if attr.VendorID, err = parseHex16(y.Vendor); err != nil {
		return attr, fmt.Errorf("invalid vendor: %w", err)
	}
	if attr.DeviceID, err = parseHex16(y.Device); err != nil {
		return attr, fmt.Errorf("invalid device: %w", err)
	}
	if attr.ClassID, err = parseHex16(y.Class); err != nil {
		return attr, fmt.Errorf("invalid class: %w", err)
	}
	return attr, nil
}

func convertBridge(y *BridgeYAML) (*topology.BridgeAttr, error) {
	bridge := &topology.BridgeAttr{}
	if y == nil {
		return bridge, nil
	}
	if y.Upstream != nil {
		upstream, err := convertPCI(y.Upstream)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream: %w", err)
		}
		bridge.UpstreamPCI = true
		bridge.Upstream = upstream
		bridge.Domain = upstream.Domain
	}

	var err error
	if y.Domain != "" {
		if bridge.Domain, err = parseHex16(y.Domain); err != nil {
			return nil, fmt.Errorf("invalid domain: %w", err)
		}
	}
	if bridge.SecondaryBus, err = parseHex8(y.Secondary); err != nil {
		return nil, fmt.Errorf("invalid secondary bus: %w", err)
	}
	if bridge.SubordinateBus, err = parseHex8(y.Subordinate); err != nil {
		return nil, fmt.Errorf("invalid subordinate bus: %w", err)
	}
	return bridge, nil
}

// parseBusID parses "[dddd:]bb:dd.f" with hexadecimal fields.
func parseBusID(s string) (domain uint16, bus, dev, fn uint8, err error) {
	parts := strings.Split(s, ":")
	if len(parts) == 3 {
		if domain, err = parseHex16(parts[0]); err != nil {
			return 0, 0, 0, 0, fmt.Errorf("invalid bus id %q: %w", s, err)
		}
		parts = parts[1:]
	}
	if len(parts) != 2 {
		return 0, 0, 0, 0, fmt.Errorf("invalid bus id %q", s)
	}
	devfn := strings.Split(parts[1], ".")
	if len(devfn) != 2 {
		return 0, 0, 0, 0, fmt.Errorf("invalid bus id %q", s)
	}
	if bus, err = parseHex8(parts[0]); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid bus id %q: %w", s, err)
	}
	if dev, err = parseHex8(devfn[0]); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid bus id %q: %w", s, err)
	}
	if fn, err = parseHex8(devfn[1]); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("invalid bus id %q: %w", s, err)
	}
	return domain, bus, dev, fn, nil
}

func parseHex16(s string) (uint16, error) {
	v, err := parseHex(s, 16)
	return uint16(v), err
}

func parseHex8(s string) (uint8, error) {
	v, err := parseHex(s, 8)
	return uint8(v), err
}

func parseHex(s string, bits int) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 16, bits)
}

func convertDistances(list []DistancesYAML) ([]topology.Distances, error) {
	out := make([]topology.Distances, 0, len(list))
	for _, y := range list {
		n := len(y.Latency)
		d := topology.Distances{RelativeDepth: y.RelativeDepth, NbObjs: n}
		for i, row := range y.Latency {
			if len(row) != n {
				return nil, fmt.Errorf("latency row %d has %d entries, want %d", i, len(row), n)
			}
			d.Latency = append(d.Latency, row...)
		}
		out = append(out, d)
	}
	return out, nil
}
