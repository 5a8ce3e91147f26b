// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package hardware

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Snapshot is a hardware inventory of one node at a point in time.
type Snapshot struct {
	Timestamp time.Time `yaml:"timestamp,omitempty"`
	NodeName  string    `yaml:"node_name,omitempty"`
	// MachineID is the content of /etc/machine-id on the inventoried node.
	MachineID string `yaml:"machine_id,omitempty"`

	CPUInfo     *CPUInfo       `yaml:"cpu_info,omitempty"`
	MemoryInfo  *MemoryInfo    `yaml:"memory_info,omitempty"`
	DiskInfo    []*DiskInfo    `yaml:"disk_info,omitempty"`
	NetworkInfo []*NetworkInfo `yaml:"network_info,omitempty"`
}

// CPUInfo describes the processors of a node.
type CPUInfo struct {
	ModelName string  `yaml:"model_name,omitempty"`
	VendorID  string  `yaml:"vendor_id,omitempty"`
	CPUMHz    float64 `yaml:"cpu_mhz,omitempty"`
	// CacheSize is the last level cache size as printed by /proc/cpuinfo,
	// e.g. "32768 KB".
	CacheSize string    `yaml:"cache_size,omitempty"`
	Cores     []CPUCore `yaml:"cores"`
}

// CPUCore is one logical processor.
type CPUCore struct {
	Processor  int32 `yaml:"processor"`   // Logical processor number
	CoreID     int32 `yaml:"core_id"`     // Physical core ID
	PhysicalID int32 `yaml:"physical_id"` // Physical package ID
}

// MemoryInfo describes installed memory and its NUMA layout.
type MemoryInfo struct {
	TotalBytes  uint64     `yaml:"total_bytes"`
	NUMAEnabled bool       `yaml:"numa_enabled,omitempty"`
	NUMANodes   []NUMANode `yaml:"numa_nodes,omitempty"`
}

// NUMANode is a memory node. Distances is indexed by target node ID, 10 for
// local access.
type NUMANode struct {
	NodeID     int32   `yaml:"node_id"`
	TotalBytes uint64  `yaml:"total_bytes"`
	CPUs       []int32 `yaml:"cpus"`
	Distances  []int32 `yaml:"distances,omitempty"`
}

// DiskInfo is a block device.
type DiskInfo struct {
	Device     string `yaml:"device"`
	Model      string `yaml:"model,omitempty"`
	Vendor     string `yaml:"vendor,omitempty"`
	SizeBytes  uint64 `yaml:"size_bytes,omitempty"`
	Rotational bool   `yaml:"rotational,omitempty"`
}

// NetworkInfo is a network interface.
type NetworkInfo struct {
	Interface  string `yaml:"interface"`
	Driver     string `yaml:"driver,omitempty"`
	MACAddress string `yaml:"mac_address,omitempty"`
	Speed      uint64 `yaml:"speed,omitempty"` // Mbps
	Type       string `yaml:"type,omitempty"`  // ethernet, wireless, loopback, ...
}

// LoadSnapshot reads a YAML snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot parses a YAML snapshot.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snapshot Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snapshot, nil
}
