// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package cpu

import (
	"fmt"
	"strconv"
	"strings"

	"k8s.io/utils/cpuset"
)

// ParseCPUList parses a Linux kernel CPU list format string into a CPU set.
// The format supports:
//   - Individual CPUs: "0", "1", "2"
//   - Ranges: "0-3" (includes 0, 1, 2, 3)
//   - Comma-separated combinations: "0,2-4,7"
//   - Empty string returns an empty set
//
// Whitespace around items is ignored and single-element ranges such as "5-5" are
// accepted, which cpuset.Parse rejects.
func ParseCPUList(cpuList string) (cpuset.CPUSet, error) {
	cpuList = strings.TrimSpace(cpuList)
	if cpuList == "" {
		return cpuset.New(), nil
	}

	var cpus []int
	for _, part := range strings.Split(cpuList, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if !strings.Contains(part, "-") {
			cpu, err := parseCPU(part)
			if err != nil {
				return cpuset.New(), fmt.Errorf("invalid CPU number: %s", part)
			}
			cpus = append(cpus, cpu)
			continue
		}

		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return cpuset.New(), fmt.Errorf("invalid CPU range: %s", part)
		}
		start, err := parseCPU(rangeParts[0])
		if err != nil {
			return cpuset.New(), fmt.Errorf("invalid CPU number in range: %s", rangeParts[0])
		}
		end, err := parseCPU(rangeParts[1])
		if err != nil {
			return cpuset.New(), fmt.Errorf("invalid CPU number in range: %s", rangeParts[1])
		}
		if start > end {
			return cpuset.New(), fmt.Errorf("invalid CPU range (start > end): %s", part)
		}
		for cpu := start; cpu <= end; cpu++ {
			cpus = append(cpus, cpu)
		}
	}

	return cpuset.New(cpus...), nil
}

// FormatCPUList renders a set in the kernel list format, collapsing consecutive
// runs into ranges. An empty set yields "".
func FormatCPUList(set cpuset.CPUSet) string {
	cpus := set.List()
	if len(cpus) == 0 {
		return ""
	}

	var b strings.Builder
	start := cpus[0]
	prev := cpus[0]
	flush := func() {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(start))
		if prev != start {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(prev))
		}
	}
	for _, cpu := range cpus[1:] {
		if cpu == prev+1 {
			prev = cpu
			continue
		}
		flush()
		start, prev = cpu, cpu
	}
	flush()

	return b.String()
}

func parseCPU(s string) (int, error) {
	cpu, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	if cpu < 0 {
		return 0, fmt.Errorf("negative CPU number %d", cpu)
	}
	return int(cpu), nil
}
