// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build linux

package cpu

import (
	"fmt"

	"golang.org/x/sys/unix"
	"k8s.io/utils/cpuset"
)

// maxAffinityCPUs matches CPU_SETSIZE of the glibc cpu_set_t used by unix.CPUSet.
const maxAffinityCPUs = 1024

// Binding returns the CPU affinity of the given process. A pid of 0 means the
// calling process.
func Binding(pid int) (cpuset.CPUSet, error) {
	var mask unix.CPUSet
	if err := unix.SchedGetaffinity(pid, &mask); err != nil {
		return cpuset.New(), fmt.Errorf("failed to get CPU affinity of pid %d: %w", pid, err)
	}

	cpus := make([]int, 0, mask.Count())
	for cpu := 0; cpu < maxAffinityCPUs; cpu++ {
		if mask.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpuset.New(cpus...), nil
}
