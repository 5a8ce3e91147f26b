// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build !linux

package cpu

import (
	"fmt"

	"k8s.io/utils/cpuset"
)

// Binding is only supported on Linux.
func Binding(pid int) (cpuset.CPUSet, error) {
	return cpuset.New(), fmt.Errorf("pid %d: %w", pid, ErrBindingUnsupported)
}
