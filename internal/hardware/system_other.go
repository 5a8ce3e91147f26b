// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build !linux

package hardware

// localMachineID is unknown outside Linux, so no snapshot is ever recognized
// as the running system.
func localMachineID(etcDir, varDir string) string {
	return ""
}
