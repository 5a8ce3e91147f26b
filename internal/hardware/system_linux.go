// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build linux

package hardware

import (
	"os"
	"path"
	"strings"
)

// localMachineID reads the machine ID of the running system from
// /etc/machine-id, falling back to the dbus copy.
func localMachineID(etcDir, varDir string) string {
	if data, err := os.ReadFile(path.Join(etcDir, "machine-id")); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	if data, err := os.ReadFile(path.Join(varDir, "lib", "dbus", "machine-id")); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	return ""
}
