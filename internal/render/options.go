// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package render writes hardware topologies as indented console text, level
// summaries, latency matrices and synthetic descriptions.
package render

import (
	"io"
	"os"

	"github.com/go-logr/logr"
	"k8s.io/utils/cpuset"

	"github.com/antimetal/lstopo/pkg/cpu"
	"github.com/antimetal/lstopo/pkg/topology"
)

// NoPID disables the "(running)" annotation of PUs.
const NoPID = -1

// CPU set display modes.
const (
	CPUSetHidden = iota
	CPUSetWithText
	CPUSetOnly
)

// Options configures a render. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	// Verbose 0 prints the level summary, 1 the tree and 2 or more both plus
	// distances and diagnostics.
	Verbose int
	// Logical selects L# indexes, otherwise P# indexes are shown.
	Logical bool
	// ShowCPUSet is one of CPUSetHidden, CPUSetWithText or CPUSetOnly.
	ShowCPUSet  int
	ShowTaskset bool
	// ShowOnly restricts the output to objects of one type unless TypeNone.
	ShowOnly          topology.ObjType
	IgnorePUs         bool
	ShowDistancesOnly bool
	// Overwrite allows replacing an existing output file.
	Overwrite            bool
	ExportSyntheticFlags topology.SyntheticFlags

	// PID is the process whose binding marks PUs as running, 0 for the
	// calling process and NoPID for none.
	PID int
	// Binder looks up the binding of PID. It defaults to cpu.Binding.
	Binder func(pid int) (cpuset.CPUSet, error)

	// Stdout receives output sent to "-". It defaults to os.Stdout.
	Stdout io.Writer
	// Stderr receives user-facing error messages. It defaults to os.Stderr.
	Stderr io.Writer
	Logger logr.Logger
}

// DefaultOptions returns the console defaults: tree output with logical
// indexes and no type filter.
func DefaultOptions() Options {
	return Options{
		Verbose:  1,
		Logical:  true,
		ShowOnly: topology.TypeNone,
		PID:      NoPID,
		Logger:   logr.Discard(),
	}
}

func (o Options) stdout() io.Writer {
	if o.Stdout != nil {
		return o.Stdout
	}
	return os.Stdout
}

func (o Options) stderr() io.Writer {
	if o.Stderr != nil {
		return o.Stderr
	}
	return os.Stderr
}

func (o Options) binder() func(pid int) (cpuset.CPUSet, error) {
	if o.Binder != nil {
		return o.Binder
	}
	return cpu.Binding
}
