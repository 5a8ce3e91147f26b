// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package cpu provides serialization of CPU sets in the Linux list, hexadecimal
// mask and taskset formats, and lookup of process CPU bindings.
package cpu

import "errors"

// ErrBindingUnsupported is returned by Binding on platforms without
// sched_getaffinity.
var ErrBindingUnsupported = errors.New("CPU binding lookup not supported on this platform")
