// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package render

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"syscall"
)

// ErrOpenOutput wraps failures to open the output sink.
var ErrOpenOutput = errors.New("failed to open output")

// Output is a buffered text sink. Write errors are sticky: once a write fails
// every later write fails and Close reports the first error.
type Output struct {
	w       *bufio.Writer
	file    *os.File
	written int64
}

// IsStdout reports whether name designates standard output: "", "-" or a
// bare extension such as "-.txt".
func IsStdout(name string) bool {
	if name == "" || name == "-" {
		return true
	}
	return strings.HasPrefix(name, "-") && strings.LastIndexByte(name, '.') == 1
}

// OpenOutput opens the sink called name. Standard output is written to stdout
// and never closed. An existing file is only replaced when overwrite is set.
func OpenOutput(name string, overwrite bool, stdout io.Writer) (*Output, error) {
	if IsStdout(name) {
		if stdout == nil {
			stdout = os.Stdout
		}
		return &Output{w: bufio.NewWriter(stdout)}, nil
	}

	if _, err := os.Stat(name); err == nil && !overwrite {
		return nil, fmt.Errorf("%w: %w", ErrOpenOutput, &fs.PathError{Op: "open", Path: name, Err: syscall.EEXIST})
	}
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenOutput, err)
	}
	return &Output{w: bufio.NewWriter(f), file: f}, nil
}

func (o *Output) Write(p []byte) (int, error) {
	n, err := o.w.Write(p)
	o.written += int64(n)
	return n, err
}

// Written returns the number of bytes accepted so far.
func (o *Output) Written() int64 {
	return o.written
}

// Close flushes buffered text and closes the file unless it is stdout.
func (o *Output) Close() error {
	err := o.w.Flush()
	if o.file != nil {
		if cerr := o.file.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// systemErrorText returns the bare operating-system message of err, e.g.
// "file exists", without operation and path.
func systemErrorText(err error) string {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno.Error()
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err.Error()
	}
	return err.Error()
}
