// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStdout(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{name: "", expected: true},
		{name: "-", expected: true},
		{name: "-.txt", expected: true},
		{name: "-.xml", expected: true},
		{name: "topo.txt", expected: false},
		{name: "-topo.txt", expected: false},
		{name: "--", expected: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.name), func(t *testing.T) {
			assert.Equal(t, tt.expected, IsStdout(tt.name))
		})
	}
}

func TestOpenOutputStdout(t *testing.T) {
	var stdout bytes.Buffer
	out, err := OpenOutput("-", false, &stdout)
	require.NoError(t, err)

	_, err = io.WriteString(out, "hello\n")
	require.NoError(t, err)
	assert.Empty(t, stdout.String(), "text is buffered until Close")

	require.NoError(t, out.Close())
	assert.Equal(t, "hello\n", stdout.String())
	assert.Equal(t, int64(6), out.Written())
}

func TestOpenOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")

	out, err := OpenOutput(path, false, nil)
	require.NoError(t, err)
	_, err = io.WriteString(out, "first\n")
	require.NoError(t, err)
	require.NoError(t, out.Close())

	_, err = OpenOutput(path, false, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpenOutput)
	assert.True(t, errors.Is(err, syscall.EEXIST))
	assert.Equal(t, "file exists", systemErrorText(err))

	out, err = OpenOutput(path, true, nil)
	require.NoError(t, err)
	_, err = io.WriteString(out, "second\n")
	require.NoError(t, err)
	require.NoError(t, out.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(content))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

// TestOutputStickyError validates that a failed flush is reported by Close.
func TestOutputStickyError(t *testing.T) {
	out, err := OpenOutput("-", false, failingWriter{})
	require.NoError(t, err)

	_, err = io.WriteString(out, "lost\n")
	require.NoError(t, err)

	err = out.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSystemErrorText(t *testing.T) {
	assert.Equal(t, "no such file or directory", systemErrorText(fmt.Errorf("wrapped: %w", syscall.ENOENT)))
	assert.Equal(t, "plain", systemErrorText(errors.New("plain")))
}
