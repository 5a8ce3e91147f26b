// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package cpu

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"k8s.io/utils/cpuset"
)

const (
	maskWordBits    = 32
	tasksetWordBits = 64
)

// FormatMask serializes a set as comma-separated 32-bit hexadecimal words, most
// significant word first. Each non-zero word is printed as "0x%08x". Zero words
// between non-zero ones print nothing but their separating comma and a trailing
// zero word prints "0x0". The empty set is "0x0".
//
// Examples:
//   - {0-3} -> "0x0000000f"
//   - {32} -> "0x00000001,0x0"
//   - {0,64} -> "0x00000001,,0x00000001"
func FormatMask(set cpuset.CPUSet) string {
	words := splitWords(set, maskWordBits)

	var b strings.Builder
	needComma := false
	for i := len(words) - 1; i >= 0; i-- {
		switch {
		case words[i] != 0:
			if needComma {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "0x%08x", words[i])
			needComma = true
		case i == 0:
			if needComma {
				b.WriteByte(',')
			}
			b.WriteString("0x0")
		case needComma:
			b.WriteByte(',')
		}
	}

	return b.String()
}

// FormatTaskset serializes a set the way taskset(1) accepts it: a single
// hexadecimal number where the most significant 64-bit word is printed as "0x%x"
// and every following word as "%016x". The empty set is "0x0".
func FormatTaskset(set cpuset.CPUSet) string {
	words := splitWords(set, tasksetWordBits)

	var b strings.Builder
	started := false
	for i := len(words) - 1; i >= 0; i-- {
		switch {
		case started:
			fmt.Fprintf(&b, "%016x", words[i])
		case words[i] != 0 || i == 0:
			fmt.Fprintf(&b, "0x%x", words[i])
			started = true
		}
	}

	return b.String()
}

// ParseMask parses the output of FormatMask, or a single hexadecimal number
// such as the output of FormatTaskset, back into a set. Empty words between
// commas are zero.
func ParseMask(mask string) (cpuset.CPUSet, error) {
	mask = strings.TrimSpace(mask)
	if mask == "" {
		return cpuset.New(), nil
	}

	parts := strings.Split(mask, ",")
	if len(parts) == 1 {
		n, ok := new(big.Int).SetString(trimHexPrefix(parts[0]), 16)
		if !ok {
			return cpuset.New(), fmt.Errorf("invalid CPU mask: %s", mask)
		}
		var cpus []int
		for bit := 0; bit < n.BitLen(); bit++ {
			if n.Bit(bit) == 1 {
				cpus = append(cpus, bit)
			}
		}
		return cpuset.New(cpus...), nil
	}

	var cpus []int
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		word, err := strconv.ParseUint(trimHexPrefix(part), 16, maskWordBits)
		if err != nil {
			return cpuset.New(), fmt.Errorf("invalid CPU mask word %q: %w", part, err)
		}
		base := (len(parts) - 1 - i) * maskWordBits
		for bit := 0; bit < maskWordBits; bit++ {
			if word&(1<<bit) != 0 {
				cpus = append(cpus, base+bit)
			}
		}
	}

	return cpuset.New(cpus...), nil
}

// splitWords returns the set as little-endian words of the given width. At
// least one word is always returned.
func splitWords(set cpuset.CPUSet, bits int) []uint64 {
	cpus := set.List()
	if len(cpus) == 0 {
		return []uint64{0}
	}

	words := make([]uint64, cpus[len(cpus)-1]/bits+1)
	for _, cpu := range cpus {
		words[cpu/bits] |= 1 << (cpu % bits)
	}
	return words
}

func trimHexPrefix(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
