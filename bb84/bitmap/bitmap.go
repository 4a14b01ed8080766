// Package bitmap provides utilities for operating on densely-packed arrays of
// booleans. Every bit and basis sequence produced by a simulation run is a
// Dense.
package bitmap

import (
	"fmt"
	"math/bits"
	"strings"
)

// TODO: this could be more efficient on many architectures if we used larger
//   blocks than 8-bit bytes.
const byteSize = 8

// Select selects a subset of bits from data, according to which bits are set in
// mask.
func Select(data, mask Dense) Dense {
	var d Dense
	for i := 0; i < data.Size(); i++ {
		if !mask.Get(i) {
			continue
		}
		d.AppendBit(data.Get(i))
	}
	return d
}

// Drop returns a copy of data with the bits at the given positions removed.
// Remaining bits keep their relative order. Out of range positions are
// ignored.
func Drop(data Dense, positions []int) Dense {
	skip := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		skip[p] = struct{}{}
	}
	var d Dense
	for i := 0; i < data.Size(); i++ {
		if _, ok := skip[i]; ok {
			continue
		}
		d.AppendBit(data.Get(i))
	}
	return d
}

// Pick returns the bits of data at the given positions, in the order the
// positions are listed.
func Pick(data Dense, positions []int) (Dense, error) {
	var d Dense
	for _, p := range positions {
		if p < 0 || p >= data.Size() {
			return Dense{}, fmt.Errorf("picking bit %d of bitmap with len %d", p, data.Size())
		}
		d.AppendBit(data.Get(p))
	}
	return d, nil
}

// Indices returns the positions of every set bit in d, in increasing order.
func Indices(d Dense) []int {
	var r []int
	for i := 0; i < d.Size(); i++ {
		if d.Get(i) {
			r = append(r, i)
		}
	}
	return r
}

// Empty returns an empty, dense bit array.
func Empty() Dense {
	return Dense{}
}

// FromString converts a string of '1's and '0's to a Dense. Spaces are
// ignored.
func FromString(s string) (Dense, error) {
	d := Dense{}
	for _, c := range s {
		switch c {
		case '1':
			d.AppendBit(true)
		case '0':
			d.AppendBit(false)
		case ' ':
			continue
		default:
			return Dense{}, fmt.Errorf("invalid bitmap string rep: %s", s)
		}
	}
	return d, nil
}

// String renders d as a string of '0's and '1's, lowest index first.
func (d Dense) String() string {
	var sb strings.Builder
	sb.Grow(d.len)
	for i := 0; i < d.len; i++ {
		if d.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Parity returns the overall parity of d, with true corresponding to 1 and
// false to 0.
func Parity(d Dense) bool {
	var sum byte
	for _, b := range d.bits {
		sum ^= b
	}
	return bits.OnesCount8(sum)%2 == 1
}

// CountOnes returns the total number of bits set in d.
func CountOnes(d Dense) int {
	var sum int
	for _, b := range d.bits {
		sum += bits.OnesCount8(b)
	}
	return sum
}

// BytesFor returns the number of bytes necessary to hold the provided number of
// bits.
func BytesFor(bits int) int {
	return (bits + 8 - 1) / 8
}
