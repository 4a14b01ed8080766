package bitmap

import "fmt"

// And returns the bitwise AND of two bitmaps. The result is as long as the
// shorter operand.
func And(a, b Dense) Dense {
	n := a.len
	if b.len < n {
		n = b.len
	}
	return combine(a, b, n, func(x, y byte) byte { return x & y })
}

// XOr returns the bitwise XOR of two bitmaps. The shorter operand is padded
// with zeros to the length of the longer.
func XOr(a, b Dense) Dense {
	return combine(a, b, longest(a, b), func(x, y byte) byte { return x ^ y })
}

// XNor returns the bitwise XNOR of two bitmaps. The shorter operand is padded
// with zeros to the length of the longer.
func XNor(a, b Dense) Dense {
	return combine(a, b, longest(a, b), func(x, y byte) byte { return ^(x ^ y) })
}

func longest(a, b Dense) int {
	if a.len > b.len {
		return a.len
	}
	return b.len
}

func combine(a, b Dense, n int, f func(x, y byte) byte) Dense {
	r := Dense{bits: make([]byte, BytesFor(n)), len: n}
	for i := range r.bits {
		r.bits[i] = f(byteAt(a, i), byteAt(b, i))
	}
	r.clearTail()
	return r
}

func byteAt(d Dense, i int) byte {
	if i < len(d.bits) {
		return d.bits[i]
	}
	return 0
}

// Slice returns a copy of bits [start, end) of d.
func Slice(d Dense, start, end int) (Dense, error) {
	if end > d.len {
		return Dense{}, fmt.Errorf("slicing bitmap of len %d up to %d", d.len, end)
	}
	if start < 0 {
		return Dense{}, fmt.Errorf("slicing bitmap with negative start: %d", start)
	}
	if end < start {
		return Dense{}, fmt.Errorf("slicing bitmap to negative length: %d", end-start)
	}

	n := end - start
	j, off := start/byteSize, uint(start%byteSize)
	r := Dense{bits: make([]byte, BytesFor(n)), len: n}
	for i := range r.bits {
		b := d.bits[j+i] >> off
		if off != 0 && j+i+1 < len(d.bits) {
			b |= d.bits[j+i+1] << (byteSize - off)
		}
		r.bits[i] = b
	}
	r.clearTail()
	return r, nil
}
