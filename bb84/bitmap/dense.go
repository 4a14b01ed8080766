package bitmap

// A Dense is a bitmap where every bit is explicitly represented. Bits stored
// past len in the final byte are always zero.
type Dense struct {
	bits []byte
	len  int
}

// NewDense returns a new dense bitmap over data, whose length is bitLen. If
// bitLen is longer than data, then trailing zeros are added; bytes beyond
// bitLen are dropped and stray bits in the final byte are cleared, which
// writes through to data. If bitLen is negative, then it is inferred from
// data.
func NewDense(data []byte, bitLen int) Dense {
	if bitLen < 0 {
		bitLen = len(data) * byteSize
	}
	if nb := BytesFor(bitLen); len(data) > nb {
		data = data[:nb]
	}
	r := Dense{
		bits: data,
		len:  bitLen,
	}
	for len(r.bits) < r.SizeBytes() {
		r.bits = append(r.bits, 0)
	}
	r.clearTail()
	return r
}

// Get returns the i-th bit in this bitmap. Bits outside [0, Size()) read as
// zero.
func (d Dense) Get(i int) bool {
	j := i / byteSize
	if i < 0 || i >= d.len || j >= len(d.bits) {
		return false
	}
	return d.bits[j]&(1<<(i%byteSize)) != 0
}

// Size returns the number of bits in this bitmap.
func (d Dense) Size() int {
	return d.len
}

// SizeBytes returns the number of bytes needed to hold this bitmap.
func (d Dense) SizeBytes() int {
	return BytesFor(d.len)
}

// Data returns a view of the bytes underlying this bitmap. Modifying the
// returned slice modifies this bitmap.
func (d Dense) Data() []byte {
	return d.bits
}

// AppendBit adds a single bit to the end of d.
func (d *Dense) AppendBit(bit bool) {
	i, pos := d.len/byteSize, d.len%byteSize
	d.len++
	if pos == 0 {
		d.bits = append(d.bits[:i], 0)
	}
	if bit {
		d.bits[i] |= 1 << pos
	}
}

// clearTail zeroes any bits stored past d.len in the final byte.
func (d *Dense) clearTail() {
	j, off := d.len/byteSize, d.len%byteSize
	if off == 0 || j >= len(d.bits) {
		return
	}
	d.bits[j] &= 0xFF >> (byteSize - off)
}
