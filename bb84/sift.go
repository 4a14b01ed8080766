package bb84

import (
	"github.com/alan-christopher/bb84sim/bb84/bitmap"
)

// A SiftedKey holds the bits Alice and Bob keep after discarding every
// position where their bases disagreed. Indices[j] is the transmission index
// that Alice.Get(j) and Bob.Get(j) came from.
type SiftedKey struct {
	Indices []int
	Alice   bitmap.Dense
	Bob     bitmap.Dense
}

// Size returns the number of sifted positions.
func (k SiftedKey) Size() int {
	return len(k.Indices)
}

// Sift keeps the positions where aliceBases and bobBases agree. All four
// sequences must have the same length. An empty key is not an error.
func Sift(aliceBases, bobBases, aliceBits, bobBits bitmap.Dense) (SiftedKey, error) {
	n := aliceBases.Size()
	for _, d := range []bitmap.Dense{bobBases, aliceBits, bobBits} {
		if d.Size() != n {
			return SiftedKey{}, &LengthMismatchError{Stage: "sift", Want: n, Got: d.Size()}
		}
	}
	mask := bitmap.XNor(aliceBases, bobBases)
	return SiftedKey{
		Indices: bitmap.Indices(mask),
		Alice:   bitmap.Select(aliceBits, mask),
		Bob:     bitmap.Select(bobBits, mask),
	}, nil
}
