package bb84

import (
	"fmt"
	"math"

	"github.com/alan-christopher/bb84sim/bb84/bitmap"
	"github.com/alan-christopher/bb84sim/bb84/photon"
)

// A toeplitz represents a matrix whose diagonals are all constant. It operates
// in F_2, i.e. all of its scalars are 0 or 1.
type toeplitz struct {
	// The diagonal constants for this toeplitz matrix, starting from the bottom
	// left and ending with the top right.
	diags bitmap.Dense

	m int
	n int
}

// Mul computes the matrix product Av between the toeplitz matrix t and the
// provided vector.
func (t toeplitz) Mul(vec bitmap.Dense) (bitmap.Dense, error) {
	// TODO: surely there are ways to take advantage of the structure of a
	//   toeplitz matrix to achieve vector mul in better than O(mn) time.
	if t.diags.Size() < t.m+t.n-1 {
		return bitmap.Dense{}, fmt.Errorf("improper toeplitz construction, has %d diagonals, needs %d", t.diags.Size(), t.m+t.n-1)
	}
	if t.n != vec.Size() {
		return bitmap.Dense{}, fmt.Errorf("multiplying %dx%d matrix into %d-dim vector", t.m, t.n, vec.Size())
	}

	r := bitmap.Dense{}
	for off := t.m - 1; off >= 0; off-- {
		row, err := bitmap.Slice(t.diags, off, off+t.n)
		if err != nil {
			return bitmap.Empty(), err
		}
		r.AppendBit(bitmap.Parity(bitmap.And(row, vec)))
	}
	return r, nil
}

// amplifiedLength returns how many bits survive privacy amplification of an
// n-bit key, given bitsLeaked bits of possible leakage.
func amplifiedLength(n int, bitsLeaked, eps float64) int {
	m := n - int(math.Ceil(bitsLeaked+2*math.Log(1/eps)))
	if m < 0 {
		return 0
	}
	return m
}

// amplify hashes key down to amplifiedLength bits with a Toeplitz matrix whose
// diagonals are drawn from src.
func amplify(key bitmap.Dense, qber float64, sampleSize int, eps float64, src *photon.Source) (bitmap.Dense, error) {
	n := key.Size()
	m := amplifiedLength(n, MaxEveInfo(qber, eps, n, sampleSize), eps)
	if m == 0 {
		return bitmap.Empty(), nil
	}
	t := toeplitz{
		diags: src.Bits(m + n - 1),
		m:     m,
		n:     n,
	}
	return t.Mul(key)
}
