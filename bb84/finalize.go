package bb84

import (
	"github.com/alan-christopher/bb84sim/bb84/bitmap"
)

// Finalize removes the disclosed sample positions from Alice's sifted bits.
// The result may be empty, which means no usable key rather than an insecure
// channel.
func Finalize(siftedAlice bitmap.Dense, sample []int) bitmap.Dense {
	return bitmap.Drop(siftedAlice, sample)
}
