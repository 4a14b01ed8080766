package photon

import (
	"math/rand"

	"github.com/alan-christopher/bb84sim/bb84/bitmap"
)

// An Interception is everything an intercept-resend eavesdropper learned
// during a transmission. It never flows back into the legitimate parties'
// sifting or estimation.
type Interception struct {
	// Bases holds the basis Eve measured index i in; a set bit is Diagonal.
	Bases bitmap.Dense
	// Bits holds the outcome of each of Eve's measurements.
	Bits bitmap.Dense
}

// Size returns the number of intercepted qubits.
func (ic *Interception) Size() int {
	return ic.Bases.Size()
}

// Transmit carries qubits across the quantum channel. With eavesdrop unset the
// channel is perfect and the returned sequence equals the input. Otherwise
// each qubit is measured in a random basis and the outcome is re-prepared in
// that same basis before being forwarded, and the returned Interception
// records what was seen.
func Transmit(qubits []Qubit, eavesdrop bool, r *rand.Rand) ([]Qubit, *Interception) {
	out := make([]Qubit, len(qubits))
	if !eavesdrop {
		copy(out, qubits)
		return out, nil
	}
	ic := &Interception{}
	for i, q := range qubits {
		b := randomBasis(r)
		bit := Measure(q, b, r)
		ic.Bases.AppendBit(b == Diagonal)
		ic.Bits.AppendBit(bit)
		out[i] = Qubit{Bit: bit, Basis: b}
	}
	return out, ic
}
