// Package photon models qubits encoded as polarized photons: the bit and
// basis a sender prepares, the quantum channel that carries them, and what a
// receiver observes when measuring them.
//
// States are modelled classically. Measuring a qubit in the basis it was
// prepared in returns the prepared bit; measuring it in the other basis
// returns a uniformly random bit.
package photon

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/alan-christopher/bb84sim/bb84/bitmap"
)

// A Basis is one of the two conjugate polarization bases used by BB84.
type Basis uint8

const (
	// Rectilinear is the + basis, stored as a 0 in basis sequences.
	Rectilinear Basis = iota
	// Diagonal is the x basis, stored as a 1 in basis sequences.
	Diagonal
)

func (b Basis) String() string {
	if b == Diagonal {
		return "x"
	}
	return "+"
}

// A Qubit is the classical stand-in for a single prepared photon.
type Qubit struct {
	Bit   bool
	Basis Basis
}

// Compatible reports whether measuring q in basis b is deterministic.
func (q Qubit) Compatible(b Basis) bool {
	return q.Basis == b
}

// ErrLengthMismatch is matched by every LengthMismatchError.
var ErrLengthMismatch = errors.New("length mismatch")

// A LengthMismatchError reports that index-aligned sequences handed to Stage
// disagree in length.
type LengthMismatchError struct {
	Stage string
	Want  int
	Got   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s: sequence lengths must agree: %d != %d", e.Stage, e.Want, e.Got)
}

// Is makes errors.Is(err, ErrLengthMismatch) hold.
func (e *LengthMismatchError) Is(target error) bool {
	return target == ErrLengthMismatch
}

// BasisAt returns the basis stored at index i of a basis sequence.
func BasisAt(bases bitmap.Dense, i int) Basis {
	if bases.Get(i) {
		return Diagonal
	}
	return Rectilinear
}

// Encode pairs each bit with the basis at the same index.
func Encode(bits, bases bitmap.Dense) ([]Qubit, error) {
	if bits.Size() != bases.Size() {
		return nil, &LengthMismatchError{Stage: "encode", Want: bits.Size(), Got: bases.Size()}
	}
	qubits := make([]Qubit, bits.Size())
	for i := range qubits {
		qubits[i] = Qubit{Bit: bits.Get(i), Basis: BasisAt(bases, i)}
	}
	return qubits, nil
}

// Measure collapses q in basis b. A compatible measurement returns q.Bit and
// consumes no randomness; an incompatible one draws a single fair bit from r.
func Measure(q Qubit, b Basis, r *rand.Rand) bool {
	if q.Compatible(b) {
		return q.Bit
	}
	return randomBit(r)
}

// MeasureAll measures qubits[i] in bases[i] for every i, in index order.
func MeasureAll(qubits []Qubit, bases bitmap.Dense, r *rand.Rand) (bitmap.Dense, error) {
	if len(qubits) != bases.Size() {
		return bitmap.Empty(), &LengthMismatchError{Stage: "measure", Want: len(qubits), Got: bases.Size()}
	}
	var bits bitmap.Dense
	for i, q := range qubits {
		bits.AppendBit(Measure(q, BasisAt(bases, i), r))
	}
	return bits, nil
}

func randomBit(r *rand.Rand) bool {
	return r.Intn(2) == 1
}

func randomBasis(r *rand.Rand) Basis {
	if randomBit(r) {
		return Diagonal
	}
	return Rectilinear
}
