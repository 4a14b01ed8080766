package bb84

import (
	"math"
	"math/rand"
	"sort"

	"github.com/alan-christopher/bb84sim/bb84/bitmap"
)

// An ErrorEstimate is the outcome of comparing a disclosed sample of the
// sifted key.
type ErrorEstimate struct {
	// Rate is Mismatches / len(Sample), or 0 for an empty sample.
	Rate       float64
	Mismatches int
	// Sample lists the disclosed sifted-key positions in increasing order.
	Sample []int
}

// SampleSize returns how many of n sifted positions to disclose: all of them
// when n is below minimum, otherwise ceil(fraction * n).
func SampleSize(n int, fraction float64, minimum int) int {
	if n < minimum {
		return n
	}
	// Guard against 0.3*10 == 3.0000000000000004 rounding up to 4.
	k := int(math.Ceil(fraction*float64(n) - 1e-9))
	if k > n {
		k = n
	}
	if k < 0 {
		k = 0
	}
	return k
}

// ChooseSample draws k distinct positions out of [0, n) from r and returns
// them sorted.
func ChooseSample(n, k int, r *rand.Rand) []int {
	if k <= 0 {
		return nil
	}
	sample := r.Perm(n)[:k]
	sort.Ints(sample)
	return sample
}

// EstimateError discloses a random sample of the sifted key, sized by
// SampleSize, and reports the fraction of sampled positions where Alice's
// and Bob's bits disagree.
func EstimateError(alice, bob bitmap.Dense, fraction float64, minSample int, r *rand.Rand) (ErrorEstimate, error) {
	if alice.Size() != bob.Size() {
		return ErrorEstimate{}, &LengthMismatchError{Stage: "estimate", Want: alice.Size(), Got: bob.Size()}
	}
	sample := ChooseSample(alice.Size(), SampleSize(alice.Size(), fraction, minSample), r)
	return compareSample(alice, bob, sample)
}

func compareSample(alice, bob bitmap.Dense, sample []int) (ErrorEstimate, error) {
	aSampled, err := bitmap.Pick(alice, sample)
	if err != nil {
		return ErrorEstimate{}, err
	}
	bSampled, err := bitmap.Pick(bob, sample)
	if err != nil {
		return ErrorEstimate{}, err
	}
	est := ErrorEstimate{
		Mismatches: bitmap.CountOnes(bitmap.XOr(aSampled, bSampled)),
		Sample:     sample,
	}
	if len(sample) > 0 {
		est.Rate = float64(est.Mismatches) / float64(len(sample))
	}
	return est, nil
}
