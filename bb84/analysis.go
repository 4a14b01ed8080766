package bb84

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// An Analysis summarizes how much a sampled error rate can be trusted.
type Analysis struct {
	Rate       float64
	SampleSize int
	Confidence float64
	// StdErr is the binomial standard error of Rate.
	StdErr float64
	// Lower and Upper bound the true error rate at the given confidence,
	// clamped to [0, 1]. An empty sample bounds nothing: [0, 1].
	Lower float64
	Upper float64
}

// Analyze builds a normal-approximation confidence interval for an error rate
// observed as mismatches out of sample disclosed bits.
func Analyze(mismatches, sample int, confidence float64) Analysis {
	a := Analysis{SampleSize: sample, Confidence: confidence, Upper: 1}
	if sample <= 0 {
		return a
	}
	p := float64(mismatches) / float64(sample)
	a.Rate = p
	a.StdErr = math.Sqrt(p * (1 - p) / float64(sample))
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	a.Lower = math.Max(0, p-z*a.StdErr)
	a.Upper = math.Min(1, p+z*a.StdErr)
	return a
}

// Excludes reports whether the whole confidence interval lies above
// threshold, i.e. the channel is compromised even allowing for sampling
// noise.
func (a Analysis) Excludes(threshold float64) bool {
	return a.SampleSize > 0 && a.Lower > threshold
}

// MaxEveInfo returns a theoretical bound on the number of bits of
// information that Eve could have discerned about an n-bit key whose error
// rate was estimated as qber from k disclosed bits.
//
// See also, https://link.springer.com/article/10.1007/BF00191318
func MaxEveInfo(qber, eps float64, n, k int) float64 {
	if n <= 0 {
		return 0
	}
	if k <= 0 {
		// Nothing was checked, so nothing can be ruled out.
		return float64(n)
	}
	// See https://arxiv.org/abs/1506.08458, lemma 6.
	A := float64(n) * float64(k) * float64(k) / (float64(n+k) * float64(k+1))
	nu := math.Sqrt(0.5 * math.Log(1/eps) / A)
	qberPessimistic := qber + nu

	return math.Min(float64(n), 2*math.Sqrt(2)*qberPessimistic*float64(n))
}
