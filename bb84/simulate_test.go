package bb84

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/alan-christopher/bb84sim/bb84/bitmap"
)

func TestSimulateNoEavesdropper(t *testing.T) {
	res, err := Simulate(Options{Qubits: 20, Seed: Int64(42)})
	require.NoError(t, err)

	assert.Equal(t, int64(42), res.Seed)
	assert.Equal(t, 0.0, res.ErrorRate)
	assert.True(t, res.Secure)
	assert.Nil(t, res.Interception)
	assert.LessOrEqual(t, res.SiftedLength(), 20)
	assert.Equal(t, res.SiftedLength()-res.SampleSize(), res.FinalKey.Size())
	assert.Equal(t, res.Sifted.Alice.String(), res.Sifted.Bob.String(), "sifted keys disagree without an eavesdropper")

	again, err := Simulate(Options{Qubits: 20, Seed: Int64(42)})
	require.NoError(t, err)
	assert.Equal(t, res.SiftedLength(), again.SiftedLength())
}

func TestSimulateEavesdropperDetected(t *testing.T) {
	res, err := Simulate(Options{Qubits: 10000, Eavesdrop: true, Seed: Int64(7)})
	require.NoError(t, err)

	require.NotNil(t, res.Interception)
	assert.Equal(t, 10000, res.Interception.Size())
	assert.InDelta(t, 0.25, res.ErrorRate, 0.03)
	assert.False(t, res.Secure)
	assert.Equal(t, 0, res.FinalKey.Size())
	assert.Equal(t, "", res.KeyString())
	assert.True(t, res.Analysis.Excludes(DefaultErrorThreshold))
}

func TestSimulateSequenceLengths(t *testing.T) {
	for _, eavesdrop := range []bool{false, true} {
		for _, n := range []int{1, 7, 64, 1001} {
			res, err := Simulate(Options{Qubits: n, Eavesdrop: eavesdrop, Seed: Int64(int64(n))})
			require.NoError(t, err)
			assert.Equal(t, n, res.AliceBits.Size())
			assert.Equal(t, n, res.AliceBases.Size())
			assert.Equal(t, n, res.BobBases.Size())
			assert.Equal(t, n, res.BobBits.Size())
			assert.Len(t, res.Records, n)
			assert.LessOrEqual(t, res.SiftedLength(), n)
			if eavesdrop {
				require.NotNil(t, res.Interception)
				assert.Equal(t, n, res.Interception.Bits.Size())
			}
		}
	}
}

func TestSimulateDeterminism(t *testing.T) {
	for _, eavesdrop := range []bool{false, true} {
		opts := Options{Qubits: 500, Eavesdrop: eavesdrop, Seed: Int64(1234), PrivacyAmplification: true}
		a, err := Simulate(opts)
		require.NoError(t, err)
		b, err := Simulate(opts)
		require.NoError(t, err)

		assert.Equal(t, a.AliceBits.String(), b.AliceBits.String())
		assert.Equal(t, a.AliceBases.String(), b.AliceBases.String())
		assert.Equal(t, a.BobBases.String(), b.BobBases.String())
		assert.Equal(t, a.BobBits.String(), b.BobBits.String())
		assert.Equal(t, a.Sample, b.Sample)
		assert.Equal(t, a.ErrorRate, b.ErrorRate)
		assert.Equal(t, a.Secure, b.Secure)
		assert.Equal(t, a.FinalKey.String(), b.FinalKey.String())
		assert.Equal(t, a.AmplifiedKey.String(), b.AmplifiedKey.String())
		assert.NotEqual(t, a.RunID, b.RunID)
	}
}

func TestSimulateUnseeded(t *testing.T) {
	res, err := Simulate(Options{Qubits: 100})
	require.NoError(t, err)

	replay, err := Simulate(Options{Qubits: 100, Seed: Int64(res.Seed)})
	require.NoError(t, err)
	assert.Equal(t, res.AliceBits.String(), replay.AliceBits.String())
	assert.Equal(t, res.BobBits.String(), replay.BobBits.String())
}

func TestFinalKeyExcludesSample(t *testing.T) {
	res, err := Simulate(Options{Qubits: 2000, Seed: Int64(3)})
	require.NoError(t, err)
	require.True(t, res.Secure)

	sampled := map[int]bool{}
	for _, s := range res.Sample {
		sampled[s] = true
	}
	var kept bitmap.Dense
	for j := 0; j < res.SiftedLength(); j++ {
		if !sampled[j] {
			kept.AppendBit(res.Sifted.Alice.Get(j))
		}
	}
	assert.Equal(t, kept.String(), res.FinalKey.String())
	assert.Equal(t, res.SiftedLength()-res.SampleSize(), res.FinalKey.Size())

	zeros, ones := res.KeyBalance()
	assert.Equal(t, res.FinalKey.Size(), zeros+ones)
}

func TestRecords(t *testing.T) {
	res, err := Simulate(Options{Qubits: 300, Eavesdrop: true, Seed: Int64(5)})
	require.NoError(t, err)

	matched, sampled := 0, 0
	for i, rec := range res.Records {
		assert.Equal(t, i, rec.Index)
		assert.Equal(t, rec.AliceBasis == rec.BobBasis, rec.Matched)
		if rec.Matched {
			matched++
		}
		if rec.Sampled {
			sampled++
			assert.True(t, rec.Matched, "record %d sampled without matching bases", i)
		}
	}
	assert.Equal(t, res.SiftedLength(), matched)
	assert.Equal(t, res.SampleSize(), sampled)
	assert.Len(t, res.Preview(20), 20)
	assert.Len(t, res.Preview(1000), 300)
	assert.Empty(t, res.Preview(-1))

	preview := res.Preview(5)
	preview[0].AliceBit = !preview[0].AliceBit
	preview[0].Matched = !preview[0].Matched
	assert.Equal(t, res.AliceBits.Get(0), res.Records[0].AliceBit, "editing a preview changed the result")
	assert.NotEqual(t, preview[0].Matched, res.Records[0].Matched)
}

func TestInterceptResendErrorRate(t *testing.T) {
	res, err := Simulate(Options{Qubits: 10000, Eavesdrop: true, Seed: Int64(99)})
	require.NoError(t, err)

	mismatches := bitmap.CountOnes(bitmap.XOr(res.Sifted.Alice, res.Sifted.Bob))
	rate := float64(mismatches) / float64(res.SiftedLength())
	assert.InDelta(t, 0.25, rate, 0.03)
}

func TestErrorRateConvergesAcrossSeeds(t *testing.T) {
	var rates []float64
	for seed := int64(0); seed < 20; seed++ {
		res, err := Simulate(Options{Qubits: 2000, Eavesdrop: true, Seed: Int64(seed)})
		require.NoError(t, err)
		rates = append(rates, res.ErrorRate)
	}
	mean, std := stat.MeanStdDev(rates, nil)
	assert.InDelta(t, 0.25, mean, 0.02)
	assert.Less(t, std, 0.05)
}

func TestSimulateTinyRuns(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		res, err := Simulate(Options{Qubits: 1, Seed: Int64(seed)})
		require.NoError(t, err)
		assert.True(t, res.Secure)
		assert.Equal(t, 0, res.FinalKey.Size(), "a single qubit cannot leave key material after disclosure")
	}
}

func TestThresholdBoundary(t *testing.T) {
	base, err := Simulate(Options{Qubits: 4000, Eavesdrop: true, Seed: Int64(21)})
	require.NoError(t, err)
	require.Greater(t, base.ErrorRate, 0.0)

	equal, err := Simulate(Options{Qubits: 4000, Eavesdrop: true, Seed: Int64(21), ErrorThreshold: Float64(base.ErrorRate)})
	require.NoError(t, err)
	assert.Equal(t, base.ErrorRate, equal.ErrorRate)
	assert.True(t, equal.Secure)
	assert.Greater(t, equal.FinalKey.Size(), 0)

	below, err := Simulate(Options{Qubits: 4000, Eavesdrop: true, Seed: Int64(21),
		ErrorThreshold: Float64(math.Nextafter(base.ErrorRate, 0))})
	require.NoError(t, err)
	assert.False(t, below.Secure)
	assert.Equal(t, 0, below.FinalKey.Size())
}

func TestPrivacyAmplification(t *testing.T) {
	res, err := Simulate(Options{Qubits: 10000, Seed: Int64(8), PrivacyAmplification: true})
	require.NoError(t, err)
	require.True(t, res.Secure)
	assert.Greater(t, res.AmplifiedKey.Size(), 0)
	assert.Less(t, res.AmplifiedKey.Size(), res.FinalKey.Size())

	plain, err := Simulate(Options{Qubits: 10000, Seed: Int64(8)})
	require.NoError(t, err)
	assert.Equal(t, 0, plain.AmplifiedKey.Size())
	assert.Equal(t, res.FinalKey.String(), plain.FinalKey.String())
}

func TestSimulateInvalidConfiguration(t *testing.T) {
	tcs := []struct {
		name  string
		opts  Options
		field string
	}{
		{"zero qubits", Options{}, "qubit_count"},
		{"negative qubits", Options{Qubits: -3}, "qubit_count"},
		{"negative threshold", Options{Qubits: 10, ErrorThreshold: Float64(-0.1)}, "error_threshold"},
		{"threshold above one", Options{Qubits: 10, ErrorThreshold: Float64(1.1)}, "error_threshold"},
		{"NaN threshold", Options{Qubits: 10, ErrorThreshold: Float64(math.NaN())}, "error_threshold"},
		{"negative sample fraction", Options{Qubits: 10, SampleFraction: -0.5}, "sample_fraction"},
		{"sample fraction above one", Options{Qubits: 10, SampleFraction: 1.5}, "sample_fraction"},
		{"negative minimum sample", Options{Qubits: 10, MinSampleSize: -1}, "min_sample_size"},
		{"certain confidence", Options{Qubits: 10, Confidence: 1}, "confidence"},
		{"epsilon of one", Options{Qubits: 10, EpsilonPrivacy: 1}, "epsilon_privacy"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Simulate(tc.opts)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))
			var ice *InvalidConfigurationError
			require.True(t, errors.As(err, &ice))
			assert.Equal(t, tc.field, ice.Field)
		})
	}
}

func TestSimulateBoundaryThresholds(t *testing.T) {
	for _, th := range []float64{0, 1} {
		_, err := Simulate(Options{Qubits: 10, ErrorThreshold: Float64(th), Seed: Int64(1)})
		assert.NoError(t, err, "threshold %v", th)
	}
	_, err := Simulate(Options{Qubits: 10, SampleFraction: 1, Seed: Int64(1)})
	assert.NoError(t, err)
}

func TestSimulateLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	res, err := Simulate(Options{Qubits: 50, Seed: Int64(2), Logger: &logger})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "run complete")
	assert.Contains(t, out, "key sifted")
	assert.Contains(t, out, res.RunID)
	assert.Contains(t, out, `"seed":2`)
}
