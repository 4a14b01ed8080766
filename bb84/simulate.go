package bb84

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alan-christopher/bb84sim/bb84/bitmap"
	"github.com/alan-christopher/bb84sim/bb84/photon"
)

// A Record is the legitimate parties' view of a single transmission.
type Record struct {
	Index      int
	AliceBit   bool
	AliceBasis photon.Basis
	BobBasis   photon.Basis
	BobBit     bool
	// Matched is set when the bases agree and the position survives sifting.
	Matched bool
	// Sampled is set when the position was disclosed for error estimation.
	Sampled bool
}

// A Result is everything one simulation run produced. Eve's observations are
// only reachable through Interception.
type Result struct {
	RunID          string
	Seed           int64
	Qubits         int
	Eavesdrop      bool
	Threshold      float64
	SampleFraction float64

	AliceBits  bitmap.Dense
	AliceBases bitmap.Dense
	BobBases   bitmap.Dense
	BobBits    bitmap.Dense
	Records    []Record

	// Interception is nil unless Eavesdrop was set.
	Interception *photon.Interception

	Sifted SiftedKey
	// Sample lists disclosed positions within Sifted.
	Sample     []int
	Mismatches int
	ErrorRate  float64
	Analysis   Analysis
	Secure     bool

	// FinalKey is empty unless Secure.
	FinalKey bitmap.Dense
	// AmplifiedKey is only filled in when privacy amplification was requested
	// and the run was secure.
	AmplifiedKey bitmap.Dense
}

// SiftedLength returns the number of positions where the bases agreed.
func (res *Result) SiftedLength() int {
	return res.Sifted.Size()
}

// SampleSize returns the number of disclosed positions.
func (res *Result) SampleSize() int {
	return len(res.Sample)
}

// SampledIndices maps the disclosed sifted positions back to transmission
// indices.
func (res *Result) SampledIndices() []int {
	idx := make([]int, 0, len(res.Sample))
	for _, s := range res.Sample {
		idx = append(idx, res.Sifted.Indices[s])
	}
	return idx
}

// KeyString renders FinalKey as '0' and '1' characters.
func (res *Result) KeyString() string {
	return res.FinalKey.String()
}

// KeyBalance returns the number of zeros and ones in FinalKey.
func (res *Result) KeyBalance() (zeros, ones int) {
	ones = bitmap.CountOnes(res.FinalKey)
	return res.FinalKey.Size() - ones, ones
}

// Preview returns a copy of at most the first n records.
func (res *Result) Preview(n int) []Record {
	if n > len(res.Records) {
		n = len(res.Records)
	}
	if n < 0 {
		n = 0
	}
	return append([]Record(nil), res.Records[:n]...)
}

// Simulate runs one BB84 exchange: Alice prepares random bits in random
// bases, the qubits cross a (possibly tapped) channel, Bob measures in his own
// random bases, and the two sift, estimate the error rate on a disclosed
// sample and keep the rest of the key if the rate is acceptable.
//
// Randomness is drawn from a single generator in a fixed order, so a fixed
// seed reproduces the run exactly.
func Simulate(opts Options) (*Result, error) {
	s, err := opts.settings()
	if err != nil {
		return nil, err
	}
	seed, err := chooseSeed(s.seed)
	if err != nil {
		return nil, err
	}
	src := photon.NewSource(seed)
	res := &Result{
		RunID:          uuid.NewString(),
		Seed:           seed,
		Qubits:         s.qubits,
		Eavesdrop:      s.eavesdrop,
		Threshold:      s.threshold,
		SampleFraction: s.sampleFrac,
	}
	log := s.log.With().Str("run_id", res.RunID).Int64("seed", seed).Logger()

	res.AliceBits = src.Bits(s.qubits)
	res.AliceBases = src.Bases(s.qubits)
	res.BobBases = src.Bases(s.qubits)
	sent, err := photon.Encode(res.AliceBits, res.AliceBases)
	if err != nil {
		return nil, err
	}
	received, ic := photon.Transmit(sent, s.eavesdrop, src.Rand())
	res.Interception = ic
	res.BobBits, err = photon.MeasureAll(received, res.BobBases, src.Rand())
	if err != nil {
		return nil, err
	}
	log.Debug().Int("qubits", s.qubits).Bool("eavesdrop", s.eavesdrop).Msg("qubits measured")

	res.Sifted, err = Sift(res.AliceBases, res.BobBases, res.AliceBits, res.BobBits)
	if err != nil {
		return nil, fmt.Errorf("sifting: %w", err)
	}
	log.Debug().Int("sifted", res.Sifted.Size()).Msg("key sifted")

	est, err := EstimateError(res.Sifted.Alice, res.Sifted.Bob, s.sampleFrac, s.minSample, src.Rand())
	if err != nil {
		return nil, fmt.Errorf("estimating error rate: %w", err)
	}
	res.Sample = est.Sample
	res.Mismatches = est.Mismatches
	res.ErrorRate = est.Rate
	res.Analysis = Analyze(est.Mismatches, len(est.Sample), s.confidence)
	log.Debug().
		Int("sample", len(est.Sample)).
		Int("mismatches", est.Mismatches).
		Float64("error_rate", est.Rate).
		Msg("error rate estimated")

	res.Secure = IsSecure(est.Rate, s.threshold)
	if res.Secure {
		res.FinalKey = Finalize(res.Sifted.Alice, est.Sample)
		if s.amplify {
			res.AmplifiedKey, err = amplify(res.FinalKey, est.Rate, len(est.Sample), s.epsPriv, src)
			if err != nil {
				return nil, fmt.Errorf("amplifying privacy: %w", err)
			}
		}
	}
	res.BuildRecords()

	lvl := zerolog.InfoLevel
	if !res.Secure {
		lvl = zerolog.WarnLevel
	}
	log.WithLevel(lvl).
		Bool("secure", res.Secure).
		Float64("error_rate", res.ErrorRate).
		Float64("threshold", s.threshold).
		Int("key_bits", res.FinalKey.Size()).
		Msg("run complete")
	return res, nil
}

// BuildRecords derives Records from the bit and basis sequences, the sifted
// indices and the sample.
func (res *Result) BuildRecords() {
	recs := make([]Record, res.Qubits)
	for i := range recs {
		recs[i] = Record{
			Index:      i,
			AliceBit:   res.AliceBits.Get(i),
			AliceBasis: photon.BasisAt(res.AliceBases, i),
			BobBasis:   photon.BasisAt(res.BobBases, i),
			BobBit:     res.BobBits.Get(i),
		}
	}
	for _, i := range res.Sifted.Indices {
		recs[i].Matched = true
	}
	for _, i := range res.SampledIndices() {
		recs[i].Sampled = true
	}
	res.Records = recs
}

func chooseSeed(seed *int64) (int64, error) {
	if seed != nil {
		return *seed, nil
	}
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("drawing seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
