// Package bb84 simulates BB84 quantum key distribution between Alice and Bob,
// optionally with an intercept-resend eavesdropper, and decides from a
// disclosed sample of the sifted key whether the resulting key may be used.
package bb84

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/alan-christopher/bb84sim/bb84/photon"
)

var (
	DefaultSampleFraction = 0.5
	DefaultErrorThreshold = 0.15
	DefaultMinSampleSize  = 4
	DefaultConfidence     = 0.95
	DefaultEpsilon        = 1e-12
)

// ErrLengthMismatch is matched by every LengthMismatchError.
var ErrLengthMismatch = photon.ErrLengthMismatch

// A LengthMismatchError reports that index-aligned sequences reaching a stage
// disagree in length.
type LengthMismatchError = photon.LengthMismatchError

// ErrInvalidConfiguration is matched by every InvalidConfigurationError.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// An InvalidConfigurationError names the option that made a run impossible.
type InvalidConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidConfiguration) hold.
func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// Options packages together the arguments for a single simulation run. Fields
// left zero take the documented default, except Qubits, which must be set.
type Options struct {
	// Qubits is the number of qubits Alice prepares. Must be positive.
	Qubits int

	// Eavesdrop places an intercept-resend attacker on the quantum channel.
	Eavesdrop bool

	// ErrorThreshold is the highest sampled error rate still considered
	// secure. nil selects DefaultErrorThreshold; otherwise it must lie in
	// [0, 1].
	ErrorThreshold *float64

	// SampleFraction is the proportion of the sifted key disclosed for error
	// estimation, in (0, 1]. Defaults to DefaultSampleFraction.
	SampleFraction float64

	// MinSampleSize is the smallest usable sample. Sifted keys shorter than
	// this are disclosed in full. Defaults to DefaultMinSampleSize.
	MinSampleSize int

	// Seed makes a run reproducible. nil draws a fresh seed, which is reported
	// in the Result.
	Seed *int64

	// Confidence is the two-sided confidence level of the error rate interval
	// reported in Result.Analysis, in (0, 1). Defaults to DefaultConfidence.
	Confidence float64

	// PrivacyAmplification additionally compresses secure keys with a random
	// Toeplitz hash into Result.AmplifiedKey.
	PrivacyAmplification bool

	// EpsilonPrivacy specifies the statistical distance from uniform we are
	// willing to tolerate in the amplified key. Defaults to DefaultEpsilon.
	EpsilonPrivacy float64

	// Logger receives per-stage debug logs and the verdict. nil disables
	// logging.
	Logger *zerolog.Logger
}

// settings are Options with every default applied and every field validated.
type settings struct {
	qubits     int
	eavesdrop  bool
	threshold  float64
	sampleFrac float64
	minSample  int
	seed       *int64
	confidence float64
	amplify    bool
	epsPriv    float64
	log        zerolog.Logger
}

func (o Options) settings() (settings, error) {
	s := settings{
		qubits:     o.Qubits,
		eavesdrop:  o.Eavesdrop,
		threshold:  DefaultErrorThreshold,
		sampleFrac: o.SampleFraction,
		minSample:  o.MinSampleSize,
		seed:       o.Seed,
		confidence: o.Confidence,
		amplify:    o.PrivacyAmplification,
		epsPriv:    o.EpsilonPrivacy,
		log:        zerolog.Nop(),
	}
	if o.ErrorThreshold != nil {
		s.threshold = *o.ErrorThreshold
	}
	if s.sampleFrac == 0 {
		s.sampleFrac = DefaultSampleFraction
	}
	if s.minSample == 0 {
		s.minSample = DefaultMinSampleSize
	}
	if s.confidence == 0 {
		s.confidence = DefaultConfidence
	}
	if s.epsPriv == 0 {
		s.epsPriv = DefaultEpsilon
	}
	if o.Logger != nil {
		s.log = *o.Logger
	}

	if s.qubits <= 0 {
		return settings{}, &InvalidConfigurationError{"qubit_count", s.qubits, "must be positive"}
	}
	if !(s.threshold >= 0 && s.threshold <= 1) {
		return settings{}, &InvalidConfigurationError{"error_threshold", s.threshold, "must lie in [0, 1]"}
	}
	if !(s.sampleFrac > 0 && s.sampleFrac <= 1) {
		return settings{}, &InvalidConfigurationError{"sample_fraction", s.sampleFrac, "must lie in (0, 1]"}
	}
	if s.minSample < 0 {
		return settings{}, &InvalidConfigurationError{"min_sample_size", s.minSample, "must not be negative"}
	}
	if !(s.confidence > 0 && s.confidence < 1) {
		return settings{}, &InvalidConfigurationError{"confidence", s.confidence, "must lie in (0, 1)"}
	}
	if !(s.epsPriv > 0 && s.epsPriv < 1) {
		return settings{}, &InvalidConfigurationError{"epsilon_privacy", s.epsPriv, "must lie in (0, 1)"}
	}
	return s, nil
}

// Float64 returns a pointer to v, for filling in Options.ErrorThreshold.
func Float64(v float64) *float64 {
	return &v
}

// Int64 returns a pointer to v, for filling in Options.Seed.
func Int64(v int64) *int64 {
	return &v
}
