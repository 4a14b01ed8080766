// Package config resolves simulator settings from the environment, with an
// optional .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/alan-christopher/bb84sim/bb84"
)

// Config holds simulator configuration
type Config struct {
	Qubits         int
	Eavesdrop      bool
	Threshold      float64
	SampleFraction float64
	// Seed is nil when BB84_SEED is unset, requesting a fresh seed per run.
	Seed      *int64
	LogLevel  string
	LogPretty bool
}

// Load reads configuration from environment variables. A variable that is
// set but does not parse is an error rather than a silent default.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		Qubits:         getEnvAsInt("BB84_QUBITS", 100, &errs),
		Eavesdrop:      getEnvAsBool("BB84_EAVESDROP", false, &errs),
		Threshold:      getEnvAsFloat("BB84_THRESHOLD", bb84.DefaultErrorThreshold, &errs),
		SampleFraction: getEnvAsFloat("BB84_SAMPLE_FRACTION", bb84.DefaultSampleFraction, &errs),
		LogLevel:       getEnv("BB84_LOG_LEVEL", "info"),
		LogPretty:      getEnvAsBool("BB84_LOG_PRETTY", false, &errs),
	}
	if v := os.Getenv("BB84_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("BB84_SEED: %w", err))
		} else {
			cfg.Seed = &seed
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values a simulation would reject.
func (c *Config) Validate() error {
	if c.Qubits <= 0 {
		return fmt.Errorf("BB84_QUBITS must be positive, got %d", c.Qubits)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("BB84_THRESHOLD must be within [0, 1], got %v", c.Threshold)
	}
	if c.SampleFraction <= 0 || c.SampleFraction > 1 {
		return fmt.Errorf("BB84_SAMPLE_FRACTION must be within (0, 1], got %v", c.SampleFraction)
	}
	return nil
}

// Options converts c into simulation options.
func (c *Config) Options() bb84.Options {
	return bb84.Options{
		Qubits:         c.Qubits,
		Eavesdrop:      c.Eavesdrop,
		ErrorThreshold: bb84.Float64(c.Threshold),
		SampleFraction: c.SampleFraction,
		Seed:           c.Seed,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return intVal
}

func getEnvAsFloat(key string, defaultValue float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return f
}

func getEnvAsBool(key string, defaultValue bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return boolVal
}
