package regeneration

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// RandomizationRange bounds the multiplicative factor applied to the base
// target word count on each attempt.
type RandomizationRange struct {
	MinFactor float64 `json:"min_factor" yaml:"min_factor"`
	MaxFactor float64 `json:"max_factor" yaml:"max_factor"`
}

// Validate requires 0 < MinFactor <= MaxFactor.
func (r RandomizationRange) Validate() error {
	if r.MinFactor <= 0 {
		return fmt.Errorf("%w: min_factor must be positive, got %v", ErrInvalidConfig, r.MinFactor)
	}
	if r.MaxFactor < r.MinFactor {
		return fmt.Errorf("%w: max_factor %v is below min_factor %v", ErrInvalidConfig, r.MaxFactor, r.MinFactor)
	}
	return nil
}

// LengthSampler draws per-attempt target word counts from a seeded PRNG, so a
// fixed seed yields a fixed sequence. Not safe for concurrent use.
type LengthSampler struct {
	base  int
	rng   RandomizationRange
	draws *rand.Rand
}

// pcgIncrement is the second PCG state word derived from the seed.
const pcgIncrement = 0x9e3779b97f4a7c15

// NewLengthSampler creates a sampler around base words.
func NewLengthSampler(base int, r RandomizationRange, seed uint64) (*LengthSampler, error) {
	if base <= 0 {
		return nil, fmt.Errorf("%w: base target words must be positive, got %d", ErrInvalidConfig, base)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &LengthSampler{
		base:  base,
		rng:   r,
		draws: rand.New(rand.NewPCG(seed, seed^pcgIncrement)),
	}, nil
}

// Next returns round(base * factor) with factor uniform in [MinFactor, MaxFactor].
// The result is at least 1.
func (s *LengthSampler) Next() int {
	factor := s.rng.MinFactor + s.draws.Float64()*(s.rng.MaxFactor-s.rng.MinFactor)
	n := int(math.Round(float64(s.base) * factor))
	if n < 1 {
		n = 1
	}
	return n
}

// SeedFromSubject derives a stable seed from a subject name.
func SeedFromSubject(subject string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(subject))
	return h.Sum64()
}
