package monitor

import (
	"math/rand/v2"
	"sync"
)

// Sampler draws uniform samples from [0,1).
type Sampler interface {
	Float64() float64
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func() float64

func (f SamplerFunc) Float64() float64 { return f() }

// NewRandSampler uses the process wide random source.
func NewRandSampler() Sampler {
	return SamplerFunc(rand.Float64)
}

// lockedRand is a seeded source shared between sessions.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededSampler returns a reproducible Sampler.
func NewSeededSampler(seed uint64) Sampler {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}
