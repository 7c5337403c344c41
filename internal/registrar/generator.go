package registrar

import (
	"math/rand/v2"
	"sync"
)

// MockThreshold is the draw a mock domain has to beat to be reported
// available, so roughly 40% of mock domains come back free.
const MockThreshold = 0.6

// Generator decides availability for domains when no registrar credentials
// are configured.
type Generator interface {
	Available(domain string) bool
}

// RandomGenerator draws from a seeded PCG source. The same seed always yields
// the same sequence of answers. It is safe for concurrent use.
type RandomGenerator struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomGenerator creates a generator seeded with seed.
func NewRandomGenerator(seed uint64) *RandomGenerator {
	return &RandomGenerator{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Available ignores the domain and reports the next draw against MockThreshold.
func (g *RandomGenerator) Available(string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.Float64() > MockThreshold
}
