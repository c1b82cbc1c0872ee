package phrases

import (
	"math/rand"
	"strings"
	"time"
)

// Sampler draws trial phrases from a pool.
type Sampler struct {
	rnd *rand.Rand
}

// NewSampler returns a Sampler seeded with the current time.
func NewSampler() *Sampler {
	return NewSeededSampler(time.Now().UnixNano())
}

// NewSeededSampler returns a deterministic Sampler.
func NewSeededSampler(seed int64) *Sampler {
	return &Sampler{rnd: rand.New(rand.NewSource(seed))}
}

// Sample picks count phrases uniformly with replacement and lower-cases
// them.
func (s *Sampler) Sample(pool []string, count int) []string {
	if len(pool) == 0 || count <= 0 {
		return nil
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, strings.ToLower(pool[s.rnd.Intn(len(pool))]))
	}
	return out
}
