package mockapi

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the random source behind delivery outcomes and jittered delays.
type Rand interface {
	Float64() float64
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a goroutine-safe source; seed 0 seeds from the clock.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// FixedRand always returns the same value. 0 delivers and reads every message
// at the minimum delay; 0.99 leaves every message unresolved.
type FixedRand float64

func (f FixedRand) Float64() float64 { return float64(f) }
