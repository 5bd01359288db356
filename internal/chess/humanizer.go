package chess

import (
	"math/rand"
	"sync"
	"time"
)

// DeviationThreshold is the probability that a bot of the given rating ignores
// the engine and plays a uniformly random legal move.
func DeviationThreshold(rating int) float64 {
	switch {
	case rating <= 500:
		return 0.60
	case rating <= 1000:
		return 0.35
	case rating <= 1500:
		return 0.15
	}
	return 0
}

// lockedRand is a *rand.Rand safe for concurrent use.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
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

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// fork returns an independent generator seeded from l, for callees that want
// their own *rand.Rand.
func (l *lockedRand) fork() *rand.Rand {
	l.mu.Lock()
	defer l.mu.Unlock()
	return rand.New(rand.NewSource(l.r.Int63()))
}

func (l *lockedRand) pick(moves []string) string {
	return moves[l.Intn(len(moves))]
}
