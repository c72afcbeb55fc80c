package suggest

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/pilgrimlyieu/Focust-sub001/internal/core/model"
)

// ErrEmptyPool indicates no activity is configured for the requested kind.
var ErrEmptyPool = errors.New("suggestion pool is empty")

// Suggestion is an advisory break activity. It has no effect on timing.
type Suggestion struct {
	Activity string
	Kind     model.BreakKind
}

// Provider returns a break activity suggestion for the given kind.
// A nil suggestion with a nil error means the provider has nothing to offer.
type Provider interface {
	Suggest(kind model.BreakKind) (*Suggestion, error)
}

// PoolProvider picks activities from fixed per-kind pools, avoiding the most
// recently suggested ones to reduce repetition.
type PoolProvider struct {
	mu     sync.Mutex
	pools  map[model.BreakKind][]string
	recent map[model.BreakKind][]string
	avoid  int
	pick   func(n int) int
}

// NewPoolProvider creates a provider over the given activity pools. Up to
// avoid recently suggested activities per kind are excluded from selection
// when the pool is large enough to allow it.
func NewPoolProvider(pools map[model.BreakKind][]string, avoid int) *PoolProvider {
	if avoid < 0 {
		avoid = 0
	}
	copied := make(map[model.BreakKind][]string, len(pools))
	for kind, activities := range pools {
		copied[kind] = append([]string(nil), activities...)
	}
	return &PoolProvider{
		pools:  copied,
		recent: make(map[model.BreakKind][]string),
		avoid:  avoid,
		pick:   rand.Intn,
	}
}

// DefaultPools returns the built-in activity pools.
func DefaultPools() map[model.BreakKind][]string {
	return map[model.BreakKind][]string{
		model.BreakShort: {
			"Look at something 20 meters away",
			"Roll your shoulders",
			"Stretch your wrists",
			"Close your eyes and breathe slowly",
			"Refill your water",
		},
		model.BreakLong: {
			"Take a short walk",
			"Step outside for fresh air",
			"Make a cup of tea",
			"Do a few squats",
			"Tidy your desk",
		},
	}
}

// Suggest returns an activity for the given break kind.
func (provider *PoolProvider) Suggest(kind model.BreakKind) (*Suggestion, error) {
	provider.mu.Lock()
	defer provider.mu.Unlock()

	pool := provider.pools[kind]
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	candidates := provider.candidatesLocked(kind, pool)
	activity := candidates[provider.pick(len(candidates))]
	provider.rememberLocked(kind, activity)

	return &Suggestion{Activity: activity, Kind: kind}, nil
}

func (provider *PoolProvider) candidatesLocked(kind model.BreakKind, pool []string) []string {
	recent := provider.recent[kind]
	if len(recent) == 0 || len(pool) <= len(recent) {
		return pool
	}

	candidates := make([]string, 0, len(pool))
	for _, activity := range pool {
		if !contains(recent, activity) {
			candidates = append(candidates, activity)
		}
	}
	if len(candidates) == 0 {
		return pool
	}
	return candidates
}

func (provider *PoolProvider) rememberLocked(kind model.BreakKind, activity string) {
	if provider.avoid == 0 {
		return
	}
	recent := append(provider.recent[kind], activity)
	if len(recent) > provider.avoid {
		recent = recent[len(recent)-provider.avoid:]
	}
	provider.recent[kind] = recent
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
