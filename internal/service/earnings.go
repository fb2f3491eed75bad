package service

import (
	"fmt"
	mrand "math/rand/v2"
	"sync"

	"delivery-bot/internal/config"
)

// Rand is the randomness source injected into the engine. Keeping it behind
// an interface makes settlement math deterministic under test.
type Rand interface {
	// IntN returns a uniform int in [0, n).
	IntN(n int) int
	// Int64N returns a uniform int64 in [0, n).
	Int64N(n int64) int64
}

// lockedRand guards a math/rand/v2 generator for concurrent use from
// per-user goroutines.
type lockedRand struct {
	mu sync.Mutex
	r  *mrand.Rand
}

// NewRand returns a concurrency-safe Rand seeded from the given state.
func NewRand(seed1, seed2 uint64) Rand {
	return &lockedRand{r: mrand.New(mrand.NewPCG(seed1, seed2))}
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRand) Int64N(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Int64N(n)
}

// EarningsPolicy generates the randomized base outcome of one delivery run:
// how many deliveries were completed and the total base earnings before the
// buff multiplier. The engine is agnostic to the policy in use.
type EarningsPolicy interface {
	Generate(r Rand) (deliveries int64, base int64)
}

// FlatEarnings pays a single delivery with a flat amount drawn from
// [Min, Max].
type FlatEarnings struct {
	Min, Max int64
}

// Generate implements EarningsPolicy.
func (p FlatEarnings) Generate(r Rand) (int64, int64) {
	return 1, p.Min + r.Int64N(p.Max-p.Min+1)
}

// MultiEarnings pays a randomized delivery count in [CountMin, CountMax],
// each worth a base amount drawn from [BaseMin, BaseMax].
type MultiEarnings struct {
	BaseMin, BaseMax   int64
	CountMin, CountMax int
}

// Generate implements EarningsPolicy.
func (p MultiEarnings) Generate(r Rand) (int64, int64) {
	count := int64(p.CountMin + r.IntN(p.CountMax-p.CountMin+1))
	base := p.BaseMin + r.Int64N(p.BaseMax-p.BaseMin+1)
	return count, base * count
}

// PolicyFromConfig builds the configured earnings policy and validates the
// experience and milestone ranges the delivery service draws from. A
// deployment runs exactly one policy; the mode is fixed at startup.
func PolicyFromConfig(cfg *config.DeliveryConfig) (EarningsPolicy, error) {
	if cfg.ExpMin < 0 || cfg.ExpMax < cfg.ExpMin {
		return nil, fmt.Errorf("invalid experience range [%d, %d]", cfg.ExpMin, cfg.ExpMax)
	}
	if cfg.MilestoneStep > 0 && cfg.MilestoneMax <= 0 {
		return nil, fmt.Errorf("invalid milestone bonus max %d", cfg.MilestoneMax)
	}

	switch cfg.EarningsMode {
	case "flat":
		if cfg.FlatMin <= 0 || cfg.FlatMax < cfg.FlatMin {
			return nil, fmt.Errorf("invalid flat earnings range [%d, %d]", cfg.FlatMin, cfg.FlatMax)
		}
		return FlatEarnings{Min: cfg.FlatMin, Max: cfg.FlatMax}, nil
	case "multi":
		if cfg.BaseMin <= 0 || cfg.BaseMax < cfg.BaseMin {
			return nil, fmt.Errorf("invalid base earnings range [%d, %d]", cfg.BaseMin, cfg.BaseMax)
		}
		if cfg.CountMin <= 0 || cfg.CountMax < cfg.CountMin {
			return nil, fmt.Errorf("invalid delivery count range [%d, %d]", cfg.CountMin, cfg.CountMax)
		}
		return MultiEarnings{
			BaseMin:  cfg.BaseMin,
			BaseMax:  cfg.BaseMax,
			CountMin: cfg.CountMin,
			CountMax: cfg.CountMax,
		}, nil
	default:
		return nil, fmt.Errorf("unknown earnings mode %q", cfg.EarningsMode)
	}
}
