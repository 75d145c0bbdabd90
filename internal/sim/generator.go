package sim

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Generator submits a task with a random cost every Interval.
type Generator struct {
	Interval time.Duration
	MinCost  time.Duration
	MaxCost  time.Duration
	// Seed for the cost sequence; zero picks a random seed.
	Seed uint64
}

// Run generates tasks into c until ctx ends and returns how many were
// submitted.
func (g Generator) Run(ctx context.Context, c *Cluster) int {
	interval := g.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	seed := g.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	generated := 0
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("task generation stopped", zap.Int("generated", generated))
			return generated
		case <-ticker.C:
			t := c.NewTask(g.cost(rng))
			id, err := c.Submit(t)
			if err != nil {
				c.logger.Warn("generated task rejected", zap.Uint64("task", t.ID()), zap.Error(err))
				continue
			}
			generated++
			c.logger.Debug("generated task",
				zap.Uint64("task", t.ID()),
				zap.Duration("cost", t.Cost()),
				zap.Int("node", id))
		}
	}
}

// cost draws uniformly from [MinCost, MaxCost].
func (g Generator) cost(rng *rand.Rand) time.Duration {
	lo, hi := g.MinCost, g.MaxCost
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return lo
	}
	return lo + time.Duration(rng.Int64N(int64(hi-lo)+1))
}
