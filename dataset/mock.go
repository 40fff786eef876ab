package dataset

import (
	"math/rand"

	"github.com/natalines/zoobot/schema"
)

// MockConfig controls synthetic example generation.
type MockConfig struct {
	Examples  int
	ImageSize int
	Channels  int
	BatchSize int
	MaxVotes  int // per-question upper bound on voter count
	Seed      int64
}

// Mock builds a synthetic dataset of random images with
// schema-consistent vote counts: every question gets an independent
// voter count in [0, MaxVotes], zero included, spread over its answers.
// Mirrors the mock shard generator used for pipeline shakedown runs.
func Mock(s *schema.Schema, cfg MockConfig) (*InMemory, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.MaxVotes <= 0 {
		cfg.MaxVotes = 40
	}

	inputs := make([][]float64, cfg.Examples)
	votes := make([][]float64, cfg.Examples)

	for i := 0; i < cfg.Examples; i++ {
		image := make([]float64, cfg.Channels*cfg.ImageSize*cfg.ImageSize)
		for p := range image {
			image[p] = rng.Float64()
		}
		inputs[i] = image

		v := make([]float64, s.Width())
		for q := 0; q < s.NumQuestions(); q++ {
			r := s.Range(q)
			voters := rng.Intn(cfg.MaxVotes + 1)
			for voter := 0; voter < voters; voter++ {
				answer := r.Start + rng.Intn(r.Len())
				v[answer]++
			}
		}
		votes[i] = v
	}

	return NewInMemory(inputs, votes, cfg.BatchSize, true, cfg.Seed)
}
