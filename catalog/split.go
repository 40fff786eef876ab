package catalog

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Split divides a catalog into 70% train, 10% validation and 20% test
// after a seeded shuffle, so the same seed reproduces the same split
// across runs and machines.
func Split(c *Catalog, seed int64) (train, val, test *Catalog, err error) {
	n := c.Len()
	if n < 10 {
		return nil, nil, nil, errors.Errorf("catalog: %d galaxies is too few to split", n)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

	trainEnd := (n * 7) / 10
	valEnd := trainEnd + n/10

	pick := func(indices []int) *Catalog {
		galaxies := make([]Galaxy, len(indices))
		for i, idx := range indices {
			galaxies[i] = c.Galaxies[idx]
		}
		return &Catalog{Schema: c.Schema, Galaxies: galaxies}
	}

	return pick(order[:trainEnd]), pick(order[trainEnd:valEnd]), pick(order[valEnd:]), nil
}
