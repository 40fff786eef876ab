package train

import "github.com/pkg/errors"

// GlobalMean combines per-replica loss sums and example counts into
// the mean over all examples across all replicas. This is the
// distributed-reduction contract: with uneven shard sizes (the ragged
// last batch), averaging per-replica means would weight small shards
// too heavily and silently scale the effective learning rate, so the
// sums and counts are reduced separately.
func GlobalMean(sums []float64, counts []int) (float64, error) {
	if len(sums) != len(counts) {
		return 0, errors.Errorf("train: %d loss sums but %d counts", len(sums), len(counts))
	}
	total := 0.0
	n := 0
	for i, sum := range sums {
		if counts[i] < 0 {
			return 0, errors.Errorf("train: replica %d has negative example count %d", i, counts[i])
		}
		total += sum
		n += counts[i]
	}
	if n == 0 {
		return 0, errors.New("train: no examples across replicas")
	}
	return total / float64(n), nil
}
