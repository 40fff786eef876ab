// Package dataset supplies (image batch, vote-count batch) pairs to
// the trainer. The trainer only depends on the Source contract; how
// examples got into memory (catalog files, mock generation) is not its
// concern.
package dataset

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Batch is one unit of work for a training step. Inputs and Votes are
// flat row-major slices of Size examples; each pair is internally
// consistent but batches carry no ordering guarantee.
type Batch struct {
	Inputs []float64
	Votes  []float64
	Size   int
}

// Iterator yields the batches of one epoch.
type Iterator interface {
	Next() (Batch, bool)
}

// Source produces a fresh Iterator per epoch.
type Source interface {
	Epoch() Iterator
	Len() int
}

// InMemory holds all examples in memory, batching with an optional
// reshuffle per epoch. The last batch is ragged when the example count
// does not divide evenly; the trainer's reduction accounts for that.
type InMemory struct {
	inputs    [][]float64
	votes     [][]float64
	batchSize int
	shuffle   bool
	rng       *rand.Rand
}

// NewInMemory wraps per-example input and vote slices. All inputs must
// share one length, likewise all votes.
func NewInMemory(inputs, votes [][]float64, batchSize int, shuffle bool, seed int64) (*InMemory, error) {
	if len(inputs) == 0 {
		return nil, errors.New("dataset: no examples")
	}
	if len(inputs) != len(votes) {
		return nil, errors.Errorf("dataset: %d inputs but %d vote vectors", len(inputs), len(votes))
	}
	if batchSize <= 0 {
		return nil, errors.Errorf("dataset: batch size must be positive, got %d", batchSize)
	}
	for i := 1; i < len(inputs); i++ {
		if len(inputs[i]) != len(inputs[0]) {
			return nil, errors.Errorf("dataset: input %d has length %d, want %d", i, len(inputs[i]), len(inputs[0]))
		}
		if len(votes[i]) != len(votes[0]) {
			return nil, errors.Errorf("dataset: votes %d has length %d, want %d", i, len(votes[i]), len(votes[0]))
		}
	}
	return &InMemory{
		inputs:    inputs,
		votes:     votes,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// Len returns the number of examples.
func (d *InMemory) Len() int { return len(d.inputs) }

// InputLen returns the per-example input length.
func (d *InMemory) InputLen() int { return len(d.inputs[0]) }

// VoteLen returns the per-example vote vector length.
func (d *InMemory) VoteLen() int { return len(d.votes[0]) }

// Epoch returns an iterator over the whole dataset, reshuffled when
// shuffling is enabled.
func (d *InMemory) Epoch() Iterator {
	order := make([]int, len(d.inputs))
	for i := range order {
		order[i] = i
	}
	if d.shuffle {
		d.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return &inMemoryIterator{dataset: d, order: order}
}

type inMemoryIterator struct {
	dataset *InMemory
	order   []int
	cursor  int
}

func (it *inMemoryIterator) Next() (Batch, bool) {
	d := it.dataset
	if it.cursor >= len(it.order) {
		return Batch{}, false
	}
	end := it.cursor + d.batchSize
	if end > len(it.order) {
		end = len(it.order)
	}

	size := end - it.cursor
	inputs := make([]float64, 0, size*d.InputLen())
	votes := make([]float64, 0, size*d.VoteLen())
	for _, idx := range it.order[it.cursor:end] {
		inputs = append(inputs, d.inputs[idx]...)
		votes = append(votes, d.votes[idx]...)
	}
	it.cursor = end
	return Batch{Inputs: inputs, Votes: votes, Size: size}, true
}
