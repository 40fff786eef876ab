package train

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/natalines/zoobot/dataset"
	"github.com/natalines/zoobot/dirichlet"
	"github.com/natalines/zoobot/nn"
)

// ReplicaGroup executes the training step data-parallel: each replica
// owns a weight copy and processes a disjoint shard of the batch in
// its own goroutine, then all block on one reduction barrier. The
// reduced gradient is the gradient of the global-mean loss, identical
// (up to float association) to a single-replica full-batch step even
// when shards are uneven.
type ReplicaGroup struct {
	primary  *nn.Network
	replicas []*nn.Network
	engine   *dirichlet.Engine
}

// NewReplicaGroup clones the primary network into count replicas.
func NewReplicaGroup(primary *nn.Network, engine *dirichlet.Engine, count int) (*ReplicaGroup, error) {
	if count < 2 {
		return nil, errors.Errorf("train: replica group needs at least 2 replicas, got %d", count)
	}
	replicas := make([]*nn.Network, count)
	for i := range replicas {
		replicas[i] = primary.Clone()
	}
	return &ReplicaGroup{primary: primary, replicas: replicas, engine: engine}, nil
}

// Step shards the batch, runs every replica to completion, reduces,
// and leaves the primary network holding the global-mean gradient. The
// merged step output is returned for the caller to record. Any
// replica's failure fails the whole step.
func (g *ReplicaGroup) Step(batch dataset.Batch) (stepOutput, error) {
	shards := shardBatch(batch, len(g.replicas), g.primary.InputSize, g.engine.Schema().Width())

	outputs := make([]stepOutput, len(shards))
	errs := make([]error, len(shards))

	// Each worker runs synchronously to completion; the WaitGroup is
	// the single cross-worker barrier.
	var wg sync.WaitGroup
	for i := range shards {
		if shards[i].Size == 0 {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outputs[i], errs[i] = computeStep(g.replicas[i], g.engine, shards[i], true)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return stepOutput{}, errors.Wrapf(err, "replica %d", i)
		}
	}

	// Reduce: sum gradients and loss sums across replicas, normalize
	// once by the global example count.
	merged := mergeOutputs(outputs)
	if merged.n == 0 {
		return stepOutput{}, errors.New("train: empty batch across all replicas")
	}

	g.primary.ZeroGradients()
	for i := range g.replicas {
		if outputs[i].n == 0 {
			continue
		}
		if err := g.primary.AccumulateGradientsFrom(g.replicas[i]); err != nil {
			return stepOutput{}, err
		}
	}
	g.primary.ScaleGradients(1.0 / float64(merged.n))
	return merged, nil
}

// Broadcast copies the primary's weights back to every replica; called
// after each optimizer step.
func (g *ReplicaGroup) Broadcast() error {
	for i := range g.replicas {
		if err := g.replicas[i].CopyWeightsFrom(g.primary); err != nil {
			return err
		}
	}
	return nil
}

// shardBatch splits a batch into count contiguous shards. The first
// (size mod count) shards get one extra example, so shards may be
// uneven; the reduction handles that.
func shardBatch(batch dataset.Batch, count, inputLen, voteLen int) []dataset.Batch {
	shards := make([]dataset.Batch, count)
	base := batch.Size / count
	extra := batch.Size % count

	offset := 0
	for i := 0; i < count; i++ {
		size := base
		if i < extra {
			size++
		}
		shards[i] = dataset.Batch{
			Inputs: batch.Inputs[offset*inputLen : (offset+size)*inputLen],
			Votes:  batch.Votes[offset*voteLen : (offset+size)*voteLen],
			Size:   size,
		}
		offset += size
	}
	return shards
}

// mergeOutputs combines per-replica outputs by summation; means are
// taken only after merging.
func mergeOutputs(outputs []stepOutput) stepOutput {
	var merged stepOutput
	for _, out := range outputs {
		if out.n == 0 {
			continue
		}
		if merged.perQuestionSums == nil {
			merged.perQuestionSums = make([]float64, len(out.perQuestionSums))
		}
		merged.lossSum += out.lossSum
		merged.n += out.n
		for q, sum := range out.perQuestionSums {
			merged.perQuestionSums[q] += sum
		}
		merged.correct += out.correct
		merged.labelled += out.labelled
	}
	return merged
}
