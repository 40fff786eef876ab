// Package train drives the optimization of a concentration backbone
// against the Dirichlet-multinomial loss: per-step orchestration,
// per-phase metric accumulation, the data-parallel replica group with
// its global-mean reduction, and the epoch loop with early stopping.
package train

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/natalines/zoobot/dataset"
	"github.com/natalines/zoobot/dirichlet"
	"github.com/natalines/zoobot/metrics"
	"github.com/natalines/zoobot/nn"
)

// Phase labels the metric names of a controller, so dashboards can
// overlay train/validation/test series.
type Phase string

const (
	PhaseTrain      Phase = "train"
	PhaseValidation Phase = "validation"
	PhaseTest       Phase = "test"
)

// StepResult is what one step contributes to the optimization.
type StepResult struct {
	// Loss is sum-over-questions, mean-over-examples for this step's
	// examples.
	Loss float64
	// LossSum and N are the unreduced ingredients, kept so uneven
	// shards can be combined into a true global mean.
	LossSum float64
	N       int
}

// stepOutput is the raw outcome of the pure compute phase, before any
// logging. Per-replica outputs are merged with mergeOutputs.
type stepOutput struct {
	lossSum         float64   // Σ over examples of the per-example question-summed loss
	n               int       // examples in this shard
	perQuestionSums []float64 // Σ over examples, one per question
	correct         int       // binary-accuracy hits (0 unless schema is binary)
	labelled        int       // examples with at least one vote, binary schema only
}

// computeStep runs the linear step pipeline on one network and one
// batch shard: forward pass, loss matrix, optional backward pass. The
// only transition that can fail is loss computation; on error the step
// is abandoned and the error propagates to the caller.
//
// When withGrad is set the network is left holding gradient sums over
// the shard's examples, unnormalized; the caller divides by the global
// example count.
func computeStep(net *nn.Network, engine *dirichlet.Engine, batch dataset.Batch, withGrad bool) (stepOutput, error) {
	s := engine.Schema()
	out := stepOutput{n: batch.Size, perQuestionSums: make([]float64, s.NumQuestions())}

	// Forward.
	concentrations, err := net.Forward(batch.Inputs, batch.Size)
	if err != nil {
		return stepOutput{}, errors.Wrap(err, "forward pass")
	}

	// Forward -> LossComputed.
	var lossMatrix, grad []float64
	if withGrad {
		lossMatrix, grad, err = engine.LossAndGradient(concentrations, batch.Votes, batch.Size)
	} else {
		lossMatrix, err = engine.PerQuestionLoss(concentrations, batch.Votes, batch.Size)
	}
	if err != nil {
		return stepOutput{}, err
	}

	// LossComputed -> Reduced: sum over the question axis (question
	// log-likelihoods are additive under the independence assumption),
	// keep the example sums for the global-mean reduction.
	nq := s.NumQuestions()
	for i := 0; i < batch.Size; i++ {
		rowSum := 0.0
		for q := 0; q < nq; q++ {
			v := lossMatrix[i*nq+q]
			out.perQuestionSums[q] += v
			rowSum += v
		}
		out.lossSum += rowSum
	}

	if s.IsBinary() {
		out.correct, out.labelled = binaryAccuracy(concentrations, batch.Votes, batch.Size)
	}

	if withGrad {
		if err := net.Backward(grad, batch.Size); err != nil {
			return stepOutput{}, errors.Wrap(err, "backward pass")
		}
	}
	return out, nil
}

// binaryAccuracy compares the argmax of predicted shares against the
// argmax of vote shares. Only examples with at least one vote count.
func binaryAccuracy(concentrations, votes []float64, batchSize int) (correct, labelled int) {
	for i := 0; i < batchSize; i++ {
		k0, k1 := votes[i*2], votes[i*2+1]
		if k0+k1 == 0 {
			continue
		}
		labelled++
		predictedSmooth := concentrations[i*2] >= concentrations[i*2+1]
		votedSmooth := k0 >= k1
		if predictedSmooth == votedSmooth {
			correct++
		}
	}
	return correct, labelled
}

// Controller owns one phase's step orchestration and epoch
// accumulators. It is not safe for concurrent use; the replica group
// funnels merged outputs through it from a single goroutine.
type Controller struct {
	phase     Phase
	net       *nn.Network
	engine    *dirichlet.Engine
	sink      metrics.Sink
	logOnStep bool

	acc       *epochAccumulator
	stepCount int
}

// NewController builds the controller for one phase. The same logic
// serves every phase; only the label and whether gradients flow
// differ.
func NewController(phase Phase, net *nn.Network, engine *dirichlet.Engine, sink metrics.Sink, logOnStep bool) *Controller {
	return &Controller{
		phase:     phase,
		net:       net,
		engine:    engine,
		sink:      sink,
		logOnStep: logOnStep,
		acc:       newEpochAccumulator(engine.Schema().NumQuestions()),
	}
}

// RunStep executes one step on the controller's own network and
// records its metrics. With withGrad set, the network is left holding
// the mean gradient over this batch, ready for the Driver.
func (c *Controller) RunStep(batch dataset.Batch, withGrad bool) (StepResult, error) {
	out, err := computeStep(c.net, c.engine, batch, withGrad)
	if err != nil {
		return StepResult{}, err
	}
	if withGrad && out.n > 0 {
		c.net.ScaleGradients(1.0 / float64(out.n))
	}
	return c.record(out), nil
}

// record folds a (possibly merged) step output into the epoch
// accumulators: the Reduced -> Logged transition.
func (c *Controller) record(out stepOutput) StepResult {
	c.acc.loss.add(out.lossSum, out.n)
	for q, sum := range out.perQuestionSums {
		c.acc.questions[q].add(sum, out.n)
	}
	if out.labelled > 0 {
		c.acc.accuracy.add(float64(out.correct), out.labelled)
	}

	scalar := 0.0
	if out.n > 0 {
		scalar = out.lossSum / float64(out.n)
	}
	if c.logOnStep {
		c.sink.Log(fmt.Sprintf("%s/step_loss", c.phase), scalar, c.stepCount)
	}
	c.stepCount++

	return StepResult{Loss: scalar, LossSum: out.lossSum, N: out.n}
}

// LogEpoch reports the epoch means to the sink, keyed by question for
// per-question diagnosability, then resets the accumulators for the
// next epoch. It returns the epoch's mean loss.
func (c *Controller) LogEpoch(epoch int) float64 {
	epochLoss := c.acc.loss.mean()
	c.sink.Log(fmt.Sprintf("%s/epoch_loss", c.phase), epochLoss, epoch)
	for q := range c.acc.questions {
		c.sink.Log(
			fmt.Sprintf("%s/epoch_questions/question_%d_loss", c.phase, q),
			c.acc.questions[q].mean(), epoch)
	}
	if c.engine.Schema().IsBinary() && c.acc.accuracy.n > 0 {
		c.sink.Log(fmt.Sprintf("%s/accuracy", c.phase), c.acc.accuracy.mean(), epoch)
	}
	c.acc.reset()
	return epochLoss
}
