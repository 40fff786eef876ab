package train

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natalines/zoobot/dataset"
	"github.com/natalines/zoobot/dirichlet"
	"github.com/natalines/zoobot/metrics"
	"github.com/natalines/zoobot/nn"
	"github.com/natalines/zoobot/schema"
)

// smoothSource builds a dataset whose galaxies are all voted smooth,
// so the loss has an easy direction to descend.
func smoothSource(t *testing.T, s *schema.Schema, n, batchSize int, seed int64) *dataset.InMemory {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	inputs := make([][]float64, n)
	votes := make([][]float64, n)
	for i := range inputs {
		inputs[i] = []float64{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}
		votes[i] = []float64{10, 0}
	}
	src, err := dataset.NewInMemory(inputs, votes, batchSize, false, seed)
	require.NoError(t, err)
	return src
}

func newTestTrainer(t *testing.T, s *schema.Schema, sink metrics.Sink, lr float64, cfg TrainerConfig) (*Trainer, *nn.Network) {
	t.Helper()
	net := linearNet(t, s, 7)
	trainer, err := NewTrainer(net, dirichlet.NewEngine(s), nn.NewAdamOptimizerDefault(),
		nn.NewConstantScheduler(lr), sink, nil, cfg)
	require.NoError(t, err)
	return trainer, net
}

func TestFitDecreasesLoss(t *testing.T) {
	s := schema.SmoothOrFeatured()
	history := metrics.NewHistory()
	trainer, _ := newTestTrainer(t, s, history, 0.01, TrainerConfig{Epochs: 5})

	train := smoothSource(t, s, 16, 4, 1)
	val := smoothSource(t, s, 8, 4, 2)

	result, err := trainer.Fit(train, val)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Epochs)
	assert.False(t, result.StoppedEarly)
	assert.False(t, math.IsInf(result.BestValLoss, 1))

	series := history.Series("train/epoch_loss")
	require.Len(t, series, 5)
	assert.Less(t, series[4].Value, series[0].Value,
		"training on a consistent signal must reduce the loss")

	valSeries := history.Series("validation/epoch_loss")
	require.Len(t, valSeries, 5)
	assert.InDelta(t, result.BestValLoss, valSeries[result.BestEpoch].Value, 1e-12)
}

func TestFitStopsEarlyWithoutImprovement(t *testing.T) {
	s := schema.SmoothOrFeatured()
	// Zero learning rate freezes the weights, so validation loss
	// never improves after the first epoch.
	trainer, _ := newTestTrainer(t, s, metrics.NewHistory(), 0.0, TrainerConfig{
		Epochs:   50,
		Patience: 1,
	})

	train := smoothSource(t, s, 8, 4, 1)
	val := smoothSource(t, s, 8, 4, 2)

	result, err := trainer.Fit(train, val)
	require.NoError(t, err)
	assert.True(t, result.StoppedEarly)
	assert.Equal(t, 2, result.Epochs)
	assert.Equal(t, 0, result.BestEpoch)
}

func TestFitSavesBestCheckpoint(t *testing.T) {
	s := schema.SmoothOrFeatured()
	path := filepath.Join(t.TempDir(), "best.json")
	trainer, net := newTestTrainer(t, s, metrics.NewHistory(), 0.01, TrainerConfig{
		Epochs:         3,
		CheckpointPath: path,
	})

	train := smoothSource(t, s, 8, 4, 1)
	val := smoothSource(t, s, 8, 4, 2)
	_, err := trainer.Fit(train, val)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	restored, err := nn.Load(path)
	require.NoError(t, err)
	assert.Equal(t, net.InputSize, restored.InputSize)
	assert.Equal(t, net.OutputSize, restored.OutputSize)

	out, err := restored.Forward([]float64{0.1, 0.2, 0.3, 0.4}, 1)
	require.NoError(t, err)
	for _, v := range out {
		assert.Greater(t, v, 1.0)
	}
}

func TestEvaluateLogsTestPhase(t *testing.T) {
	s := schema.SmoothOrFeatured()
	history := metrics.NewHistory()
	trainer, _ := newTestTrainer(t, s, history, 0.01, TrainerConfig{Epochs: 2})

	train := smoothSource(t, s, 8, 4, 1)
	val := smoothSource(t, s, 8, 4, 2)
	_, err := trainer.Fit(train, val)
	require.NoError(t, err)

	test := smoothSource(t, s, 8, 4, 3)
	loss, err := trainer.Evaluate(test)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss))
	assert.False(t, math.IsInf(loss, 0))

	series := history.Series("test/epoch_loss")
	require.Len(t, series, 1)
	assert.InDelta(t, loss, series[0].Value, 1e-12)
	assert.Len(t, history.Series("test/accuracy"), 1)
}

func TestFitWithReplicasDecreasesLoss(t *testing.T) {
	s := schema.SmoothOrFeatured()
	history := metrics.NewHistory()
	trainer, _ := newTestTrainer(t, s, history, 0.01, TrainerConfig{
		Epochs:   4,
		Replicas: 2,
	})

	// Batch of 5 over 2 replicas: every step exercises uneven shards.
	train := smoothSource(t, s, 15, 5, 1)
	val := smoothSource(t, s, 6, 3, 2)

	result, err := trainer.Fit(train, val)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Epochs)

	series := history.Series("train/epoch_loss")
	require.Len(t, series, 4)
	assert.Less(t, series[3].Value, series[0].Value)
}

func TestNewTrainerRejectsBadConfig(t *testing.T) {
	s := schema.SmoothOrFeatured()
	net := linearNet(t, s, 7)
	_, err := NewTrainer(net, dirichlet.NewEngine(s), nn.NewSGDOptimizer(),
		nn.NewConstantScheduler(0.01), metrics.NopSink{}, nil, TrainerConfig{Epochs: 0})
	assert.Error(t, err)
}
