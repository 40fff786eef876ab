package dirichlet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/natalines/zoobot/schema"
)

func twoAnswerSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.NewFromRanges([]string{"q0"}, []schema.Range{{Start: 0, End: 2}})
	require.NoError(t, err)
	return s
}

func twoQuestionSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.NewFromRanges(
		[]string{"q0", "q1"},
		[]schema.Range{{Start: 0, End: 2}, {Start: 2, End: 5}},
	)
	require.NoError(t, err)
	return s
}

func TestZeroVotesGiveExactlyZeroLoss(t *testing.T) {
	e := NewEngine(twoAnswerSchema(t))

	// Loss must be exactly 0 regardless of the concentrations: the
	// likelihood of observing no votes is 1 under any prior.
	for _, conc := range [][]float64{
		{1, 1},
		{0.01, 50},
		{1000, 1000},
	} {
		loss, err := e.PerQuestionLoss(conc, []float64{0, 0}, 1)
		require.NoError(t, err)
		assert.Equal(t, 0.0, loss[0], "concentrations %v", conc)
	}
}

func TestUniformPriorMatchesClosedForm(t *testing.T) {
	e := NewEngine(twoAnswerSchema(t))

	loss, err := e.PerQuestionLoss([]float64{1, 1}, []float64{8, 2}, 1)
	require.NoError(t, err)

	// Independent evaluation of the Dirichlet-multinomial pmf for
	// n=10 trials, k=[8,2], alpha=[1,1] via log-gamma.
	lg := func(x float64) float64 {
		v, _ := math.Lgamma(x)
		return v
	}
	logPMF := lg(11) - lg(9) - lg(3) + // multinomial coefficient
		lg(2) - lg(12) + // beta normalizer: lgΓ(Σα) - lgΓ(n+Σα)
		lg(9) + lg(3) - lg(1) - lg(1) // per-answer lgΓ(k+α) - lgΓ(α)
	assert.InDelta(t, -logPMF, loss[0], 1e-5)

	// Uniform alpha=[1,1] integrates to P(k)=1/(n+1); sanity check
	// the independent evaluation itself.
	assert.InDelta(t, math.Log(11), -logPMF, 1e-10)
}

func TestSwappingLabelSlicesChangesLoss(t *testing.T) {
	s, err := schema.NewFromRanges(
		[]string{"q0", "q1"},
		[]schema.Range{{Start: 0, End: 2}, {Start: 2, End: 4}},
	)
	require.NoError(t, err)
	e := NewEngine(s)

	conc := []float64{5, 1, 1, 5}
	votes := []float64{9, 1, 2, 8}
	swapped := []float64{2, 8, 9, 1} // q0 and q1 vote slices exchanged

	orig, err := e.PerQuestionLoss(conc, votes, 1)
	require.NoError(t, err)
	swap, err := e.PerQuestionLoss(conc, swapped, 1)
	require.NoError(t, err)

	sum := orig[0] + orig[1]
	swapSum := swap[0] + swap[1]
	assert.Greater(t, math.Abs(sum-swapSum), 1e-6,
		"mislabelled slices must change the loss when vote distributions differ")
}

func TestSumOverQuestionsIsOrderInvariant(t *testing.T) {
	forward := twoQuestionSchema(t)
	reversed, err := schema.NewFromRanges(
		[]string{"q1", "q0"},
		[]schema.Range{{Start: 0, End: 3}, {Start: 3, End: 5}},
	)
	require.NoError(t, err)

	conc := []float64{2, 3, 1, 4, 2}
	votes := []float64{7, 3, 1, 0, 5}

	// Same data laid out with q1 first.
	concRev := append(append([]float64{}, conc[2:]...), conc[:2]...)
	votesRev := append(append([]float64{}, votes[2:]...), votes[:2]...)

	a, err := NewEngine(forward).PerQuestionLoss(conc, votes, 1)
	require.NoError(t, err)
	b, err := NewEngine(reversed).PerQuestionLoss(concRev, votesRev, 1)
	require.NoError(t, err)

	assert.InDelta(t, a[0]+a[1], b[0]+b[1], 1e-12)
}

func TestEndToEndMatrixFinite(t *testing.T) {
	e := NewEngine(twoQuestionSchema(t))

	const batch = 4
	conc := []float64{
		2, 1, 0.5, 3, 1,
		10, 10, 1, 1, 1,
		1, 5, 2, 2, 2,
		0.3, 0.3, 8, 1, 4,
	}
	votes := []float64{
		6, 4, 0, 0, 0, // zero votes on q1
		0, 0, 3, 3, 4, // zero votes on q0
		1, 0, 10, 5, 5,
		12, 8, 2, 0, 1,
	}

	matrix, err := e.PerQuestionLoss(conc, votes, batch)
	require.NoError(t, err)
	require.Len(t, matrix, batch*2)

	for i, v := range matrix {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "entry %d is %v", i, v)
	}
	assert.Equal(t, 0.0, matrix[0*2+1], "example 0 has no votes on q1")
	assert.Equal(t, 0.0, matrix[1*2+0], "example 1 has no votes on q0")

	// Aggregate scalar: sum over questions, mean over batch.
	var agg float64
	for i := 0; i < batch; i++ {
		agg += matrix[i*2] + matrix[i*2+1]
	}
	agg /= batch

	var rowSumMean float64
	for i := 0; i < batch; i++ {
		rowSumMean += matrix[i*2] + matrix[i*2+1]
	}
	rowSumMean /= batch
	assert.Equal(t, rowSumMean, agg)
	assert.False(t, math.IsNaN(agg) || math.IsInf(agg, 0))
}

func TestIdempotence(t *testing.T) {
	e := NewEngine(twoQuestionSchema(t))
	conc := []float64{2, 1, 0.5, 3, 1}
	votes := []float64{6, 4, 1, 0, 2}

	first, err := e.PerQuestionLoss(conc, votes, 1)
	require.NoError(t, err)
	second, err := e.PerQuestionLoss(conc, votes, 1)
	require.NoError(t, err)

	// Bit-identical, not merely close.
	assert.Equal(t, first, second)
}

func TestShapeMismatch(t *testing.T) {
	e := NewEngine(twoAnswerSchema(t))

	_, err := e.PerQuestionLoss([]float64{1, 1, 1}, []float64{1, 1}, 1)
	assert.Error(t, err)

	_, err = e.PerQuestionLoss([]float64{1, 1}, []float64{1, 1, 1}, 1)
	assert.Error(t, err)

	_, err = e.PerQuestionLoss([]float64{1, 1}, []float64{1, 1}, 2)
	assert.Error(t, err)
}

func TestNonPositiveConcentrationFatalByDefault(t *testing.T) {
	e := NewEngine(twoAnswerSchema(t))
	_, err := e.PerQuestionLoss([]float64{0, 1}, []float64{3, 2}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive concentration")
}

func TestClampPolicyOptIn(t *testing.T) {
	e := NewEngine(twoAnswerSchema(t), WithClamp(1e-6, zap.NewNop()))
	loss, err := e.PerQuestionLoss([]float64{-1, 1}, []float64{3, 2}, 1)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss[0]) || math.IsInf(loss[0], 0))
}

func TestNegativeVotesRejected(t *testing.T) {
	e := NewEngine(twoAnswerSchema(t))
	_, err := e.PerQuestionLoss([]float64{1, 1}, []float64{-1, 2}, 1)
	assert.Error(t, err)
}
