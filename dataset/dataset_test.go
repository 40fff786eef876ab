package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natalines/zoobot/schema"
)

func TestBatchingWithRaggedLastBatch(t *testing.T) {
	inputs := [][]float64{{1}, {2}, {3}, {4}, {5}}
	votes := [][]float64{{1, 0}, {0, 1}, {1, 1}, {2, 0}, {0, 2}}

	d, err := NewInMemory(inputs, votes, 2, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, d.Len())

	it := d.Epoch()
	var sizes []int
	total := 0
	for {
		b, ok := it.Next()
		if !ok {
			break
		}
		assert.Len(t, b.Inputs, b.Size*1)
		assert.Len(t, b.Votes, b.Size*2)
		sizes = append(sizes, b.Size)
		total += b.Size
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, 5, total)
}

func TestUnshuffledOrderIsStable(t *testing.T) {
	inputs := [][]float64{{1}, {2}, {3}}
	votes := [][]float64{{1}, {2}, {3}}
	d, err := NewInMemory(inputs, votes, 3, false, 0)
	require.NoError(t, err)

	b, ok := d.Epoch().Next()
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, b.Inputs)
}

func TestShuffleIsSeededAndCoversAllExamples(t *testing.T) {
	inputs := make([][]float64, 64)
	votes := make([][]float64, 64)
	for i := range inputs {
		inputs[i] = []float64{float64(i)}
		votes[i] = []float64{1}
	}

	gather := func(seed int64) []float64 {
		d, err := NewInMemory(inputs, votes, 64, true, seed)
		require.NoError(t, err)
		b, ok := d.Epoch().Next()
		require.True(t, ok)
		return b.Inputs
	}

	a := gather(1)
	b := gather(1)
	c := gather(2)
	assert.Equal(t, a, b, "same seed must give the same order")
	assert.NotEqual(t, a, c, "different seeds should differ")

	seen := make(map[float64]bool)
	for _, v := range a {
		seen[v] = true
	}
	assert.Len(t, seen, 64)
}

func TestMismatchedShapesRejected(t *testing.T) {
	_, err := NewInMemory([][]float64{{1}}, [][]float64{{1}, {2}}, 1, false, 0)
	assert.Error(t, err)

	_, err = NewInMemory([][]float64{{1}, {2, 3}}, [][]float64{{1}, {2}}, 1, false, 0)
	assert.Error(t, err)

	_, err = NewInMemory(nil, nil, 1, false, 0)
	assert.Error(t, err)
}

func TestMockVotesConsistentWithSchema(t *testing.T) {
	s := schema.GZ2()
	d, err := Mock(s, MockConfig{
		Examples:  32,
		ImageSize: 8,
		Channels:  1,
		BatchSize: 8,
		MaxVotes:  20,
		Seed:      3,
	})
	require.NoError(t, err)

	assert.Equal(t, 32, d.Len())
	assert.Equal(t, 64, d.InputLen())
	assert.Equal(t, s.Width(), d.VoteLen())

	it := d.Epoch()
	for {
		b, ok := it.Next()
		if !ok {
			break
		}
		for i := 0; i < b.Size; i++ {
			row := b.Votes[i*s.Width() : (i+1)*s.Width()]
			for q := 0; q < s.NumQuestions(); q++ {
				r := s.Range(q)
				sum := 0.0
				for _, v := range row[r.Start:r.End] {
					assert.GreaterOrEqual(t, v, 0.0)
					sum += v
				}
				assert.LessOrEqual(t, sum, 20.0)
			}
		}
	}
}
