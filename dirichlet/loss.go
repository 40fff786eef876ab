// Package dirichlet computes the Dirichlet-multinomial
// negative log-likelihood of crowd vote counts given per-answer
// concentration parameters, one loss per (example, question).
//
// Everything here is a pure function of its inputs: no shared state,
// safe to call from any number of replicas at once.
package dirichlet

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/natalines/zoobot/schema"
)

// Engine evaluates the per-question loss for a fixed schema.
type Engine struct {
	schema *schema.Schema

	// clampEpsilon, when > 0, replaces non-positive concentrations
	// with clampEpsilon and logs a warning instead of failing the
	// step. Off by default: a non-positive concentration means the
	// model head is broken and the run should die loudly.
	clampEpsilon float64
	log          *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClamp enables the documented clamp-and-warn policy for
// non-positive concentrations. eps must be a small positive value.
func WithClamp(eps float64, log *zap.Logger) Option {
	return func(e *Engine) {
		e.clampEpsilon = eps
		e.log = log
	}
}

// NewEngine creates a loss engine over s. The schema is trusted
// unconditionally; it validated its ranges at construction.
func NewEngine(s *schema.Schema, opts ...Option) *Engine {
	e := &Engine{schema: s, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// Schema returns the schema the engine was built over.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// PerQuestionLoss returns the loss matrix, shape (batchSize,
// NumQuestions) flattened row-major, so element [i*nq+q] is the
// negative log-likelihood of example i's votes on question q.
//
// concentrations and votes are flat row-major (batchSize, Width)
// slices. Zero-vote questions contribute exactly 0: every lgamma term
// either vanishes at 1 or cancels against an identical argument, so no
// guard or special case is needed and no gradient leaks through.
func (e *Engine) PerQuestionLoss(concentrations, votes []float64, batchSize int) ([]float64, error) {
	if err := e.check(concentrations, votes, batchSize); err != nil {
		return nil, err
	}

	width := e.schema.Width()
	nq := e.schema.NumQuestions()
	out := make([]float64, batchSize*nq)

	for i := 0; i < batchSize; i++ {
		row := i * width
		for q := 0; q < nq; q++ {
			r := e.schema.Range(q)
			c := concentrations[row+r.Start : row+r.End]
			k := votes[row+r.Start : row+r.End]
			out[i*nq+q] = questionNLL(c, k, e.clampEpsilon)
		}
	}
	return out, nil
}

// questionNLL is the negative log of the Dirichlet-multinomial pmf:
//
//	-[ lgΓ(n+1) - Σ lgΓ(k+1) + lgΓ(A) - lgΓ(n+A) + Σ(lgΓ(k+c) - lgΓ(c)) ]
//
// with n = Σk and A = Σc, sums over the question's answers.
func questionNLL(c, k []float64, clampEpsilon float64) float64 {
	n := 0.0
	sumC := 0.0
	sumLgKFact := 0.0
	sumLgRatio := 0.0
	for a := range c {
		ca := c[a]
		if ca <= 0 && clampEpsilon > 0 {
			ca = clampEpsilon
		}
		ka := k[a]
		n += ka
		sumC += ca
		sumLgKFact += lgamma(ka + 1)
		sumLgRatio += lgamma(ka+ca) - lgamma(ca)
	}
	logLik := lgamma(n+1) - sumLgKFact + lgamma(sumC) - lgamma(n+sumC) + sumLgRatio
	return -logLik
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// check enforces the shape and domain contract shared by
// PerQuestionLoss and LossAndGradient.
func (e *Engine) check(concentrations, votes []float64, batchSize int) error {
	if batchSize <= 0 {
		return errors.Errorf("dirichlet: batch size must be positive, got %d", batchSize)
	}
	want := batchSize * e.schema.Width()
	if len(concentrations) != want {
		return errors.Errorf("dirichlet: concentrations length %d, want %d (batch %d x width %d)",
			len(concentrations), want, batchSize, e.schema.Width())
	}
	if len(votes) != want {
		return errors.Errorf("dirichlet: votes length %d, want %d (batch %d x width %d)",
			len(votes), want, batchSize, e.schema.Width())
	}
	for i, v := range votes {
		if v < 0 {
			return errors.Errorf("dirichlet: negative vote count %g at index %d", v, i)
		}
	}
	clamped := 0
	for i, c := range concentrations {
		if c <= 0 {
			if e.clampEpsilon <= 0 {
				return errors.Errorf("dirichlet: non-positive concentration %g at index %d (model head must emit strictly positive values)", c, i)
			}
			clamped++
		}
	}
	if clamped > 0 {
		e.log.Warn("clamping non-positive concentrations",
			zap.Int("count", clamped),
			zap.Float64("epsilon", e.clampEpsilon))
	}
	return nil
}
