package dirichlet

import "gonum.org/v1/gonum/mathext"

// LossAndGradient computes the per-question loss matrix together with
// the gradient of the summed-over-questions loss with respect to each
// concentration. The gradient is per-example and unnormalized: the
// caller divides by the global example count when reducing across
// replicas, so the update matches the true global-mean objective.
//
// d(NLL)/dc_a = -[ ψ(A) - ψ(n+A) + ψ(k_a+c_a) - ψ(c_a) ]
//
// with ψ the digamma function, n = Σk and A = Σc over the question's
// answers. For a zero-vote question every digamma pair cancels against
// an identical argument, so the gradient is exactly zero.
func (e *Engine) LossAndGradient(concentrations, votes []float64, batchSize int) (lossMatrix, grad []float64, err error) {
	if err := e.check(concentrations, votes, batchSize); err != nil {
		return nil, nil, err
	}

	width := e.schema.Width()
	nq := e.schema.NumQuestions()
	lossMatrix = make([]float64, batchSize*nq)
	grad = make([]float64, len(concentrations))

	for i := 0; i < batchSize; i++ {
		row := i * width
		for q := 0; q < nq; q++ {
			r := e.schema.Range(q)
			c := concentrations[row+r.Start : row+r.End]
			k := votes[row+r.Start : row+r.End]
			g := grad[row+r.Start : row+r.End]
			lossMatrix[i*nq+q] = questionNLLGrad(c, k, g, e.clampEpsilon)
		}
	}
	return lossMatrix, grad, nil
}

// questionNLLGrad fills g with d(NLL)/dc and returns the NLL.
func questionNLLGrad(c, k, g []float64, clampEpsilon float64) float64 {
	n := 0.0
	sumC := 0.0
	for a := range c {
		ca := c[a]
		if ca <= 0 && clampEpsilon > 0 {
			ca = clampEpsilon
		}
		n += k[a]
		sumC += ca
	}

	digammaTotal := mathext.Digamma(sumC) - mathext.Digamma(n+sumC)
	for a := range c {
		ca := c[a]
		if ca <= 0 && clampEpsilon > 0 {
			ca = clampEpsilon
		}
		g[a] = -(digammaTotal + mathext.Digamma(k[a]+ca) - mathext.Digamma(ca))
	}
	return questionNLL(c, k, clampEpsilon)
}
