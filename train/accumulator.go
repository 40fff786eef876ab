package train

// meanAccumulator tracks a running mean over examples.
type meanAccumulator struct {
	sum float64
	n   int
}

func (a *meanAccumulator) add(sum float64, n int) {
	a.sum += sum
	a.n += n
}

func (a *meanAccumulator) mean() float64 {
	if a.n == 0 {
		return 0
	}
	return a.sum / float64(a.n)
}

// epochAccumulator collects one phase's losses between epoch
// boundaries. Each Controller owns one per phase and resets it after
// logging; there are no process-wide trackers.
type epochAccumulator struct {
	loss      meanAccumulator
	questions []meanAccumulator
	accuracy  meanAccumulator
}

func newEpochAccumulator(numQuestions int) *epochAccumulator {
	return &epochAccumulator{questions: make([]meanAccumulator, numQuestions)}
}

func (a *epochAccumulator) reset() {
	a.loss = meanAccumulator{}
	for q := range a.questions {
		a.questions[q] = meanAccumulator{}
	}
	a.accuracy = meanAccumulator{}
}
