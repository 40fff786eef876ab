package nn

import "math"

// LRScheduler maps the optimizer step count to a learning rate.
type LRScheduler interface {
	GetLR(step int) float64
	Name() string
}

type ConstantScheduler struct {
	baseLR float64
}

func NewConstantScheduler(baseLR float64) *ConstantScheduler {
	return &ConstantScheduler{baseLR: baseLR}
}

func (s *ConstantScheduler) GetLR(step int) float64 { return s.baseLR }
func (s *ConstantScheduler) Name() string           { return "Constant" }

// CosineAnnealingScheduler decays from initialLR to minLR over
// totalSteps following half a cosine period.
type CosineAnnealingScheduler struct {
	initialLR  float64
	minLR      float64
	totalSteps int
}

func NewCosineAnnealingScheduler(initialLR, minLR float64, totalSteps int) *CosineAnnealingScheduler {
	return &CosineAnnealingScheduler{initialLR: initialLR, minLR: minLR, totalSteps: totalSteps}
}

func (s *CosineAnnealingScheduler) GetLR(step int) float64 {
	if step >= s.totalSteps {
		return s.minLR
	}
	progress := float64(step) / float64(s.totalSteps)
	cosineDecay := (1.0 + math.Cos(math.Pi*progress)) / 2.0
	return s.minLR + (s.initialLR-s.minLR)*cosineDecay
}

func (s *CosineAnnealingScheduler) Name() string { return "CosineAnnealing" }
