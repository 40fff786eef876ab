package nn

import (
	"fmt"
	"math"
)

// Optimizer applies accumulated gradients to network weights. Exactly
// one optimizer instance owns the state for the full parameter set.
type Optimizer interface {
	// Step applies the network's current gradient buffers.
	Step(network *Network, learningRate float64)

	// Reset clears optimizer state (moments, step count).
	Reset()

	// Name returns the optimizer name.
	Name() string
}

// ============================================================================
// SGD
// ============================================================================

type SGDOptimizer struct {
	momentum   float64
	velocities map[string][]float64
}

func NewSGDOptimizer() *SGDOptimizer {
	return &SGDOptimizer{velocities: make(map[string][]float64)}
}

func NewSGDOptimizerWithMomentum(momentum float64) *SGDOptimizer {
	return &SGDOptimizer{momentum: momentum, velocities: make(map[string][]float64)}
}

func (opt *SGDOptimizer) Step(network *Network, learningRate float64) {
	kernelGrads := network.KernelGradients()
	biasGrads := network.BiasGradients()

	for i := range network.Layers {
		layer := &network.Layers[i]
		opt.update(fmt.Sprintf("kernel_%d", i), layer.Kernel, kernelGrads[i], learningRate)
		opt.update(fmt.Sprintf("bias_%d", i), layer.Bias, biasGrads[i], learningRate)
	}
}

func (opt *SGDOptimizer) update(key string, params, grads []float64, lr float64) {
	if len(grads) != len(params) || len(params) == 0 {
		return
	}
	if opt.momentum == 0 {
		for j := range params {
			params[j] -= lr * grads[j]
		}
		return
	}
	if opt.velocities[key] == nil {
		opt.velocities[key] = make([]float64, len(params))
	}
	v := opt.velocities[key]
	for j := range params {
		v[j] = opt.momentum*v[j] + grads[j]
		params[j] -= lr * v[j]
	}
}

func (opt *SGDOptimizer) Reset() {
	opt.velocities = make(map[string][]float64)
}

func (opt *SGDOptimizer) Name() string {
	if opt.momentum > 0 {
		return "SGD (momentum)"
	}
	return "SGD"
}

// ============================================================================
// Adam
// ============================================================================

type AdamOptimizer struct {
	beta1   float64
	beta2   float64
	epsilon float64
	step    int

	m map[string][]float64 // first moments
	v map[string][]float64 // second moments
}

func NewAdamOptimizer(beta1, beta2, epsilon float64) *AdamOptimizer {
	return &AdamOptimizer{
		beta1:   beta1,
		beta2:   beta2,
		epsilon: epsilon,
		m:       make(map[string][]float64),
		v:       make(map[string][]float64),
	}
}

// NewAdamOptimizerDefault uses betas (0.9, 0.999), the settings the
// Galaxy Zoo campaigns train with.
func NewAdamOptimizerDefault() *AdamOptimizer {
	return NewAdamOptimizer(0.9, 0.999, 1e-8)
}

func (opt *AdamOptimizer) Step(network *Network, learningRate float64) {
	opt.step++
	biasCorrection1 := 1.0 - math.Pow(opt.beta1, float64(opt.step))
	biasCorrection2 := 1.0 - math.Pow(opt.beta2, float64(opt.step))

	kernelGrads := network.KernelGradients()
	biasGrads := network.BiasGradients()

	for i := range network.Layers {
		layer := &network.Layers[i]
		opt.update(fmt.Sprintf("kernel_%d", i), layer.Kernel, kernelGrads[i], learningRate, biasCorrection1, biasCorrection2)
		opt.update(fmt.Sprintf("bias_%d", i), layer.Bias, biasGrads[i], learningRate, biasCorrection1, biasCorrection2)
	}
}

func (opt *AdamOptimizer) update(key string, params, grads []float64, lr, bc1, bc2 float64) {
	if len(grads) != len(params) || len(params) == 0 {
		return
	}
	if opt.m[key] == nil {
		opt.m[key] = make([]float64, len(params))
		opt.v[key] = make([]float64, len(params))
	}
	m, v := opt.m[key], opt.v[key]
	for j := range params {
		g := grads[j]
		m[j] = opt.beta1*m[j] + (1-opt.beta1)*g
		v[j] = opt.beta2*v[j] + (1-opt.beta2)*g*g
		mHat := m[j] / bc1
		vHat := v[j] / bc2
		params[j] -= lr * mHat / (math.Sqrt(vHat) + opt.epsilon)
	}
}

func (opt *AdamOptimizer) Reset() {
	opt.step = 0
	opt.m = make(map[string][]float64)
	opt.v = make(map[string][]float64)
}

func (opt *AdamOptimizer) Name() string { return "Adam" }
