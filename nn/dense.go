package nn

import (
	"math"
	"math/rand"
)

// InitDense initializes a fully-connected layer with He-initialized
// weights and zero biases.
func InitDense(rng *rand.Rand, inputSize, outputSize int, activation ActivationType) LayerConfig {
	stddev := math.Sqrt(2.0 / float64(inputSize))
	weights := make([]float64, inputSize*outputSize)
	for i := range weights {
		weights[i] = rng.NormFloat64() * stddev
	}

	return LayerConfig{
		Type:       LayerDense,
		Activation: activation,
		InputSize:  inputSize,
		OutputSize: outputSize,
		Kernel:     weights,
		Bias:       make([]float64, outputSize),
	}
}

// denseForward computes output = input @ weights + bias for a flat
// [batch][inputSize] input.
func denseForward(input []float64, cfg *LayerConfig, batchSize int) (preAct, postAct []float64) {
	inSize, outSize := cfg.InputSize, cfg.OutputSize
	preAct = make([]float64, batchSize*outSize)
	postAct = make([]float64, batchSize*outSize)

	for b := 0; b < batchSize; b++ {
		for o := 0; o < outSize; o++ {
			sum := cfg.Bias[o]
			for i := 0; i < inSize; i++ {
				sum += input[b*inSize+i] * cfg.Kernel[i*outSize+o]
			}
			outIdx := b*outSize + o
			preAct[outIdx] = sum
			postAct[outIdx] = activate(sum, cfg.Activation)
		}
	}
	return preAct, postAct
}

// denseBackward computes input, weight and bias gradients.
func denseBackward(gradOutput, input, preAct []float64, cfg *LayerConfig, batchSize int) (gradInput, gradWeights, gradBias []float64) {
	inSize, outSize := cfg.InputSize, cfg.OutputSize

	gradInput = make([]float64, batchSize*inSize)
	gradWeights = make([]float64, inSize*outSize)
	gradBias = make([]float64, outSize)

	for b := 0; b < batchSize; b++ {
		for o := 0; o < outSize; o++ {
			outIdx := b*outSize + o
			grad := gradOutput[outIdx] * activateDerivative(preAct[outIdx], cfg.Activation)
			gradBias[o] += grad
			for i := 0; i < inSize; i++ {
				inputIdx := b*inSize + i
				weightIdx := i*outSize + o
				gradWeights[weightIdx] += input[inputIdx] * grad
				gradInput[inputIdx] += cfg.Kernel[weightIdx] * grad
			}
		}
	}
	return gradInput, gradWeights, gradBias
}
