package nn

import (
	"math"
	"math/rand"
)

// InitConv2D initializes a Conv2D layer with He-initialized kernels
// and zero biases.
func InitConv2D(
	rng *rand.Rand,
	inputHeight, inputWidth, inputChannels int,
	kernelSize, stride, padding, filters int,
	activation ActivationType,
) LayerConfig {
	outputHeight := (inputHeight+2*padding-kernelSize)/stride + 1
	outputWidth := (inputWidth+2*padding-kernelSize)/stride + 1

	kernel := make([]float64, filters*inputChannels*kernelSize*kernelSize)
	stddev := math.Sqrt(2.0 / float64(inputChannels*kernelSize*kernelSize))
	for i := range kernel {
		kernel[i] = rng.NormFloat64() * stddev
	}

	return LayerConfig{
		Type:          LayerConv2D,
		Activation:    activation,
		KernelSize:    kernelSize,
		Stride:        stride,
		Padding:       padding,
		Filters:       filters,
		Kernel:        kernel,
		Bias:          make([]float64, filters),
		InputHeight:   inputHeight,
		InputWidth:    inputWidth,
		InputChannels: inputChannels,
		OutputHeight:  outputHeight,
		OutputWidth:   outputWidth,
	}
}

// conv2DForward convolves a flat [batch][inC][H][W] input, returning
// pre- and post-activation outputs of shape [batch][filters][outH][outW].
func conv2DForward(input []float64, cfg *LayerConfig, batchSize int) (preAct, postAct []float64) {
	inH, inW, inC := cfg.InputHeight, cfg.InputWidth, cfg.InputChannels
	kSize, stride, padding := cfg.KernelSize, cfg.Stride, cfg.Padding
	filters, outH, outW := cfg.Filters, cfg.OutputHeight, cfg.OutputWidth

	outputSize := batchSize * filters * outH * outW
	preAct = make([]float64, outputSize)
	postAct = make([]float64, outputSize)

	for b := 0; b < batchSize; b++ {
		for f := 0; f < filters; f++ {
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					sum := cfg.Bias[f]
					for ic := 0; ic < inC; ic++ {
						for kh := 0; kh < kSize; kh++ {
							for kw := 0; kw < kSize; kw++ {
								ih := oh*stride + kh - padding
								iw := ow*stride + kw - padding
								if ih >= 0 && ih < inH && iw >= 0 && iw < inW {
									inputIdx := b*inC*inH*inW + ic*inH*inW + ih*inW + iw
									kernelIdx := f*inC*kSize*kSize + ic*kSize*kSize + kh*kSize + kw
									sum += input[inputIdx] * cfg.Kernel[kernelIdx]
								}
							}
						}
					}
					outIdx := b*filters*outH*outW + f*outH*outW + oh*outW + ow
					preAct[outIdx] = sum
					postAct[outIdx] = activate(sum, cfg.Activation)
				}
			}
		}
	}
	return preAct, postAct
}

// conv2DBackward computes input, kernel and bias gradients from the
// gradient flowing back out of the layer.
func conv2DBackward(gradOutput, input, preAct []float64, cfg *LayerConfig, batchSize int) (gradInput, gradKernel, gradBias []float64) {
	inH, inW, inC := cfg.InputHeight, cfg.InputWidth, cfg.InputChannels
	kSize, stride, padding := cfg.KernelSize, cfg.Stride, cfg.Padding
	filters, outH, outW := cfg.Filters, cfg.OutputHeight, cfg.OutputWidth

	gradInput = make([]float64, batchSize*inC*inH*inW)
	gradKernel = make([]float64, filters*inC*kSize*kSize)
	gradBias = make([]float64, filters)

	for b := 0; b < batchSize; b++ {
		for f := 0; f < filters; f++ {
			for oh := 0; oh < outH; oh++ {
				for ow := 0; ow < outW; ow++ {
					outIdx := b*filters*outH*outW + f*outH*outW + oh*outW + ow
					gradOut := gradOutput[outIdx] * activateDerivative(preAct[outIdx], cfg.Activation)
					gradBias[f] += gradOut

					for ic := 0; ic < inC; ic++ {
						for kh := 0; kh < kSize; kh++ {
							for kw := 0; kw < kSize; kw++ {
								ih := oh*stride + kh - padding
								iw := ow*stride + kw - padding
								if ih >= 0 && ih < inH && iw >= 0 && iw < inW {
									inputIdx := b*inC*inH*inW + ic*inH*inW + ih*inW + iw
									kernelIdx := f*inC*kSize*kSize + ic*kSize*kSize + kh*kSize + kw
									gradInput[inputIdx] += gradOut * cfg.Kernel[kernelIdx]
									gradKernel[kernelIdx] += gradOut * input[inputIdx]
								}
							}
						}
					}
				}
			}
		}
	}
	return gradInput, gradKernel, gradBias
}
