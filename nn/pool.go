package nn

// InitGlobalAvgPool initializes a global average pooling layer that
// collapses each channel's spatial map to its mean, the standard
// reduction between the convolutional trunk and the Dirichlet head.
func InitGlobalAvgPool(inputHeight, inputWidth, inputChannels int) LayerConfig {
	return LayerConfig{
		Type:          LayerGlobalAvgPool,
		Activation:    ActivationLinear,
		InputHeight:   inputHeight,
		InputWidth:    inputWidth,
		InputChannels: inputChannels,
		OutputHeight:  1,
		OutputWidth:   1,
	}
}

func globalAvgPoolForward(input []float64, cfg *LayerConfig, batchSize int) (preAct, postAct []float64) {
	spatial := cfg.InputHeight * cfg.InputWidth
	channels := cfg.InputChannels
	out := make([]float64, batchSize*channels)

	scale := 1.0 / float64(spatial)
	for b := 0; b < batchSize; b++ {
		for c := 0; c < channels; c++ {
			sum := 0.0
			base := b*channels*spatial + c*spatial
			for s := 0; s < spatial; s++ {
				sum += input[base+s]
			}
			out[b*channels+c] = sum * scale
		}
	}
	// No nonlinearity: pre- and post-activation coincide.
	return out, out
}

func globalAvgPoolBackward(gradOutput []float64, cfg *LayerConfig, batchSize int) []float64 {
	spatial := cfg.InputHeight * cfg.InputWidth
	channels := cfg.InputChannels
	gradInput := make([]float64, batchSize*channels*spatial)

	scale := 1.0 / float64(spatial)
	for b := 0; b < batchSize; b++ {
		for c := 0; c < channels; c++ {
			g := gradOutput[b*channels+c] * scale
			base := b*channels*spatial + c*spatial
			for s := 0; s < spatial; s++ {
				gradInput[base+s] = g
			}
		}
	}
	return gradInput
}
