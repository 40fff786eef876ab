package nn

import "github.com/pkg/errors"

// NewNetwork assembles a sequential network from layers. Adjacent
// layer shapes must agree; that is checked here once rather than on
// every forward pass.
func NewNetwork(layers []LayerConfig) (*Network, error) {
	if len(layers) == 0 {
		return nil, errors.New("nn: network needs at least one layer")
	}
	for i := 1; i < len(layers); i++ {
		prev := layers[i-1].OutputLen()
		next := layers[i].InputLen()
		if prev != next {
			return nil, errors.Errorf("nn: layer %d expects input length %d but layer %d produces %d",
				i, next, i-1, prev)
		}
	}

	n := &Network{
		Layers:     layers,
		InputSize:  layers[0].InputLen(),
		OutputSize: layers[len(layers)-1].OutputLen(),
	}
	n.inputs = make([][]float64, len(layers))
	n.preActs = make([][]float64, len(layers))
	n.kernelGradients = make([][]float64, len(layers))
	n.biasGradients = make([][]float64, len(layers))
	return n, nil
}

// Forward runs the batch through every layer, caching activations for
// the following Backward call, and returns the flat output
// [batch][OutputSize]. For the backbone, the output is the
// concentration vector batch.
func (n *Network) Forward(input []float64, batchSize int) ([]float64, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("nn: batch size must be positive, got %d", batchSize)
	}
	if len(input) != batchSize*n.InputSize {
		return nil, errors.Errorf("nn: input length %d, want %d (batch %d x input size %d)",
			len(input), batchSize*n.InputSize, batchSize, n.InputSize)
	}

	current := input
	for i := range n.Layers {
		cfg := &n.Layers[i]
		n.inputs[i] = current

		var preAct, postAct []float64
		switch cfg.Type {
		case LayerConv2D:
			preAct, postAct = conv2DForward(current, cfg, batchSize)
		case LayerDense:
			preAct, postAct = denseForward(current, cfg, batchSize)
		case LayerGlobalAvgPool:
			preAct, postAct = globalAvgPoolForward(current, cfg, batchSize)
		default:
			return nil, errors.Errorf("nn: layer %d has unknown type %d", i, cfg.Type)
		}
		n.preActs[i] = preAct
		current = postAct
	}
	return current, nil
}

// Backward propagates the loss gradient w.r.t. the network output
// through every layer, accumulating parameter gradients summed over
// the batch. Gradients are overwritten, not accumulated across calls;
// the caller reduces across replicas and normalizes by the global
// example count before the optimizer step.
func (n *Network) Backward(gradOutput []float64, batchSize int) error {
	last := len(n.Layers) - 1
	if n.inputs[last] == nil {
		return errors.New("nn: Backward called before Forward")
	}
	if len(gradOutput) != batchSize*n.OutputSize {
		return errors.Errorf("nn: gradient length %d, want %d (batch %d x output size %d)",
			len(gradOutput), batchSize*n.OutputSize, batchSize, n.OutputSize)
	}

	grad := gradOutput
	for i := last; i >= 0; i-- {
		cfg := &n.Layers[i]
		switch cfg.Type {
		case LayerConv2D:
			gradInput, gradKernel, gradBias := conv2DBackward(grad, n.inputs[i], n.preActs[i], cfg, batchSize)
			n.kernelGradients[i] = gradKernel
			n.biasGradients[i] = gradBias
			grad = gradInput
		case LayerDense:
			gradInput, gradWeights, gradBias := denseBackward(grad, n.inputs[i], n.preActs[i], cfg, batchSize)
			n.kernelGradients[i] = gradWeights
			n.biasGradients[i] = gradBias
			grad = gradInput
		case LayerGlobalAvgPool:
			grad = globalAvgPoolBackward(grad, cfg, batchSize)
			n.kernelGradients[i] = nil
			n.biasGradients[i] = nil
		}
	}
	return nil
}

// ScaleGradients multiplies every parameter gradient by s. Used to turn
// per-shard gradient sums into the global-mean gradient.
func (n *Network) ScaleGradients(s float64) {
	for i := range n.kernelGradients {
		for j := range n.kernelGradients[i] {
			n.kernelGradients[i][j] *= s
		}
		for j := range n.biasGradients[i] {
			n.biasGradients[i][j] *= s
		}
	}
}

// AccumulateGradientsFrom adds src's parameter gradients into n's
// buffers, allocating them if n has none yet. Networks must share one
// architecture.
func (n *Network) AccumulateGradientsFrom(src *Network) error {
	if len(src.Layers) != len(n.Layers) {
		return errors.Errorf("nn: cannot accumulate gradients across architectures (%d vs %d layers)",
			len(src.Layers), len(n.Layers))
	}
	for i := range src.kernelGradients {
		if src.kernelGradients[i] == nil {
			continue
		}
		if n.kernelGradients[i] == nil {
			n.kernelGradients[i] = make([]float64, len(src.kernelGradients[i]))
			n.biasGradients[i] = make([]float64, len(src.biasGradients[i]))
		}
		for j, g := range src.kernelGradients[i] {
			n.kernelGradients[i][j] += g
		}
		for j, g := range src.biasGradients[i] {
			n.biasGradients[i][j] += g
		}
	}
	return nil
}

// ZeroGradients clears the parameter gradient buffers.
func (n *Network) ZeroGradients() {
	for i := range n.kernelGradients {
		n.kernelGradients[i] = nil
		n.biasGradients[i] = nil
	}
}

// Clone returns a deep copy with its own weights, activations and
// gradient buffers. Each data-parallel replica trains on a clone.
func (n *Network) Clone() *Network {
	layers := make([]LayerConfig, len(n.Layers))
	for i, cfg := range n.Layers {
		layers[i] = cfg
		layers[i].Kernel = append([]float64(nil), cfg.Kernel...)
		layers[i].Bias = append([]float64(nil), cfg.Bias...)
	}
	clone, err := NewNetwork(layers)
	if err != nil {
		panic(err) // n was already validated
	}
	return clone
}

// CopyWeightsFrom overwrites n's parameters with src's. Used to
// broadcast updated weights back to replicas after an optimizer step.
func (n *Network) CopyWeightsFrom(src *Network) error {
	if len(src.Layers) != len(n.Layers) {
		return errors.Errorf("nn: cannot copy weights across architectures (%d vs %d layers)",
			len(src.Layers), len(n.Layers))
	}
	for i := range src.Layers {
		if len(src.Layers[i].Kernel) != len(n.Layers[i].Kernel) || len(src.Layers[i].Bias) != len(n.Layers[i].Bias) {
			return errors.Errorf("nn: layer %d parameter shape mismatch", i)
		}
		copy(n.Layers[i].Kernel, src.Layers[i].Kernel)
		copy(n.Layers[i].Bias, src.Layers[i].Bias)
	}
	return nil
}
