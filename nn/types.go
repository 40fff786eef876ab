// Package nn implements the CPU convolutional backbone that maps image
// batches to Dirichlet concentration vectors, plus the optimizers and
// learning-rate schedules used to train it.
//
// Tensors are flat float64 slices in row-major layout with an explicit
// batch size, e.g. an image batch is [batch][channels][height][width]
// flattened. The final layer uses the Dirichlet head activation
// 1 + 100*sigmoid(x), so every output is strictly positive as the loss
// engine requires.
package nn

// LayerType identifies a layer implementation.
type LayerType int

const (
	LayerConv2D LayerType = iota
	LayerDense
	LayerGlobalAvgPool
)

// ActivationType identifies an elementwise activation.
type ActivationType int

const (
	ActivationLinear ActivationType = iota
	ActivationReLU
	ActivationLeakyReLU
	ActivationSigmoid
	ActivationTanh
	// ActivationDirichletHead is 1 + 100*sigmoid(v): bounded,
	// strictly positive concentrations.
	ActivationDirichletHead
)

// LayerConfig holds one layer's hyperparameters and parameters.
// Weights live in Kernel (conv kernels or the dense weight matrix) and
// Bias; gradient buffers live on the owning Network.
type LayerConfig struct {
	Type       LayerType
	Activation ActivationType

	// Conv2D / GlobalAvgPool geometry.
	InputHeight   int
	InputWidth    int
	InputChannels int
	KernelSize    int
	Stride        int
	Padding       int
	Filters       int
	OutputHeight  int
	OutputWidth   int

	// Dense geometry.
	InputSize  int
	OutputSize int

	Kernel []float64
	Bias   []float64
}

// OutputLen returns the per-example output length of the layer.
func (c *LayerConfig) OutputLen() int {
	switch c.Type {
	case LayerConv2D:
		return c.Filters * c.OutputHeight * c.OutputWidth
	case LayerGlobalAvgPool:
		return c.InputChannels
	case LayerDense:
		return c.OutputSize
	}
	return 0
}

// InputLen returns the per-example input length of the layer.
func (c *LayerConfig) InputLen() int {
	switch c.Type {
	case LayerConv2D, LayerGlobalAvgPool:
		return c.InputChannels * c.InputHeight * c.InputWidth
	case LayerDense:
		return c.InputSize
	}
	return 0
}

// NumParameters returns the trainable parameter count.
func (c *LayerConfig) NumParameters() int {
	return len(c.Kernel) + len(c.Bias)
}

// Network is a sequential stack of layers. It is not safe for
// concurrent use: each data-parallel replica owns its own copy (see
// Clone) and shares nothing but the immutable schema upstream.
type Network struct {
	Layers []LayerConfig

	InputSize  int // per-example input length
	OutputSize int // per-example output length (schema width)

	// Forward-pass state, reused by the following Backward call.
	inputs  [][]float64 // per-layer input activations
	preActs [][]float64 // per-layer pre-activation values

	kernelGradients [][]float64
	biasGradients   [][]float64
}

// NumParameters returns the total trainable parameter count.
func (n *Network) NumParameters() int {
	total := 0
	for i := range n.Layers {
		total += n.Layers[i].NumParameters()
	}
	return total
}

// KernelGradients exposes the per-layer kernel gradient buffers.
func (n *Network) KernelGradients() [][]float64 { return n.kernelGradients }

// BiasGradients exposes the per-layer bias gradient buffers.
func (n *Network) BiasGradients() [][]float64 { return n.biasGradients }
