package nn

import (
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// BackboneSpec describes the input images and the flat output width
// (the schema's answer-vector length) a backbone must produce.
type BackboneSpec struct {
	ImageSize int
	Channels  int
	OutputDim int
	Seed      int64
}

// BackboneFactory builds a network whose output layer emits
// strictly-positive concentrations of length OutputDim.
type BackboneFactory func(spec BackboneSpec) (*Network, error)

var backboneRegistry = map[string]BackboneFactory{
	"linear":       buildLinear,
	"convnet":      buildConvNet,
	"convnet-deep": buildConvNetDeep,
}

// RegisterBackbone adds an architecture to the registry. Registration
// happens at init time; the map is read-only afterwards.
func RegisterBackbone(name string, factory BackboneFactory) {
	backboneRegistry[name] = factory
}

// BuildBackbone constructs an architecture by name. Selection happens
// once at startup; downstream components never branch on the name.
func BuildBackbone(name string, spec BackboneSpec) (*Network, error) {
	factory, ok := backboneRegistry[name]
	if !ok {
		return nil, errors.Errorf("nn: unknown architecture %q (have %v)", name, Architectures())
	}
	if spec.OutputDim <= 0 {
		return nil, errors.Errorf("nn: backbone output dim must be positive, got %d", spec.OutputDim)
	}
	return factory(spec)
}

// Architectures lists the registered architecture names.
func Architectures() []string {
	names := make([]string, 0, len(backboneRegistry))
	for name := range backboneRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildLinear is a single dense layer from the flattened image to the
// Dirichlet head. Cheap baseline and the test workhorse.
func buildLinear(spec BackboneSpec) (*Network, error) {
	rng := rand.New(rand.NewSource(spec.Seed))
	inputSize := spec.Channels * spec.ImageSize * spec.ImageSize
	return NewNetwork([]LayerConfig{
		InitDense(rng, inputSize, spec.OutputDim, ActivationDirichletHead),
	})
}

// buildConvNet is a two-block convolutional trunk with global average
// pooling and the Dirichlet head.
func buildConvNet(spec BackboneSpec) (*Network, error) {
	rng := rand.New(rand.NewSource(spec.Seed))

	conv1 := InitConv2D(rng, spec.ImageSize, spec.ImageSize, spec.Channels, 3, 2, 1, 8, ActivationReLU)
	conv2 := InitConv2D(rng, conv1.OutputHeight, conv1.OutputWidth, 8, 3, 2, 1, 16, ActivationReLU)
	pool := InitGlobalAvgPool(conv2.OutputHeight, conv2.OutputWidth, 16)
	head := InitDense(rng, 16, spec.OutputDim, ActivationDirichletHead)

	return NewNetwork([]LayerConfig{conv1, conv2, pool, head})
}

// buildConvNetDeep adds a third convolutional block for larger images.
func buildConvNetDeep(spec BackboneSpec) (*Network, error) {
	rng := rand.New(rand.NewSource(spec.Seed))

	conv1 := InitConv2D(rng, spec.ImageSize, spec.ImageSize, spec.Channels, 3, 2, 1, 8, ActivationReLU)
	conv2 := InitConv2D(rng, conv1.OutputHeight, conv1.OutputWidth, 8, 3, 2, 1, 16, ActivationReLU)
	conv3 := InitConv2D(rng, conv2.OutputHeight, conv2.OutputWidth, 16, 3, 2, 1, 32, ActivationReLU)
	pool := InitGlobalAvgPool(conv3.OutputHeight, conv3.OutputWidth, 32)
	head := InitDense(rng, 32, spec.OutputDim, ActivationDirichletHead)

	return NewNetwork([]LayerConfig{conv1, conv2, conv3, pool, head})
}
