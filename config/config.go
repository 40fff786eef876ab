// Package config loads run configuration from YAML. Unknown fields are
// rejected so typos fail loudly instead of silently falling back to
// defaults.
package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/natalines/zoobot/nn"
	"github.com/natalines/zoobot/schema"
)

// Run describes one training run end to end: the data, the
// architecture, the optimization schedule, and where outputs go.
type Run struct {
	// Schema selects a built-in schema by name, or SchemaFile loads a
	// custom one; exactly one must be set.
	Schema     string `yaml:"schema"`
	SchemaFile string `yaml:"schema_file"`

	Architecture string `yaml:"architecture"`
	ImageSize    int    `yaml:"image_size"`
	Channels     int    `yaml:"channels"`

	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	AdamBeta1    float64 `yaml:"adam_beta1"`
	AdamBeta2    float64 `yaml:"adam_beta2"`
	Patience     int     `yaml:"patience"`
	Replicas     int     `yaml:"replicas"`
	LogOnStep    bool    `yaml:"log_on_step"`
	Seed         int64   `yaml:"seed"`

	// Catalog is a CSV vote catalog with an image directory; when
	// empty, a mock dataset of MockExamples galaxies is generated.
	Catalog      string `yaml:"catalog"`
	ImageDir     string `yaml:"image_dir"`
	MockExamples int    `yaml:"mock_examples"`

	// ClampEpsilon, when positive, clamps non-positive concentrations
	// instead of failing the step.
	ClampEpsilon float64 `yaml:"clamp_epsilon"`

	SaveDir string `yaml:"save_dir"`
}

// Default returns the configuration of a small mock-data run.
func Default() Run {
	return Run{
		Schema:       "smooth-or-featured",
		Architecture: "convnet",
		ImageSize:    32,
		Channels:     1,
		Epochs:       20,
		BatchSize:    32,
		LearningRate: 1e-3,
		AdamBeta1:    0.9,
		AdamBeta2:    0.999,
		Patience:     8,
		Replicas:     1,
		Seed:         42,
		MockExamples: 256,
		SaveDir:      "runs",
	}
}

// Load reads a YAML file on top of the defaults and validates the
// result.
func Load(path string) (Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return Run{}, errors.Wrap(err, "open run config")
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes one YAML document on top of the defaults.
func Parse(r io.Reader) (Run, error) {
	run := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&run); err != nil {
		return Run{}, errors.Wrap(err, "decode run config")
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		return Run{}, errors.New("config: run config must contain exactly one document")
	}
	if err := run.Validate(); err != nil {
		return Run{}, err
	}
	return run, nil
}

// Validate checks ranges and cross-field constraints.
func (r Run) Validate() error {
	if r.Schema == "" && r.SchemaFile == "" {
		return errors.New("config: one of schema or schema_file is required")
	}
	if r.Schema != "" && r.SchemaFile != "" {
		return errors.New("config: schema and schema_file are mutually exclusive")
	}
	if r.Architecture == "" {
		return errors.Errorf("config: architecture is required (have %v)", nn.Architectures())
	}
	if r.ImageSize <= 0 || r.Channels <= 0 {
		return errors.Errorf("config: image_size and channels must be positive, got %dx%d", r.ImageSize, r.Channels)
	}
	if r.Epochs <= 0 {
		return errors.Errorf("config: epochs must be positive, got %d", r.Epochs)
	}
	if r.BatchSize <= 0 {
		return errors.Errorf("config: batch_size must be positive, got %d", r.BatchSize)
	}
	if r.LearningRate <= 0 {
		return errors.Errorf("config: learning_rate must be positive, got %g", r.LearningRate)
	}
	if r.AdamBeta1 <= 0 || r.AdamBeta1 >= 1 || r.AdamBeta2 <= 0 || r.AdamBeta2 >= 1 {
		return errors.Errorf("config: adam betas must lie in (0, 1), got (%g, %g)", r.AdamBeta1, r.AdamBeta2)
	}
	if r.Patience <= 0 {
		return errors.Errorf("config: patience must be positive, got %d", r.Patience)
	}
	if r.Replicas <= 0 {
		return errors.Errorf("config: replicas must be positive, got %d", r.Replicas)
	}
	if r.ClampEpsilon < 0 {
		return errors.Errorf("config: clamp_epsilon must be non-negative, got %g", r.ClampEpsilon)
	}
	if r.Catalog == "" && r.MockExamples <= 0 {
		return errors.New("config: mock_examples must be positive when no catalog is set")
	}
	if r.Catalog != "" && r.ImageDir == "" {
		return errors.New("config: image_dir is required with a catalog")
	}
	return nil
}

// ResolveSchema returns the schema this run trains against.
func (r Run) ResolveSchema() (*schema.Schema, error) {
	if r.SchemaFile != "" {
		return schema.Load(r.SchemaFile)
	}
	return schema.ByName(r.Schema)
}
