package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	run, err := Parse(strings.NewReader(`
schema: gz2
architecture: linear
epochs: 3
batch_size: 8
learning_rate: 0.01
replicas: 2
log_on_step: true
`))
	require.NoError(t, err)

	assert.Equal(t, "gz2", run.Schema)
	assert.Equal(t, "linear", run.Architecture)
	assert.Equal(t, 3, run.Epochs)
	assert.Equal(t, 8, run.BatchSize)
	assert.InDelta(t, 0.01, run.LearningRate, 1e-12)
	assert.Equal(t, 2, run.Replicas)
	assert.True(t, run.LogOnStep)

	// Untouched fields keep their defaults.
	assert.Equal(t, 8, run.Patience)
	assert.InDelta(t, 0.9, run.AdamBeta1, 1e-12)
	assert.InDelta(t, 0.999, run.AdamBeta2, 1e-12)
	assert.Equal(t, 256, run.MockExamples)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader(`
schema: gz2
architecture: linear
learnign_rate: 0.01
`))
	assert.Error(t, err)
}

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Run)
	}{
		{"no schema", func(r *Run) { r.Schema = "" }},
		{"both schemas", func(r *Run) { r.SchemaFile = "custom.yaml" }},
		{"no architecture", func(r *Run) { r.Architecture = "" }},
		{"zero epochs", func(r *Run) { r.Epochs = 0 }},
		{"zero batch", func(r *Run) { r.BatchSize = 0 }},
		{"negative lr", func(r *Run) { r.LearningRate = -1 }},
		{"beta1 out of range", func(r *Run) { r.AdamBeta1 = 1.0 }},
		{"zero patience", func(r *Run) { r.Patience = 0 }},
		{"zero replicas", func(r *Run) { r.Replicas = 0 }},
		{"negative clamp", func(r *Run) { r.ClampEpsilon = -1e-6 }},
		{"no data source", func(r *Run) { r.MockExamples = 0 }},
		{"catalog without images", func(r *Run) { r.Catalog = "votes.csv"; r.ImageDir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			run := Default()
			tc.mutate(&run)
			assert.Error(t, run.Validate())
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema: smooth-or-featured\narchitecture: convnet\nepochs: 2\n"), 0o644))

	run, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Epochs)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestResolveSchema(t *testing.T) {
	run := Default()
	s, err := run.ResolveSchema()
	require.NoError(t, err)
	assert.True(t, s.IsBinary())

	run.Schema = "nope"
	_, err = run.ResolveSchema()
	assert.Error(t, err)
}
