package nn

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// checkpoint is the on-disk form of a network: geometry plus weights,
// JSON-encoded. Optimizer state is rebuilt from scratch on resume.
type checkpoint struct {
	Layers []LayerConfig `json:"layers"`
}

// Save writes the network's layers and weights to path.
func (n *Network) Save(path string) error {
	data, err := json.Marshal(checkpoint{Layers: n.Layers})
	if err != nil {
		return errors.Wrap(err, "encode checkpoint")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write checkpoint")
	}
	return nil
}

// Load reads a network saved with Save and revalidates its layer
// shapes.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read checkpoint")
	}
	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, errors.Wrap(err, "decode checkpoint")
	}
	return NewNetwork(cp.Layers)
}
