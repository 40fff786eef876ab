package schema

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type schemaFile struct {
	Questions []Question `yaml:"questions"`
}

// Load reads and validates a schema definition from a YAML file:
//
//	questions:
//	  - name: smooth-or-featured
//	    answers: [smooth, featured-or-disk, artifact]
//
// Unknown fields are rejected so typos fail at startup rather than
// silently dropping a question.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read schema file")
	}
	return Parse(data)
}

// Parse validates a YAML schema definition.
func Parse(data []byte) (*Schema, error) {
	var file schemaFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, errors.Wrap(err, "parse schema yaml")
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errors.New("parse schema yaml: multiple documents are not supported")
		}
		return nil, errors.Wrap(err, "parse schema yaml")
	}
	return New(file.Questions)
}
