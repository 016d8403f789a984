package pidlconfig

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pidl-project/pidl/pidlerrors"
)

// Load reads and validates a declarative pipeline document from path.
// Parse and validation failures are reported as ArgumentError, so a
// malformed document fails before any task or action is constructed.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pidlerrors.NewArgumentError("path", "failed to read config file", err)
	}
	return Parse(data)
}

// Parse validates and unmarshals raw YAML bytes into a Document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, pidlerrors.NewArgumentError("document", "failed to parse YAML", err)
	}
	if err := validatorInstance().Struct(&doc); err != nil {
		return nil, pidlerrors.NewArgumentError("document", "validation failed", err)
	}
	return &doc, nil
}
