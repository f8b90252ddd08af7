package config

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/EricRabil/vue-cli/internal/jsonpatch"
)

// ApplyPatch applies a JSON patch (add, remove and replace only) to a YAML or JSON
// configuration document and returns the result as JSON. An empty document is
// treated as {}.
func ApplyPatch(doc []byte, patch []byte) ([]byte, error) {
	js := []byte("{}")
	if len(doc) > 0 {
		var err error
		js, err = yaml.YAMLToJSON(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert configuration to JSON: %w", err)
		}
		if string(js) == "null" || string(js) == "null\n" {
			js = []byte("{}")
		}
	}

	out, err := jsonpatch.Apply(patch, js)
	if err != nil {
		return nil, fmt.Errorf("failed to apply patch: %w", err)
	}
	return out, nil
}
