package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

// Load reads a schema document from disk.
//
// Files ending in .yaml or .yml are converted to JSON first (sigs.k8s.io/yaml
// goes through JSON, so the result has the same shape a .json file would).
// Anything else must already be JSON.
//
// The returned value is a json.RawMessage ready to pass to Compile.
func Load(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	return Parse(data, filepath.Ext(path))
}

// Parse is Load for bytes already in memory; ext picks the format.
func Parse(data []byte, ext string) (json.RawMessage, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		return converted, nil
	default:
		if !json.Valid(data) {
			return nil, fmt.Errorf("content is not valid JSON")
		}
		return data, nil
	}
}

// DecodeDocument parses a data document (the value to validate) from JSON
// or YAML into JSON-shaped Go values.
func DecodeDocument(data []byte, ext string) (any, error) {
	raw, err := Parse(data, ext)
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return v, nil
}
