package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a JobConfig document, dispatching on filename's
// extension (".json" or ".yaml"/".yml"), merges it onto DefaultJobConfig,
// and returns the result. Grounded on kernel.LoadConfig's JSON-only
// reader, extended with ternarybob-quaero's use of gopkg.in/yaml.v3 for
// the YAML branch.
func LoadFile(filename string) (*JobConfig, error) {
	cfg := DefaultJobConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}

	var loaded JobConfig
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("config: parse %s as JSON: %w", filename, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("config: parse %s as YAML: %w", filename, err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported config extension %q", ext)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
