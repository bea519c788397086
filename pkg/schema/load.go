package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Format identifies a configuration document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension. Anything that is not
// ".json" is read as YAML, which is a superset of JSON anyway.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads a configuration file (YAML or JSON).
func Load(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Parse decodes a configuration document.
func Parse(data []byte, format Format) (*domain.Config, error) {
	switch format {
	case FormatJSON:
		var cfg domain.Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
		return &cfg, nil
	case FormatYAML:
		return parseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func parseYAML(data []byte) (*domain.Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	// Blank and comment-only input leaves the node unset.
	if root.Kind == 0 || (root.Kind == yaml.DocumentNode && len(root.Content) == 0) {
		return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidConfig)
	}

	var cfg domain.Config
	if err := root.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	return &cfg, nil
}

// rawConfig mirrors domain.Config with a plain map, which is what mapstructure can fill.
type rawConfig struct {
	Initial string                     `mapstructure:"initial"`
	States  map[string]domain.StateDef `mapstructure:"states"`
}

// Decode builds a configuration from a generic map, e.g. one embedded in a larger
// document. Maps carry no order, so states are enumerated in sorted order.
// Unknown keys are rejected.
func Decode(raw map[string]any) (*domain.Config, error) {
	var rc rawConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &rc,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &domain.Config{
		Initial: rc.Initial,
		States:  domain.NewStateTable(rc.States),
	}, nil
}
