package cli

import (
	"fmt"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/schema"
)

// LoadConfig reads and fully validates a configuration file.
func LoadConfig(path string) (*domain.Config, error) {
	cfg, err := schema.Load(path)
	if err != nil {
		return nil, err
	}
	if err := schema.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}
