package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deskops/ticket-desk/internal/domain"
)

// LoadColumns reads a YAML column mapping and fills unset entries from the
// defaults. An empty path returns the defaults.
func LoadColumns(path string) (domain.Columns, error) {
	if path == "" {
		return domain.DefaultColumns(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Columns{}, fmt.Errorf("read columns file: %w", err)
	}
	var cols domain.Columns
	if err := yaml.Unmarshal(raw, &cols); err != nil {
		return domain.Columns{}, fmt.Errorf("parse columns file %s: %w", path, err)
	}
	return cols.WithDefaults(), nil
}
