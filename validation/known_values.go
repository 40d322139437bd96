package validation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/lendingscope/config"
	"github.com/ethpandaops/lendingscope/types"
)

// LoadKnownValues reads reference parameters from a yaml file, or the
// embedded table when path is empty.
func LoadKnownValues(path string) (types.KnownValues, error) {
	data := []byte(config.KnownValuesYml)
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading known values file %v: %w", path, err)
		}
		data = fileData
	}

	known := types.KnownValues{}
	if err := yaml.Unmarshal(data, &known); err != nil {
		return nil, fmt.Errorf("error decoding known values: %w", err)
	}
	return known, nil
}
