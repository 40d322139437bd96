package utils

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/lendingscope/config"
	"github.com/ethpandaops/lendingscope/types"
)

// Config is the globally accessible configuration
var Config *types.Config

// ReadConfig will process a configuration
func ReadConfig(cfg *types.Config, path string) error {
	err := readConfigFile(cfg, path)
	if err != nil {
		return err
	}

	err = readConfigEnv(cfg)
	if err != nil {
		return fmt.Errorf("error reading config from environment: %w", err)
	}

	networks, err := readNetworks(cfg.NetworksPath)
	if err != nil {
		return err
	}
	cfg.Networks, err = mergeNetworks(networks, cfg.Networks)
	if err != nil {
		return err
	}
	if len(cfg.Networks) == 0 {
		return fmt.Errorf("no networks configured")
	}

	activeCount := 0
	for _, network := range cfg.Networks {
		if network.IsActive() {
			activeCount++
		}
	}

	log.WithFields(log.Fields{
		"networks":       len(cfg.Networks),
		"activeNetworks": activeCount,
		"maxRetries":     cfg.Rpc.MaxRetries,
		"workers":        cfg.Fetcher.Workers,
	}).Infof("did init config")

	return nil
}

func readConfigFile(cfg *types.Config, path string) error {
	err := yaml.Unmarshal([]byte(config.DefaultConfigYml), cfg)
	if err != nil {
		return fmt.Errorf("error decoding default config: %v", err)
	}
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening config file %v: %v", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		return fmt.Errorf("error decoding config file %v: %v", path, err)
	}

	return nil
}

func readConfigEnv(cfg *types.Config) error {
	return envconfig.Process("", cfg)
}

// readNetworks loads the network table from path, or the embedded table.
func readNetworks(path string) (map[string]*types.NetworkConfig, error) {
	networks := map[string]*types.NetworkConfig{}
	if path == "" {
		if err := yaml.Unmarshal([]byte(config.NetworksYml), &networks); err != nil {
			return nil, fmt.Errorf("error decoding embedded networks: %v", err)
		}
		return networks, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening networks file %v: %v", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&networks); err != nil {
		return nil, fmt.Errorf("error decoding networks file %v: %v", path, err)
	}
	return networks, nil
}

// mergeNetworks applies per network overrides from the main config on top of
// the network table. Unknown keys add new networks.
func mergeNetworks(base, overrides map[string]*types.NetworkConfig) (map[string]*types.NetworkConfig, error) {
	for key, override := range overrides {
		if override == nil {
			continue
		}
		current := base[key]
		if current == nil {
			base[key] = override
			continue
		}

		if err := mergo.Merge(current, override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("error merging network %v: %v", key, err)
		}
		// mergo skips false values, so the active flag is copied explicitly
		if override.Active != nil {
			active := *override.Active
			current.Active = &active
		}
	}
	return base, nil
}
