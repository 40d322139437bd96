package utils

import (
	"sort"

	"github.com/ethpandaops/lendingscope/types"
)

// NetworkKeys returns the sorted keys of the configured networks.
func NetworkKeys(networks map[string]*types.NetworkConfig, activeOnly bool) []string {
	keys := make([]string, 0, len(networks))
	for key, network := range networks {
		if activeOnly && !network.IsActive() {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// NetworkByChainID finds a network by its chain id.
func NetworkByChainID(networks map[string]*types.NetworkConfig, chainID uint64) (string, *types.NetworkConfig) {
	for _, key := range NetworkKeys(networks, false) {
		if networks[key].ChainID == chainID {
			return key, networks[key]
		}
	}
	return "", nil
}
