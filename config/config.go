package config

import (
	_ "embed"
)

// default settings
//
//go:embed default.config.yml
var DefaultConfigYml string

// aave v3 deployments
//
//go:embed networks.yml
var NetworksYml string

// reference reserve parameters
//
//go:embed known_values.yml
var KnownValuesYml string
