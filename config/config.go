package config

import (
	"os"
	"strconv"
)

// RegistryConfig holds configuration for release registries
type RegistryConfig struct {
	// Number of release actions preallocated per registry
	InitialCapacity int

	// Report registries that are garbage collected with pending releases
	LeakCheck bool
}

// DefaultRegistryConfig returns the default registry configuration
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		InitialCapacity: 4,
		LeakCheck:       true,
	}
}

// LoadRegistryConfig loads configuration from environment variables
func LoadRegistryConfig() RegistryConfig {
	config := DefaultRegistryConfig()

	if capStr := os.Getenv("REGISTRY_INITIAL_CAPACITY"); capStr != "" {
		if n, err := strconv.Atoi(capStr); err == nil && n >= 0 {
			config.InitialCapacity = n
		}
	}

	if leakStr := os.Getenv("REGISTRY_LEAK_CHECK"); leakStr != "" {
		if enabled, err := strconv.ParseBool(leakStr); err == nil {
			config.LeakCheck = enabled
		}
	}

	return config
}
