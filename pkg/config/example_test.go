package config_test

import (
	"fmt"

	"github.com/wonny/vaxtrack/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Environment: %s\n", cfg.Env)
	fmt.Printf("Dataset: %s\n", cfg.Dataset.URL)
	fmt.Printf("Artefacts: %s\n", cfg.Output.Dir)
	fmt.Printf("Persistence enabled: %v\n", cfg.Database.Enabled())
}
