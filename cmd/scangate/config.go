package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dmid-labs/scangate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the configuration file without starting the server.
Checks syntax, required fields, credential entries, and the downstream
endpoint.`,
	RunE: runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigValidate(_ *cobra.Command, _ []string) error {
	configPath := cfgFile
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath == "" {
		return fmt.Errorf("no config file found; pass --config or create %s", defaultConfigFile)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("✗ Config validation failed: %s\n", err)
		return err
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("✗ Config validation failed: %s\n", err)
		return err
	}

	fmt.Printf("✓ %s is valid\n", configPath)

	return nil
}

// findConfigFile searches for the config file in default locations.
func findConfigFile() string {
	// Check current directory
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	// Check ~/.config/scangate/
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		p := filepath.Join(home, ".config", "scangate", defaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
