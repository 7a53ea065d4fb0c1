// Package main is the entry point for scangate.
package main

import (
	"context"
	"os"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const (
	defaultConfigFile = "config.yaml"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "scangate",
	Short: "Authenticating gateway for AI code scanning",
	Long: `scangate sits between callers and a downstream AI code-scan API.
It authenticates each request (static API keys or bearer tokens obtained
through a username/password exchange), forwards the scan payload
downstream, and translates downstream failures into a stable caller
contract.`,
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/scangate/"+defaultConfigFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
