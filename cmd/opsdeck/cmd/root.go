// Package cmd provides the CLI commands for opsdeck.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "opsdeck",
	Short: "OpsDeck - DevOps monitoring dashboard",
	Long: `OpsDeck is a monitoring dashboard backend for small DevOps teams.

It tracks services, incidents, deployments, and application logs behind a
JSON REST API with token auth, Redis-backed rate limiting and caching, an
optional AI analysis assistant, and an MCP server for AI copilots.

Quick start:
  1. Create a config file: opsdeck init
  2. Start the server:     opsdeck serve

Configuration:
  Config is loaded from opsdeck.yaml in the current directory,
  $HOME/.opsdeck/, or /etc/opsdeck/.

  Environment variables override config values with the OPSDECK_ prefix.
  Example: OPSDECK_SERVER_ADDR=:9090

Commands:
  serve           Start the API server
  stop            Stop the running server
  mcp             Serve dashboard data over MCP on stdio
  init            Write a starter opsdeck.yaml
  hash-password   Hash a password for manual account provisioning
  version         Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./opsdeck.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
