package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opsdeck/opsdeck/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter opsdeck.yaml",
	Long: `Write a starter opsdeck.yaml to the current directory.

The generated file carries the default values plus an example alert rule.
Fill in auth.token_secret (and ai.api_key for AI analysis) before
deploying.

Examples:
  opsdeck init
  opsdeck init --force   # overwrite an existing opsdeck.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing opsdeck.yaml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	const path = "opsdeck.yaml"

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	cfg := starterConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal starter config: %w", err)
	}

	header := []byte(`# opsdeck configuration.
# Values can be overridden with OPSDECK_* environment variables,
# e.g. OPSDECK_SERVER_ADDR=:9090.
#
# Required before deploying:
#   auth.token_secret  - at least 32 random bytes
# Optional:
#   ai.api_key         - Groq API key for AI analysis
#   redis.addr         - shared store for multi-instance deployments
`)
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	return nil
}

// starterConfig returns the config written by "opsdeck init": defaults
// made explicit plus an example alert rule.
func starterConfig() *config.Config {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Alerts.Rules = []config.AlertRuleConfig{
		{
			Name:      "error spike",
			Condition: `level == "error" || level == "fatal"`,
			Severity:  "high",
		},
	}
	return cfg
}
