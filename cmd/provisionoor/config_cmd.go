package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/provisionoor/pkg/config"
)

const redacted = "<redacted>"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging the config file, PROVISIONOOR_*
environment overrides and the CI output variables. Secrets are redacted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := renderConfig(cfg)
		if err != nil {
			return err
		}

		_, err = cmd.OutOrStdout().Write(out)

		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// renderConfig marshals c as YAML with credentials masked.
func renderConfig(c *config.Config) ([]byte, error) {
	masked := *c

	if masked.Publish.S3.SecretAccessKey != "" {
		masked.Publish.S3.SecretAccessKey = redacted
	}

	if masked.Publish.S3.AccessKeyID != "" {
		masked.Publish.S3.AccessKeyID = redacted
	}

	out, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}

	return out, nil
}
