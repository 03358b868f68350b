package main

import (
	"os"

	"github.com/spf13/cobra"

	"example.com/strategist/internal/config"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "strategist-api",
		Short: "Social media strategy generation service",
		Long: `strategist-api runs the Strategist Agent API.

Commands:
  strategist-api           Run the HTTP server (default)
  strategist-api generate  Generate one strategy and print it as JSON
  strategist-api token     Issue a signed token for a user
  strategist-api version   Print the version`,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_FILE"),
		"Path to a YAML config file (env vars override it)")

	cmd.AddCommand(
		newServeCmd(opts),
		newGenerateCmd(opts),
		newTokenCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.configPath)
}
