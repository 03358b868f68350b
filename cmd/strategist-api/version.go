package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"example.com/strategist/internal/config"
)

var build = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", config.ServiceName, config.Version, build)
		},
	}
}
