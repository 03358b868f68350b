package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"example.com/strategist/internal/agent"
	"example.com/strategist/internal/domain"
	"example.com/strategist/internal/logger"
)

type generateOptions struct {
	brand    string
	industry string
	audience string
	goals    string
	userID   string
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one strategy with the configured agent and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			in, err := domain.NewStrategyInput(opts.brand, opts.industry, opts.audience, opts.goals)
			if err != nil {
				return err
			}
			userID := opts.userID
			if userID == "" {
				userID = cfg.DefaultUserID
			}
			strategist, err := agent.New(cfg.Agent, logger.Nop())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Agent.Timeout)
			defer cancel()
			out, err := strategist.GenerateStrategy(ctx, in)
			if err != nil {
				return err
			}
			rec, err := domain.NewStrategyRecord(userID, in, out, domain.SystemDefaults())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("encode strategy: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.brand, "brand", "", "Brand name")
	cmd.Flags().StringVar(&opts.industry, "industry", "", "Industry")
	cmd.Flags().StringVar(&opts.audience, "audience", "", "Target audience")
	cmd.Flags().StringVar(&opts.goals, "goals", "", "Marketing goals")
	cmd.Flags().StringVar(&opts.userID, "user", "", "User the strategy is generated for (default DEFAULT_USER_ID)")
	return cmd
}
