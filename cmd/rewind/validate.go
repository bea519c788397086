package main

import (
	"fmt"

	"github.com/aretw0/rewind/internal/cli"
	"github.com/aretw0/rewind/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a machine configuration for consistency",
	Long: `Parses the configuration, rejects unknown initial states and transitions to
undeclared states, and warns about states unreachable from the initial state.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(args[0])
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		out := cmd.OutOrStdout()
		report := validator.Analyze(cfg)
		for _, w := range report.Warnings() {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		fmt.Fprintf(out, "Machine is valid! ✅ (%d states, %d reachable)\n", cfg.States.Len(), len(report.Reachable))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
