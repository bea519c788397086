package main

import (
	"fmt"

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/internal/cli"
	"github.com/aretw0/rewind/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var statesCmd = &cobra.Command{
	Use:   "states <file>",
	Short: "List configured states in declaration order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(args[0])
		if err != nil {
			return err
		}
		m, err := rewind.New(cfg)
		if err != nil {
			return err
		}

		event, _ := cmd.Flags().GetString("event")
		for _, name := range m.States(event) {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Describe every state and transition as a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(args[0])
		if err != nil {
			return err
		}
		return tui.WriteMarkdown(cmd.OutOrStdout(), tui.ConfigMarkdown(args[0], cfg))
	},
}

func init() {
	rootCmd.AddCommand(statesCmd)
	rootCmd.AddCommand(inspectCmd)
	statesCmd.Flags().StringP("event", "e", "", "Only list states that accept this event")
}
