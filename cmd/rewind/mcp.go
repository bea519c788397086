package main

import (
	"fmt"

	"github.com/aretw0/rewind/internal/cli"
	mcpadapter "github.com/aretw0/rewind/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp <file>",
	Short: "Start the MCP server",
	Long: `Exposes machine sessions as Model Context Protocol tools, over stdio by
default or over SSE with --transport sse.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(args[0])
		if err != nil {
			return err
		}

		rt, err := newApp(cmd, cfg)
		if err != nil {
			return err
		}
		defer rt.backend.Close()

		server := mcpadapter.NewServer(rt.sessions, mcpadapter.WithLogger(rt.logger))

		transport, _ := cmd.Flags().GetString("transport")
		switch transport {
		case "stdio":
			return server.ServeStdio()
		case "sse":
			port, _ := cmd.Flags().GetInt("port")
			sc := cli.NewSignalContext(cmd.Context())
			defer sc.Cancel()
			return server.ServeSSE(sc, port)
		default:
			return fmt.Errorf("unknown transport %q (use stdio or sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("transport", "t", "stdio", "Transport: stdio or sse")
	mcpCmd.Flags().IntP("port", "p", 8080, "Port for the SSE transport")
}
