package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/blndgs/guardian"
	"github.com/blndgs/guardian/plugin"
)

func (c *cli) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the Guardian agent tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(func(client *guardian.Client) error {
				c.logger.Info().Str("account", client.Account().Hex()).Msg("serving MCP on stdio")
				return server.ServeStdio(plugin.NewServer(client, "guardian", version))
			})
		},
	}
}
