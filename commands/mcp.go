package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	advisormcp "grant_proposal_advisor/mcpserver"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs the advisor as an MCP (Model Context Protocol) server on stdio. The
process holds a single review session for its lifetime.`,
		Example: `  # claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "grant-advisor": {
  #       "command": "advisor",
  #       "args": ["mcp", "--quiet"]
  #     }
  #   }
  # }`,
		RunE: runMCP,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	st, err := loadStack()
	if err != nil {
		return err
	}
	defer st.log.Sync()

	engine, err := st.newEngine()
	if err != nil {
		return err
	}
	server := mcpserver.NewMCPServer("Grant Proposal Advisor", versionInfo.Version)
	advisormcp.RegisterTools(server, engine, st.log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st.log.Info("mcp server starting on stdio")
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		st.log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}
