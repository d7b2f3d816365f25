// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido commands for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/toolchain"
)

const placeholderURI = "raido://placeholders"

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp *server.MCPServer
	svc *toolchain.Service
}

// New creates a new MCP server with all Raido tools registered.
func New(svc *toolchain.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_commands",
		mcp.WithDescription("List the toolchain commands of the loaded IDE configuration, "+
			"with the artifact each one requires and its arguments."),
	), s.listCommands)

	s.mcp.AddTool(mcp.NewTool("run_command",
		mcp.WithDescription("Run a toolchain command against the active design. "+
			"The required artifact is regenerated, configured files are written and "+
			"the external tool is started without waiting for it to finish."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Command name as returned by list_commands")),
		mcp.WithBoolean("interactive", mcp.Description("Attach the process to the server's terminal")),
	), s.runCommand)

	s.mcp.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("List recent command executions, newest first."),
		mcp.WithString("command", mcp.Description("Optional command name filter")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of executions (default 50)")),
	), s.getHistory)

	s.mcp.AddTool(mcp.NewTool("get_placeholder_reference",
		mcp.WithDescription("Returns the placeholder reference for command arguments and file "+
			"templates. Read it before editing an IDE configuration."),
	), s.getPlaceholderReference)

	s.mcp.AddResource(
		mcp.NewResource(placeholderURI, "Placeholder Reference",
			mcp.WithResourceDescription("Placeholder syntax and names available to toolchain commands."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPlaceholderResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listCommands(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"ide":      s.svc.Name(),
		"commands": s.svc.Commands(),
	})
}

func (s *Server) runCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Run(ctx, name, req.GetBool("interactive", false))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown command: %s", name)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", name, err)), nil
	}
	return jsonResult(rec)
}

func (s *Server) getHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}
	recs, err := s.svc.History(ctx, req.GetString("command", ""), limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(recs) == 0 {
		return mcp.NewToolResultText("no executions recorded"), nil
	}
	return jsonResult(recs)
}

func (s *Server) getPlaceholderReference(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PlaceholderReference), nil
}

func (s *Server) readPlaceholderResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      placeholderURI,
			MIMEType: "text/markdown",
			Text:     PlaceholderReference,
		},
	}, nil
}
