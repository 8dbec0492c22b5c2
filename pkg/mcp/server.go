// Package mcp exposes the graph engine to collaborating agents over the
// Model Context Protocol. Tools issue the same high-level requests the
// embedded UI issues; none of them await animation or reload completion.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/deckerd451/innovation-engine-sub000/pkg/engine"
	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
)

// Server adapts a live engine to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	engine    *engine.Engine
}

// NewServer creates a new MCP server instance around the engine.
func NewServer(e *engine.Engine) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"graphview",
			"1.0.0",
		),
		engine: e,
	}
	s.registerResources()
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// graphview://stats
	s.mcpServer.AddResource(mcp.NewResource(
		"graphview://stats",
		"Community Graph Statistics",
		mcp.WithResourceDescription("Node counts by kind, edge count and the viewer's accepted connections"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadStats)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"focus_node",
		mcp.WithDescription("Center the view on a node and dim unrelated ones. Unknown ids fall back to the viewer's own node."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("The node to focus")),
		mcp.WithNumber("zoom", mcp.Description("Camera zoom override (default 1.35)")),
	), s.handleFocusNode)

	s.mcpServer.AddTool(mcp.NewTool(
		"focus_theme",
		mcp.WithDescription("Center the view on a theme region. Accepts bare or prefixed theme ids."),
		mcp.WithString("theme_id", mcp.Required(), mcp.Description("The theme to focus")),
	), s.handleFocusTheme)

	s.mcpServer.AddTool(mcp.NewTool(
		"show_activity",
		mcp.WithDescription("Clear any focus and zoom out to show the whole community"),
	), s.handleShowActivity)

	s.mcpServer.AddTool(mcp.NewTool(
		"filter_category",
		mcp.WithDescription("Dim everything that does not match a node kind or tag. Empty category clears the filter."),
		mcp.WithString("category", mcp.Description("Node kind (person, project, theme, organization) or a member tag")),
	), s.handleFilterCategory)

	s.mcpServer.AddTool(mcp.NewTool(
		"set_display_mode",
		mcp.WithDescription("Switch between the viewer's network ('focused') and everyone ('full')"),
		mcp.WithString("mode", mcp.Required(), mcp.Description("'focused' or 'full'")),
	), s.handleSetDisplayMode)

	s.mcpServer.AddTool(mcp.NewTool(
		"refresh",
		mcp.WithDescription("Force an immediate data reload, bypassing the realtime cooldown"),
	), s.handleRefresh)
}

// --- Handlers ---

func (s *Server) handleReadStats(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats := s.engine.GetStats()

	payload := struct {
		NodeCounts      map[string]int `json:"node_counts"`
		EdgeCount       int            `json:"edge_count"`
		ConnectionCount int            `json:"accepted_connection_count"`
	}{
		NodeCounts:      make(map[string]int, len(stats.NodeCounts)),
		EdgeCount:       stats.EdgeCount,
		ConnectionCount: stats.CurrentUserConnectionCount,
	}
	for kind, n := range stats.NodeCounts {
		payload.NodeCounts[string(kind)] = n
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleFocusNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID := mcp.ParseString(request, "node_id", "")
	if nodeID == "" {
		return mcp.NewToolResultError("node_id is required"), nil
	}
	zoom := mcp.ParseFloat64(request, "zoom", 0)

	var opts *engine.FocusOptions
	if zoom > 0 {
		opts = &engine.FocusOptions{Zoom: zoom}
	}
	s.engine.FocusNode(nodeID, opts)
	return mcp.NewToolResultText(fmt.Sprintf("Focus requested on %s", nodeID)), nil
}

func (s *Server) handleFocusTheme(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	themeID := mcp.ParseString(request, "theme_id", "")
	if themeID == "" {
		return mcp.NewToolResultError("theme_id is required"), nil
	}
	s.engine.FocusTheme(themeID)
	return mcp.NewToolResultText(fmt.Sprintf("Focus requested on %s", model.CanonicalThemeID(themeID))), nil
}

func (s *Server) handleShowActivity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.engine.ShowActivity()
	return mcp.NewToolResultText("Showing full community activity"), nil
}

func (s *Server) handleFilterCategory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := mcp.ParseString(request, "category", "")
	s.engine.FilterByCategory(category)
	if category == "" {
		return mcp.NewToolResultText("Category filter cleared"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Filtering by %q", category)), nil
}

func (s *Server) handleSetDisplayMode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode := mcp.ParseString(request, "mode", "")
	switch model.DisplayMode(mode) {
	case model.ModeFocused:
		s.engine.SetDisplayMode(model.ModeFocused)
	case model.ModeFullCommunity:
		s.engine.SetDisplayMode(model.ModeFullCommunity)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q (want 'focused' or 'full')", mode)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Display mode set to %s", mode)), nil
}

func (s *Server) handleRefresh(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.engine.Refresh()
	return mcp.NewToolResultText("Reload requested"), nil
}
