// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes tenderwatch tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/tenderwatch/internal/apperr"
	"github.com/starford/tenderwatch/internal/noticeservice"
	"github.com/starford/tenderwatch/internal/seeds"
)

// SeedFormatURI is the resource URI of the seed format contract.
const SeedFormatURI = "tenderwatch://seed-format"

// Server wraps the MCP server with tenderwatch tools.
type Server struct {
	mcp *server.MCPServer
	svc *noticeservice.Service
}

// New creates a new MCP server with all tenderwatch tools registered.
func New(svc *noticeservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Tenderwatch",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notices",
		mcp.WithDescription("Full-text search through archived procurement notices, including expired ones."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchNotices)

	s.mcp.AddTool(mcp.NewTool("list_active",
		mcp.WithDescription("List notices whose submission deadline has not passed, labelled with the seed they match."),
		mcp.WithString("district", mcp.Description("Optional district filter")),
		mcp.WithString("seed", mcp.Description("Optional seed code; only notices that seed matches")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listActive)

	s.mcp.AddTool(mcp.NewTool("read_notice",
		mcp.WithDescription("Read every extracted field of an active notice, including the full announcement text."),
		mcp.WithString("link", mcp.Required(), mcp.Description("Notice link as returned by list_active")),
	), s.readNotice)

	s.mcp.AddTool(mcp.NewTool("match_notice",
		mcp.WithDescription("Report which seed, if any, an active notice matches first."),
		mcp.WithString("link", mcp.Required(), mcp.Description("Notice link")),
	), s.matchNotice)

	s.mcp.AddTool(mcp.NewTool("list_seeds",
		mcp.WithDescription("List saved seeds, optionally filtered by a term found in code, name, district or tags."),
		mcp.WithString("query", mcp.Description("Optional search term")),
	), s.listSeeds)

	s.mcp.AddTool(mcp.NewTool("add_seed",
		mcp.WithDescription("Create a seed. Read the seed format first via get_seed_format "+
			"or the "+SeedFormatURI+" resource. A seed with no district and no tags matches everything."),
		mcp.WithString("code", mcp.Description("Unique code; generated when omitted")),
		mcp.WithString("name", mcp.Description("Display label; derived from the tags when omitted")),
		mcp.WithString("district", mcp.Description("Exact district, case-insensitive")),
		mcp.WithArray("title_tags", mcp.WithStringItems(), mcp.Description("Terms of which one must appear in the title")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Terms of which one must appear in the notice text")),
	), s.addSeed)

	s.mcp.AddTool(mcp.NewTool("remove_seed",
		mcp.WithDescription("Delete a seed by code."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Seed code")),
	), s.removeSeed)

	s.mcp.AddTool(mcp.NewTool("get_seed_format",
		mcp.WithDescription("Returns the seed format and matching rules. "+
			"Call this before creating seeds."),
	), s.getSeedFormat)

	s.mcp.AddResource(
		mcp.NewResource(SeedFormatURI, "Seed Format",
			mcp.WithResourceDescription("Seed fields and how seeds match procurement notices."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSeedFormatResource,
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

func errorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError("already exists: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchNotices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return errorResult(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no notices found"), nil
	}
	return jsonResult(results)
}

func (s *Server) listActive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.svc.ListActive(ctx, noticeservice.ActiveQuery{
		District: req.GetString("district", ""),
		Seed:     req.GetString("seed", ""),
		Limit:    req.GetInt("limit", 0),
		Offset:   req.GetInt("offset", 0),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(map[string]any{
		"notices": noticeservice.Summaries(page.Notices),
		"total":   page.Total,
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}

func (s *Server) readNotice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	link, err := req.RequireString("link")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.GetActive(ctx, link)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(n)
}

func (s *Server) matchNotice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	link, err := req.RequireString("link")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.svc.MatchNotice(ctx, link)
	if err != nil {
		return errorResult(err), nil
	}
	if !m.Matched {
		return mcp.NewToolResultText(fmt.Sprintf("no seed matches %s", link)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s matches seed %s (%s)", link, m.Seed.Code, m.Seed.Label())), nil
}

func (s *Server) listSeeds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.SearchSeeds(ctx, req.GetString("query", ""))
	if err != nil {
		return errorResult(err), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("no seeds found"), nil
	}
	return jsonResult(list)
}

func (s *Server) addSeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seed, err := s.svc.AddSeed(ctx, seeds.Input{
		Code:      req.GetString("code", ""),
		Name:      req.GetString("name", ""),
		District:  req.GetString("district", ""),
		TitleTags: req.GetStringSlice("title_tags", nil),
		Tags:      req.GetStringSlice("tags", nil),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(seed)
}

func (s *Server) removeSeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.RemoveSeed(ctx, code); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", code)), nil
}

func (s *Server) getSeedFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SeedFormatContract), nil
}

func (s *Server) readSeedFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SeedFormatURI,
			MIMEType: "text/markdown",
			Text:     SeedFormatContract,
		},
	}, nil
}
