// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes BlueCheck inquiry tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bluecheck/inquiries/internal/apperr"
	"github.com/bluecheck/inquiries/internal/inquiry"
	"github.com/bluecheck/inquiries/internal/models"
)

const statusesURI = "bluecheck://inquiry-statuses"

// Server wraps the MCP server with inquiry tools.
type Server struct {
	mcp *server.MCPServer
	svc *inquiry.Service
}

// New creates a new MCP server with all inquiry tools registered.
func New(svc *inquiry.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"BlueCheck Inquiries",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_inquiries",
		mcp.WithDescription("List contact inquiries, newest first."),
		mcp.WithString("status",
			mcp.Description("Optional status filter"),
			mcp.Enum(statusNames()...)),
		mcp.WithNumber("limit", mcp.Description("Max results (default 50, max 1000)")),
	), s.listInquiries)

	s.mcp.AddTool(mcp.NewTool("get_inquiry",
		mcp.WithDescription("Fetch a single inquiry by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Inquiry id")),
	), s.getInquiry)

	s.mcp.AddTool(mcp.NewTool("update_inquiry_status",
		mcp.WithDescription("Change an inquiry's status. Read the "+statusesURI+" resource for what each status means."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Inquiry id")),
		mcp.WithString("status", mcp.Required(), mcp.Enum(statusNames()...)),
	), s.updateInquiryStatus)

	s.mcp.AddTool(mcp.NewTool("inquiry_stats",
		mcp.WithDescription("Counts by status and inspection type, plus inquiries from the last 7 days."),
	), s.inquiryStats)

	s.mcp.AddResource(
		mcp.NewResource(statusesURI, "Inquiry Statuses",
			mcp.WithResourceDescription("Inquiry status workflow and inspection types."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readStatusesResource,
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

func statusNames() []string {
	out := make([]string, 0, len(models.Statuses()))
	for _, st := range models.Statuses() {
		out = append(out, string(st))
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError turns service errors into tool-level errors the model can read.
func toolError(err error) *mcp.CallToolResult {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		return mcp.NewToolResultError(verr.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("inquiry not found")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) listInquiries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status *models.Status
	if raw := req.GetString("status", ""); raw != "" {
		st, ok := models.ParseStatus(raw)
		if !ok {
			return mcp.NewToolResultError("status must be one of: " + models.StatusList()), nil
		}
		status = &st
	}
	items, err := s.svc.List(ctx, status, req.GetInt("limit", 0))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(items)
}

func (s *Server) getInquiry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	inq, err := s.svc.Get(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(inq)
}

func (s *Server) updateInquiryStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.UpdateStatus(ctx, id, models.Status(status))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", id, res.Message)), nil
}

func (s *Server) inquiryStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(stats)
}

func (s *Server) readStatusesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      statusesURI,
			MIMEType: "text/markdown",
			Text:     StatusWorkflow,
		},
	}, nil
}
