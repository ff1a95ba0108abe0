// Package mcp exposes the caller's journal and vocal notes as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"storyia/internal/auth"
	"storyia/internal/models"
	"storyia/internal/store"
)

// Server holds the store the tools read from.
type Server struct {
	store store.Store
}

func NewMCPServer(s store.Store) *Server {
	return &Server{store: s}
}

func dateRange(request mcp.CallToolRequest) (time.Time, time.Time, *mcp.CallToolResult) {
	startDateStr, err := request.RequireString("start_date")
	if err != nil {
		return time.Time{}, time.Time{}, mcp.NewToolResultError("start_date is required")
	}
	endDateStr, err := request.RequireString("end_date")
	if err != nil {
		return time.Time{}, time.Time{}, mcp.NewToolResultError("end_date is required")
	}

	start, err := time.Parse(time.RFC3339, startDateStr)
	if err != nil {
		return time.Time{}, time.Time{}, mcp.NewToolResultError(fmt.Sprintf("invalid start_date: %v", err))
	}
	end, err := time.Parse(time.RFC3339, endDateStr)
	if err != nil {
		return time.Time{}, time.Time{}, mcp.NewToolResultError(fmt.Sprintf("invalid end_date: %v", err))
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, mcp.NewToolResultError("end_date is before start_date")
	}
	return start, end, nil
}

func (s *Server) getJournalEntriesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}
	start, end, bad := dateRange(request)
	if bad != nil {
		return bad, nil
	}

	entries, err := s.store.ListEntriesBetween(ctx, userID, start.Format(time.DateOnly), end.Format(time.DateOnly))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("database error: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No journal entries found for this time range."), nil
	}

	var lines []string
	for _, e := range entries {
		lines = append(lines, formatEntry(e))
	}
	return mcp.NewToolResultText(fmt.Sprintf("Found %d journal entries:\n%s", len(entries), strings.Join(lines, "\n"))), nil
}

func formatEntry(e models.JournalEntry) string {
	line := fmt.Sprintf("[%s] %s", e.EntryDate, e.Title)
	if e.Mood != "" {
		line += fmt.Sprintf(" (mood: %s)", e.Mood)
	}
	if len(e.Tags) > 0 {
		line += " #" + strings.Join(e.Tags, " #")
	}
	if e.Content != "" {
		line += ": " + e.Content
	}
	return line
}

func (s *Server) getVocalNotesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("not authenticated"), nil
	}
	start, end, bad := dateRange(request)
	if bad != nil {
		return bad, nil
	}

	notes, err := s.store.ListVocalsBetween(ctx, userID, start, end)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("database error: %v", err)), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("No vocal notes found for this time range."), nil
	}

	var lines []string
	for _, v := range notes {
		text := "(not transcribed)"
		if v.HasTranscription() {
			text = *v.Transcription
		}
		line := fmt.Sprintf("[%s] %s", v.CreatedAt.Format(time.RFC3339), text)
		if v.Sentiment != nil {
			line += fmt.Sprintf(" (sentiment: %s)", *v.Sentiment)
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Found %d vocal notes:\n%s", len(notes), strings.Join(lines, "\n"))), nil
}

func rangeTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("start_date", mcp.Required(), mcp.Description("Start of the time range (RFC3339), e.g. 2023-01-01T00:00:00Z")),
		mcp.WithString("end_date", mcp.Required(), mcp.Description("End of the time range (RFC3339), e.g. 2023-12-31T23:59:59Z")),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Handler returns the streamable HTTP endpoint. It expects the auth
// middleware to have put the caller's user ID on the request context.
func (s *Server) Handler() *server.StreamableHTTPServer {
	mcpServer := server.NewMCPServer("StoryIA", "1.0.0")

	mcpServer.AddTool(rangeTool("get_journal_entries",
		"Retrieve the caller's journal entries dated within a time range."), s.getJournalEntriesHandler)
	mcpServer.AddTool(rangeTool("get_vocal_notes",
		"Retrieve the caller's vocal notes recorded within a time range, with transcription and sentiment when available."), s.getVocalNotesHandler)

	return server.NewStreamableHTTPServer(mcpServer, server.WithStateLess(true))
}
