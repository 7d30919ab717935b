package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/solace/internal/profile"
)

// MCPAssistant is the part of the assessment service the chat assistant
// may call.
type MCPAssistant interface {
	RecordChat(ctx context.Context, username, message string) error
	MarkCompleted(ctx context.Context, username, id string, done bool) error
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profiles  Profiles
	Assistant MCPAssistant
}

// NewMCPServer creates an MCP server with the profile tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"solace",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("solace: read and update a user's wellness profile (chat history, suggestions, completion)."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_profile",
			mcp.WithDescription("Return the user's full profile record as JSON."),
			mcp.WithString("username", mcp.Description("Profile owner"), mcp.Required()),
		),
		mcpGetProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("record_chat",
			mcp.WithDescription("Append a message to the user's chat history."),
			mcp.WithString("username", mcp.Description("Profile owner"), mcp.Required()),
			mcp.WithString("message", mcp.Description("Message text"), mcp.Required()),
		),
		mcpRecordChat(deps),
	)

	s.AddTool(
		mcp.NewTool("mark_completed",
			mcp.WithDescription("Mark a suggestion as completed or not completed."),
			mcp.WithString("username", mcp.Description("Profile owner"), mcp.Required()),
			mcp.WithString("id", mcp.Description("Suggestion id"), mcp.Required()),
			mcp.WithBoolean("done", mcp.Description("Completion state (default true)")),
		),
		mcpMarkCompleted(deps),
	)

	s.AddTool(
		mcp.NewTool("patch_profile",
			mcp.WithDescription("Merge fields into the user's profile. Only chatHistory, suggestions, dashboardData, taglines and completedItems are accepted."),
			mcp.WithString("username", mcp.Description("Profile owner"), mcp.Required()),
			mcp.WithString("updates", mcp.Description("JSON object with the fields to replace"), mcp.Required()),
		),
		mcpPatchProfile(deps),
	)

	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"user://{username}/summary",
			"Profile Summary",
			mcp.WithTemplateDescription("Short plain-text summary of a user's affirmation, progress and taglines"),
			mcp.WithTemplateMIMEType("text/plain"),
		),
		mcpResourceSummary(deps),
	)

	return s
}

func mcpGetProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username, err := req.RequireString("username")
		if err != nil {
			return mcpError("username is required"), nil
		}

		rec, ok := deps.Profiles.Get(ctx, username)
		if !ok {
			return mcpError(fmt.Sprintf("no profile for %q", username)), nil
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal profile: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRecordChat(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username, err := req.RequireString("username")
		if err != nil {
			return mcpError("username is required"), nil
		}
		message, err := req.RequireString("message")
		if err != nil || strings.TrimSpace(message) == "" {
			return mcpError("message is required"), nil
		}

		if err := deps.Assistant.RecordChat(ctx, username, message); err != nil {
			return mcpError(fmt.Sprintf("failed to record chat: %v", err)), nil
		}
		return mcpText("Recorded"), nil
	}
}

func mcpMarkCompleted(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username, err := req.RequireString("username")
		if err != nil {
			return mcpError("username is required"), nil
		}
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}
		done := req.GetBool("done", true)

		if err := deps.Assistant.MarkCompleted(ctx, username, id, done); err != nil {
			return mcpError(fmt.Sprintf("failed to update completion: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Suggestion %s completed=%t", id, done)), nil
	}
}

func mcpPatchProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username, err := req.RequireString("username")
		if err != nil {
			return mcpError("username is required"), nil
		}
		raw, err := req.RequireString("updates")
		if err != nil {
			return mcpError("updates is required"), nil
		}

		var patch profile.Patch
		if err := json.Unmarshal([]byte(raw), &patch); err != nil {
			return mcpError(fmt.Sprintf("invalid updates JSON: %v", err)), nil
		}
		if patch.Empty() {
			return mcpError("updates contains no known fields"), nil
		}
		if !deps.Profiles.Patch(ctx, username, patch) {
			return mcpError(fmt.Sprintf("failed to update %q", username)), nil
		}
		return mcpText("Updated"), nil
	}
}

// usernameFromSummaryURI extracts the username from user://{username}/summary.
func usernameFromSummaryURI(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, "user://")
	if !ok {
		return "", false
	}
	name, ok := strings.CutSuffix(rest, "/summary")
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

func mcpResourceSummary(deps MCPDeps) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		username, ok := usernameFromSummaryURI(req.Params.URI)
		if !ok {
			return nil, fmt.Errorf("unsupported resource URI %q", req.Params.URI)
		}
		rec, ok := deps.Profiles.Get(ctx, username)
		if !ok {
			return nil, fmt.Errorf("no profile for %q", username)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/plain",
				Text:     profile.Summarize(rec),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
