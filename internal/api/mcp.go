// Package api exposes a workspace to MCP clients over stdio.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/catalog"
	"github.com/ArnabNath1/ArnabUniGuide/internal/workspace"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Workspace *workspace.Workspace
	Version   string
}

// NewMCPServer creates an MCP server with all uniguide tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"uniguide",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("uniguide: study-abroad profile, university shortlist, application checklist and AI counsellor for the signed-in student."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("get_profile",
			mcp.WithDescription("Return the student's saved profile as JSON."),
		),
		mcpGetProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("set_profile_field",
			mcp.WithDescription("Change one profile field and save the profile."),
			mcp.WithString("field", mcp.Description("Field name, e.g. gpa, target_country or test_scores.ielts"), mcp.Required()),
			mcp.WithString("value", mcp.Description("New value; empty clears the field")),
		),
		mcpSetProfileField(deps),
	)

	s.AddTool(
		mcp.NewTool("toggle_shortlist",
			mcp.WithDescription("Add a university to the shortlist, or remove it if already shortlisted."),
			mcp.WithString("university", mcp.Description("University name"), mcp.Required()),
		),
		mcpToggleShortlist(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_checklist",
			mcp.WithDescription("Generate an application checklist and save it to the profile. Completed tasks with unchanged labels stay completed."),
			mcp.WithArray("universities", mcp.Description("Universities to plan for (default: the shortlist)"), mcp.WithStringItems()),
			mcp.WithString("country", mcp.Description("Target country (default: the profile's)")),
		),
		mcpGenerateChecklist(deps),
	)

	s.AddTool(
		mcp.NewTool("toggle_task",
			mcp.WithDescription("Flip the completion of one checklist task."),
			mcp.WithString("university", mcp.Description("Checklist group, a university name or General"), mcp.Required()),
			mcp.WithNumber("index", mcp.Description("Zero-based task position within the group"), mcp.Required()),
		),
		mcpToggleTask(deps),
	)

	s.AddTool(
		mcp.NewTool("send_message",
			mcp.WithDescription("Ask the AI counsellor a question in the active chat session."),
			mcp.WithString("message", mcp.Description("The question"), mcp.Required()),
			mcp.WithBoolean("new_chat", mcp.Description("Start a new session before sending")),
		),
		mcpSendMessage(deps),
	)

	s.AddTool(
		mcp.NewTool("list_sessions",
			mcp.WithDescription("List past counsellor sessions, newest first."),
		),
		mcpListSessions(deps),
	)

	s.AddTool(
		mcp.NewTool("load_session",
			mcp.WithDescription("Make a past chat session active and return its messages."),
			mcp.WithString("session_id", mcp.Description("Session id from list_sessions"), mcp.Required()),
		),
		mcpLoadSession(deps),
	)

	s.AddTool(
		mcp.NewTool("search_universities",
			mcp.WithDescription("Search universities by name or country (at most 50 results)."),
			mcp.WithString("query", mcp.Description("Search text"), mcp.Required()),
		),
		mcpSearchUniversities(deps),
	)

	s.AddTool(
		mcp.NewTool("search_scholarships",
			mcp.WithDescription("Search scholarships. An empty query returns a curated default list."),
			mcp.WithString("query", mcp.Description("Search text")),
		),
		mcpSearchScholarships(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"user://profile",
			"Student Profile",
			mcp.WithResourceDescription("Current student profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"user://checklist",
			"Application Checklist",
			mcp.WithResourceDescription("Application checklist grouped by university"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceChecklist(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"user://sessions",
			"Chat Sessions",
			mcp.WithResourceDescription("Past counsellor sessions, newest first"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSessions(deps),
	)

	return s
}

func mcpGetProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := deps.Workspace.Profile.Get(ctx)
		if apperr.IsNotFound(err) {
			return mcpError(workspace.ErrOnboardingRequired.Error()), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}
		return mcpJSON(p)
	}
}

func mcpSetProfileField(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		field, err := req.RequireString("field")
		if err != nil {
			return mcpError("field is required"), nil
		}
		value := req.GetString("value", "")

		if _, err := deps.Workspace.SetField(ctx, field, value); err != nil {
			return mcpError(fmt.Sprintf("failed to set %s: %v", field, err)), nil
		}
		return mcpText(fmt.Sprintf("Set %s = %s", field, value)), nil
	}
}

func mcpToggleShortlist(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("university")
		if err != nil || strings.TrimSpace(name) == "" {
			return mcpError("university is required"), nil
		}

		added, err := deps.Workspace.ToggleShortlist(ctx, name)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to update shortlist: %v", err)), nil
		}
		if added {
			return mcpText(fmt.Sprintf("Added %s to the shortlist", name)), nil
		}
		return mcpText(fmt.Sprintf("Removed %s from the shortlist", name)), nil
	}
}

func mcpGenerateChecklist(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		unis := req.GetStringSlice("universities", nil)
		country := req.GetString("country", "")

		cl, err := deps.Workspace.GenerateChecklist(ctx, unis, country)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to generate checklist: %v", err)), nil
		}
		return mcpJSON(cl)
	}
}

func mcpToggleTask(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("university")
		if err != nil {
			return mcpError("university is required"), nil
		}
		index, err := req.RequireInt("index")
		if err != nil {
			return mcpError("index is required"), nil
		}

		done, err := deps.Workspace.ToggleTask(ctx, key, index)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to toggle task: %v", err)), nil
		}
		state := "not done"
		if done {
			state = "done"
		}
		return mcpText(fmt.Sprintf("%s task %d marked %s", key, index, state)), nil
	}
}

func mcpSendMessage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}
		if req.GetBool("new_chat", false) {
			deps.Workspace.Sessions.StartNewChat()
		}

		reply, err := deps.Workspace.Send(ctx, message)
		if err != nil {
			return mcpError(fmt.Sprintf("counsellor unavailable: %v", err)), nil
		}
		return mcpJSON(reply)
	}
}

func mcpListSessions(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := deps.Workspace.Sessions.ListSessions(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list sessions: %v", err)), nil
		}
		if len(list) == 0 {
			return mcpText("[]"), nil
		}
		return mcpJSON(list)
	}
}

func mcpLoadSession(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		msgs, err := deps.Workspace.Sessions.LoadSession(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load session: %v", err)), nil
		}
		return mcpJSON(msgs)
	}
}

func mcpSearchUniversities(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		unis, err := deps.Workspace.Catalog.Universities(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("university search failed: %v", err)), nil
		}
		if len(unis) == 0 {
			return mcpText("[]"), nil
		}

		type uniResult struct {
			Name        string `json:"name"`
			Country     string `json:"country"`
			Website     string `json:"website,omitempty"`
			Domain      string `json:"domain,omitempty"`
			Shortlisted bool   `json:"shortlisted"`
		}
		var shortlisted func(string) bool
		if p, ok := deps.Workspace.Profile.Current(); ok {
			shortlisted = p.Shortlist.Contains
		}

		results := make([]uniResult, len(unis))
		for i, u := range unis {
			results[i] = uniResult{Name: u.Name, Country: u.Country, Website: u.Website(), Domain: u.Domain()}
			if shortlisted != nil {
				results[i].Shortlisted = shortlisted(u.Name)
			}
		}
		return mcpJSON(results)
	}
}

func mcpSearchScholarships(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")

		list, err := deps.Workspace.Catalog.Scholarships(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("scholarship search failed: %v", err)), nil
		}
		return mcpJSON(scholarshipResults(list))
	}
}

type scholarshipResult struct {
	Title       string `json:"title"`
	Amount      string `json:"amount,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

func scholarshipResults(list []catalog.Scholarship) []scholarshipResult {
	out := make([]scholarshipResult, len(list))
	for i, s := range list {
		out[i] = scholarshipResult{
			Title:       s.Title,
			Amount:      s.Amount,
			Deadline:    s.Deadline,
			Description: s.Summary(),
			Link:        s.URL(),
		}
	}
	return out
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, err := deps.Workspace.Profile.Get(ctx)
		if apperr.IsNotFound(err) {
			return nil, workspace.ErrOnboardingRequired
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}
		return jsonResource(req.Params.URI, p)
	}
}

func mcpResourceChecklist(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if !deps.Workspace.Onboarded() {
			return nil, workspace.ErrOnboardingRequired
		}
		return jsonResource(req.Params.URI, deps.Workspace.Checklist.View())
	}
}

func mcpResourceSessions(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list, err := deps.Workspace.Sessions.ListSessions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		return jsonResource(req.Params.URI, list)
	}
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
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

