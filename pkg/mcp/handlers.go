package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/unowned-ai/quire/pkg/auth"
	"github.com/unowned-ai/quire/pkg/entries"
	"github.com/unowned-ai/quire/pkg/query"
)

const defaultPageSize = 20

// Tools holds the state shared by the tool handlers.
type Tools struct {
	svc      *query.Service
	auth     *auth.Authenticator
	owner    bool
	pageSize int
	log      *zap.Logger
}

// NewTools returns the entry tools backed by svc. With owner set every call is
// privileged; otherwise the access level comes from the optional "token" argument.
func NewTools(svc *query.Service, authenticator *auth.Authenticator, owner bool, pageSize int, log *zap.Logger) *Tools {
	if log == nil {
		log = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Tools{
		svc:      svc,
		auth:     authenticator,
		owner:    owner,
		pageSize: pageSize,
		log:      log.Named("mcp"),
	}
}

func tokenOption() mcp.ToolOption {
	return mcp.WithString("token", mcp.Description("Owner token from the login tool. Without it only published entries are visible."))
}

func pageOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries to return."), mcp.Min(1)),
		mcp.WithNumber("offset", mcp.Description("Number of entries to skip."), mcp.Min(0)),
	}
}

// Register adds every tool to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("ping",
		mcp.WithDescription("Responds with 'pong_quire' to check if the Quire MCP server is alive."),
	), t.ping)

	s.AddTool(mcp.NewTool("login",
		mcp.WithDescription("Exchanges the owner password for a token that unlocks drafts and write tools."),
		mcp.WithString("password", mcp.Required(), mcp.Description("The owner password.")),
	), t.login)

	s.AddTool(mcp.NewTool("list_entries", append([]mcp.ToolOption{
		mcp.WithDescription("Lists entries, newest first. Published entries by default; drafts for the owner when 'drafts' is true."),
		mcp.WithBoolean("drafts", mcp.Description("List drafts instead of published entries (owner only).")),
		tokenOption(),
	}, pageOptions()...)...), t.listEntries)

	s.AddTool(mcp.NewTool("search_entries", append([]mcp.ToolOption{
		mcp.WithDescription("Full-text search over entry titles and content, most relevant first. Every term must match."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Whitespace-separated search terms.")),
		tokenOption(),
	}, pageOptions()...)...), t.searchEntries)

	s.AddTool(mcp.NewTool("get_entry",
		mcp.WithDescription("Retrieves an entry by its slug."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("The slug of the entry.")),
		tokenOption(),
	), t.getEntry)

	s.AddTool(mcp.NewTool("create_entry",
		mcp.WithDescription("Creates a new entry (owner only). The slug is derived from the title unless given."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the entry.")),
		mcp.WithString("content", mcp.Description("Body of the entry.")),
		mcp.WithString("slug", mcp.Description("Explicit slug. It is kept when the title changes later.")),
		mcp.WithBoolean("published", mcp.Description("Publish immediately. Defaults to false (draft).")),
		mcp.WithString("timestamp", mcp.Description("RFC 3339 timestamp. Defaults to now.")),
		tokenOption(),
	), t.createEntry)

	s.AddTool(mcp.NewTool("update_entry",
		mcp.WithDescription("Updates fields of an existing entry (owner only). Omitted fields are unchanged."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("ID of the entry to update.")),
		mcp.WithString("title", mcp.Description("New title.")),
		mcp.WithString("content", mcp.Description("New content.")),
		mcp.WithString("slug", mcp.Description("New explicit slug.")),
		mcp.WithBoolean("published", mcp.Description("New publish state.")),
		mcp.WithString("timestamp", mcp.Description("New RFC 3339 timestamp.")),
		tokenOption(),
	), t.updateEntry)

	s.AddTool(mcp.NewTool("delete_entry",
		mcp.WithDescription("Deletes an entry and its search index record (owner only)."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("ID of the entry to delete.")),
		tokenOption(),
	), t.deleteEntry)
}

func (t *Tools) ping(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong_quire"), nil
}

func (t *Tools) login(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	password, err := request.RequireString("password")
	if err != nil {
		return mcp.NewToolResultError("'password' parameter is required."), nil
	}
	if t.auth == nil {
		return mcp.NewToolResultError("Login is not configured on this server."), nil
	}

	token, err := t.auth.Login(password)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Login failed: %v", err)), nil
	}
	return jsonResult(map[string]string{"token": token})
}

func (t *Tools) listEntries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	access := t.access(request)
	results, err := t.svc.Listing(ctx, access, query.ListingRequest{
		Drafts: request.GetBool("drafts", false),
		Page:   t.page(request),
	})
	if err != nil {
		return errorResult("list entries", err), nil
	}
	return jsonResult(results)
}

func (t *Tools) searchEntries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("'query' parameter is required and must be a string."), nil
	}

	access := t.access(request)
	results, err := t.svc.Listing(ctx, access, query.ListingRequest{Query: q, Page: t.page(request)})
	if err != nil {
		return errorResult("search entries", err), nil
	}
	return jsonResult(results)
}

func (t *Tools) getEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entrySlug, err := request.RequireString("slug")
	if err != nil || entrySlug == "" {
		return mcp.NewToolResultError("'slug' parameter is required and must be a non-empty string."), nil
	}

	entry, err := t.svc.Detail(ctx, entrySlug, t.access(request))
	if err != nil {
		return errorResult("get entry", err), nil
	}
	return jsonResult(entry)
}

func (t *Tools) createEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.access(request) != entries.Privileged {
		return unauthorized(), nil
	}

	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("'title' parameter is required and must be a string."), nil
	}
	in := entries.NewEntry{
		Title:     title,
		Content:   request.GetString("content", ""),
		Slug:      request.GetString("slug", ""),
		Published: request.GetBool("published", false),
	}
	if ts, err := optionalTime(request, "timestamp"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ts != nil {
		in.Timestamp = *ts
	}

	entry, err := t.svc.Store().Create(ctx, in)
	if err != nil {
		return errorResult("create entry", err), nil
	}
	return jsonResult(entry)
}

func (t *Tools) updateEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.access(request) != entries.Privileged {
		return unauthorized(), nil
	}

	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("'id' parameter is required and must be a number."), nil
	}

	upd := entries.EntryUpdate{
		Title:     optionalString(request, "title"),
		Content:   optionalString(request, "content"),
		Slug:      optionalString(request, "slug"),
		Published: optionalBool(request, "published"),
	}
	ts, err := optionalTime(request, "timestamp")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	upd.Timestamp = ts

	if upd.Title == nil && upd.Content == nil && upd.Slug == nil && upd.Published == nil && upd.Timestamp == nil {
		return mcp.NewToolResultError("No update fields provided (use title, content, slug, published, or timestamp)."), nil
	}

	entry, err := t.svc.Store().Update(ctx, int64(id), upd)
	if err != nil {
		return errorResult("update entry", err), nil
	}
	return jsonResult(entry)
}

func (t *Tools) deleteEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.access(request) != entries.Privileged {
		return unauthorized(), nil
	}

	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("'id' parameter is required and must be a number."), nil
	}

	if err := t.svc.Store().Delete(ctx, int64(id)); err != nil {
		return errorResult("delete entry", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Entry %d deleted.", id)), nil
}

func (t *Tools) page(request mcp.CallToolRequest) entries.Page {
	limit := request.GetInt("limit", t.pageSize)
	if limit <= 0 {
		limit = t.pageSize
	}
	return entries.Page{Limit: limit, Offset: request.GetInt("offset", 0)}
}

func (t *Tools) access(request mcp.CallToolRequest) entries.AccessLevel {
	if t.owner {
		return entries.Privileged
	}
	if t.auth == nil {
		return entries.Public
	}
	return t.auth.Resolve(request.GetString("token", ""))
}

func optionalTime(request mcp.CallToolRequest, key string) (*time.Time, error) {
	raw := optionalString(request, key)
	if raw == nil {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, fmt.Errorf("'%s' must be an RFC 3339 timestamp: %v", key, err)
	}
	return &ts, nil
}
