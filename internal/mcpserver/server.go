// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Sowilo tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/scheduling"
	"github.com/starford/sowilo/internal/store"
	"github.com/starford/sowilo/internal/taskfile"
	"github.com/starford/sowilo/internal/taskservice"
)

const taskFormatURI = "sowilo://task-format"

// Server wraps the MCP server with Sowilo tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *taskservice.Service
	prefs scheduling.PreferencesProvider
	loc   *time.Location
}

// New creates a new MCP server with all Sowilo tools registered. Due dates
// without a zone are read in loc.
func New(svc *taskservice.Service, prefs scheduling.PreferencesProvider, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	s := &Server{svc: svc, prefs: prefs, loc: loc}

	s.mcp = server.NewMCPServer(
		"Sowilo",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks ordered by due date, then priority."),
		mcp.WithString("status", mcp.Description("open (default), completed or all")),
		mcp.WithString("scheduled", mcp.Description("Optional filter: true for tasks with a due date, false for the backlog")),
		mcp.WithString("since", mcp.Description("Optional RFC 3339 cursor: tasks modified since then, deleted ones included, newest first")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of tasks (default 50)")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a task. Either pass title (with optional notes, priority, due) "+
			"or pass content in the Sowilo task format; read the format via the "+
			"get_task_format tool or the "+taskFormatURI+" resource."),
		mcp.WithString("title", mcp.Description("Task title")),
		mcp.WithString("notes", mcp.Description("Free-form notes; longer notes mean a longer estimate")),
		mcp.WithString("priority", mcp.Description("none, low, medium, high or 0-3")),
		mcp.WithString("due", mcp.Description("Due date, RFC 3339 or YYYY-MM-DD HH:MM")),
		mcp.WithString("content", mcp.Description("Markdown task following the task format contract")),
	), s.createTask)

	s.mcp.AddTool(mcp.NewTool("suggest_slots",
		mcp.WithDescription("Suggest up to three ranked time slots for a task, best first."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithString("duration", mcp.Description("Required duration such as 45m (default: estimate)")),
		mcp.WithString("deadline", mcp.Description("RFC 3339 deadline (default: end of search range)")),
	), s.suggestSlots)

	s.mcp.AddTool(mcp.NewTool("auto_schedule",
		mcp.WithDescription("Book a task into its best slot by setting its due date."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task id")),
	), s.autoSchedule)

	s.mcp.AddTool(mcp.NewTool("auto_schedule_batch",
		mcp.WithDescription("Book several tasks without overlaps, highest priority first. "+
			"Stops at the first task without a slot; earlier bookings stay."),
		mcp.WithString("task_ids", mcp.Required(), mcp.Description("Comma-separated task ids")),
	), s.autoScheduleBatch)

	s.mcp.AddTool(mcp.NewTool("get_preferences",
		mcp.WithDescription("Returns the scheduling preferences: work day, deep-work windows, quiet hours, slot bounds."),
	), s.getPreferences)

	s.mcp.AddTool(mcp.NewTool("get_task_format",
		mcp.WithDescription("Returns the Sowilo task format contract."),
	), s.getTaskFormat)

	s.mcp.AddResource(
		mcp.NewResource(taskFormatURI, "Task Format Contract",
			mcp.WithResourceDescription("Markdown task format accepted by create_task and the import command."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTaskFormatResource,
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

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := store.TaskFilter{Status: store.Status(req.GetString("status", ""))}
	switch f.Status {
	case "", store.StatusOpen, store.StatusCompleted, store.StatusAll:
	default:
		return mcp.NewToolResultError("status must be open, completed or all"), nil
	}
	if raw := req.GetString("scheduled", ""); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return mcp.NewToolResultError("scheduled must be true or false"), nil
		}
		f.Scheduled = &v
	}
	if raw := req.GetString("since", ""); raw != "" {
		since, err := parseDue(raw, s.loc)
		if err != nil {
			return mcp.NewToolResultError("since " + err.Error()), nil
		}
		f.ModifiedSince = &since
	}
	f.Limit = req.GetInt("limit", 0)

	tasks, total, err := s.svc.ListTasks(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"tasks": tasks, "total": total})
}

func (s *Server) createTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in taskservice.TaskInput
	if content := req.GetString("content", ""); content != "" {
		parsed, err := taskfile.Parse([]byte(content), s.loc)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in = parsed.Input()
	} else {
		in.Title = req.GetString("title", "")
		in.Notes = req.GetString("notes", "")
		if raw := req.GetString("priority", ""); raw != "" {
			p, err := models.ParsePriority(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			in.Priority = p
		}
		if raw := req.GetString("due", ""); raw != "" {
			due, err := parseDue(raw, s.loc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			in.DueDate = &due
		}
	}

	t, err := s.svc.CreateTask(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(t)
}

func (s *Server) suggestSlots(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var opts scheduling.SuggestOptions
	if raw := req.GetString("duration", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return mcp.NewToolResultError("duration must be a positive duration such as 45m"), nil
		}
		opts.RequiredDuration = d
	}
	if raw := req.GetString("deadline", ""); raw != "" {
		if opts.Deadline, err = parseDue(raw, s.loc); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	slots, err := s.svc.Suggest(ctx, id, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(slots) == 0 {
		return mcp.NewToolResultText("no free slot found in the search window"), nil
	}
	return jsonResult(slots)
}

func (s *Server) autoSchedule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, slot, err := s.svc.AutoSchedule(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(slot)
}

func (s *Server) autoScheduleBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("task_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	out, err := s.svc.AutoScheduleBatch(ctx, ids)
	if err != nil {
		if len(out) == 0 {
			return mcp.NewToolResultError(err.Error()), nil
		}
		body, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultError(fmt.Sprintf("%v\nassigned before the failure:\n%s", err, body)), nil
	}
	return jsonResult(out)
}

func (s *Server) getPreferences(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := s.prefs.Current()
	return jsonResult(map[string]any{
		"deep_work_windows":   p.DeepWorkWindows,
		"quiet_hours":         p.QuietHours,
		"work_day_start_hour": p.WorkDayStartHour,
		"work_day_end_hour":   p.WorkDayEndHour,
		"min_slot_duration":   p.MinSlotDuration.String(),
		"max_slot_duration":   p.MaxSlotDuration.String(),
	})
}

func (s *Server) getTaskFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TaskFormatContract), nil
}

func (s *Server) readTaskFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      taskFormatURI,
			MIMEType: "text/markdown",
			Text:     TaskFormatContract,
		},
	}, nil
}

func parseDue(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q: want RFC 3339 or YYYY-MM-DD HH:MM", raw)
}
