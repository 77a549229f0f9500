package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sowilo/internal/prefs"
	"github.com/starford/sowilo/internal/sse"
	"github.com/starford/sowilo/internal/store"
	"github.com/starford/sowilo/internal/taskservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *taskservice.Service
	prefs  *prefs.Provider
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil.
func NewHandler(svc *taskservice.Service, pp *prefs.Provider, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, prefs: pp, broker: broker}
}

// ListTasks handles GET /api/tasks.
//
//	@Summary		List tasks with optional pagination and filtering
//	@Tags			tasks
//	@Produce		json
//	@Param			status		query		string	false	"Completion filter"	Enums(open, completed, all)
//	@Param			scheduled	query		bool	false	"Only tasks with (true) or without (false) a due date"
//	@Param			since		query		string	false	"RFC 3339 cursor; lists tasks modified since, deleted ones included, newest first"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	TaskListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	f := store.TaskFilter{Status: store.Status(q.Get("status")), Limit: limit, Offset: offset}
	switch f.Status {
	case "", store.StatusOpen, store.StatusCompleted, store.StatusAll:
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("status must be open, completed or all"))
		return
	}
	if raw := q.Get("scheduled"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("scheduled must be a boolean"))
			return
		}
		f.Scheduled = &v
	}

	var resp TaskListResponse
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("since must be an RFC 3339 timestamp"))
			return
		}
		f.ModifiedSince = &since
		// Taken before the query so the next cursor also covers writes racing this one.
		now := h.svc.Now()
		resp.ServerTime = &now
	}

	tasks, total, err := h.svc.ListTasks(r.Context(), f)
	if err != nil {
		writeError(w, "list tasks", err)
		return
	}
	resp.Tasks, resp.Total = tasks, total
	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /api/status.
//
//	@Summary		Sync status: live task count, last modification and server time
//	@Tags			tasks
//	@Produce		json
//	@Success		200	{object}	taskservice.SyncStatus
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		writeError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetTask handles GET /api/tasks/{id}.
//
//	@Summary		Get a single task
//	@Tags			tasks
//	@Produce		json
//	@Param			id	path		string	true	"Task id"
//	@Success		200	{object}	models.Task
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id} [get]
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get task", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(task.Version, 10)))
	writeJSON(w, http.StatusOK, task)
}

// CreateTask handles POST /api/tasks.
//
//	@Summary		Create a task
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TaskRequest	true	"Task to create"
//	@Success		201		{object}	models.Task
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks [post]
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.svc.CreateTask(r.Context(), req.input())
	if err != nil {
		writeError(w, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// UpdateTask handles PUT /api/tasks/{id}.
//
//	@Summary		Replace a task with optimistic concurrency
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string		true	"Task id"
//	@Param			If-Match	header		string		false	"Expected version (alternative to body.version)"
//	@Param			body		body		TaskRequest	true	"New task fields"
//	@Success		200			{object}	models.Task
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id} [put]
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	version := req.Version
	if ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`); ifMatch != "" {
		v, err := strconv.ParseInt(ifMatch, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("If-Match must be a task version"))
			return
		}
		version = v
	}
	if version <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("version is required"))
		return
	}

	task, err := h.svc.UpdateTask(r.Context(), chi.URLParam(r, "id"), req.input(), version)
	if err != nil {
		writeError(w, "update task", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(task.Version, 10)))
	writeJSON(w, http.StatusOK, task)
}

// CompleteTask handles POST /api/tasks/{id}/complete.
//
//	@Summary		Mark a task completed
//	@Tags			tasks
//	@Produce		json
//	@Param			id	path		string	true	"Task id"
//	@Success		200	{object}	models.Task
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id}/complete [post]
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.CompleteTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "complete task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/{id}.
//
//	@Summary		Delete a task
//	@Tags			tasks
//	@Param			id	path	string	true	"Task id"
//	@Success		204	"Task deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id} [delete]
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
