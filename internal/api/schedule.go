package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/scheduling"
)

// parseTimeParam reads an optional RFC 3339 query parameter.
func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be an RFC 3339 timestamp")
	}
	return t, nil
}

// Suggestions handles GET /api/tasks/{id}/suggestions.
//
//	@Summary		Suggest ranked time slots for a task
//	@Tags			scheduling
//	@Produce		json
//	@Param			id			path		string	true	"Task id"
//	@Param			duration	query		string	false	"Required duration, e.g. 45m (default: estimate)"
//	@Param			deadline	query		string	false	"RFC 3339 deadline (default: end of search range)"
//	@Param			from		query		string	false	"RFC 3339 search range start"
//	@Param			to			query		string	false	"RFC 3339 search range end"
//	@Success		200			{object}	SuggestionsResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id}/suggestions [get]
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var opts scheduling.SuggestOptions

	if raw := r.URL.Query().Get("duration"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("duration must be a positive duration such as 45m"))
			return
		}
		opts.RequiredDuration = d
	}

	var err error
	if opts.Deadline, err = parseTimeParam(r, "deadline"); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	from, err := parseTimeParam(r, "from")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if from.IsZero() != to.IsZero() {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to must be given together"))
		return
	}
	opts.SearchRange = scheduling.Interval{Start: from, End: to}

	slots, err := h.svc.Suggest(r.Context(), id, opts)
	if err != nil {
		writeError(w, "suggest slots", err)
		return
	}
	estimate := opts.RequiredDuration
	if estimate == 0 {
		if estimate, err = h.svc.Estimate(r.Context(), id); err != nil {
			writeError(w, "estimate task", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{
		TaskID:            id,
		EstimatedDuration: estimate.String(),
		Slots:             slots,
	})
}

// ScheduleTask handles POST /api/tasks/{id}/schedule.
//
//	@Summary		Commit a task to its best slot
//	@Tags			scheduling
//	@Produce		json
//	@Param			id	path		string	true	"Task id"
//	@Success		200	{object}	ScheduleResponse
//	@Failure		404	{object}	errResponse
//	@Failure		422	{object}	errResponse	"No slot available"
//	@Security		BearerAuth
//	@Router			/tasks/{id}/schedule [post]
func (h *Handler) ScheduleTask(w http.ResponseWriter, r *http.Request) {
	task, slot, err := h.svc.AutoSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "auto-schedule task", err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{Task: task, Slot: slot})
}

// ScheduleBatch handles POST /api/schedule/batch.
//
//	@Summary		Schedule several tasks without overlaps
//	@Description	Tasks are placed highest priority first. The batch stops at the first task without a slot; earlier placements stay committed and are returned with status 422.
//	@Tags			scheduling
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BatchRequest	true	"Tasks to schedule"
//	@Success		200		{object}	BatchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	BatchResponse
//	@Security		BearerAuth
//	@Router			/schedule/batch [post]
func (h *Handler) ScheduleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	out, err := h.svc.AutoScheduleBatch(r.Context(), req.TaskIDs)
	h.writeBatch(w, "auto-schedule batch", out, err)
}

// ScheduleBacklog handles POST /api/schedule/backlog.
//
//	@Summary		Schedule every open task that has no due date
//	@Tags			scheduling
//	@Produce		json
//	@Success		200	{object}	BatchResponse
//	@Failure		422	{object}	BatchResponse
//	@Security		BearerAuth
//	@Router			/schedule/backlog [post]
func (h *Handler) ScheduleBacklog(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ScheduleBacklog(r.Context())
	h.writeBatch(w, "schedule backlog", out, err)
}

func (h *Handler) writeBatch(w http.ResponseWriter, op string, out []scheduling.Assignment, err error) {
	resp := BatchResponse{Assignments: nonNil(out)}
	if err != nil {
		if !errors.Is(err, apperr.ErrNoSlotAvailable) {
			writeError(w, op, err)
			return
		}
		resp.Error = err.Error()
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
