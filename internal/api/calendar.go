package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sowilo/internal/taskservice"
)

// ListEvents handles GET /api/events.
//
//	@Summary		List calendar events overlapping a range
//	@Tags			events
//	@Produce		json
//	@Param			from	query		string	false	"RFC 3339 range start (default: now)"
//	@Param			to		query		string	false	"RFC 3339 range end (default: from + 7 days)"
//	@Success		200		{object}	EventListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
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
	if from.IsZero() {
		from = time.Now()
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, 7)
	}

	events, err := h.svc.ListEvents(r.Context(), from, to)
	if err != nil {
		writeError(w, "list events", err)
		return
	}
	writeJSON(w, http.StatusOK, EventListResponse{Events: events})
}

// GetEvent handles GET /api/events/{id}.
//
//	@Summary		Get a calendar event
//	@Tags			events
//	@Produce		json
//	@Param			id	path		string	true	"Event id"
//	@Success		200	{object}	models.Event
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/{id} [get]
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get event", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// CreateEvent handles POST /api/events.
//
//	@Summary		Create a calendar event that blocks its time range
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EventRequest	true	"Event to create"
//	@Success		201		{object}	models.Event
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events [post]
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	e, err := h.svc.CreateEvent(r.Context(), taskservice.EventInput{
		ID:       req.ID,
		Title:    req.Title,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Source:   req.Source,
	})
	if err != nil {
		writeError(w, "create event", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// DeleteEvent handles DELETE /api/events/{id}.
//
//	@Summary		Delete a calendar event
//	@Tags			events
//	@Param			id	path	string	true	"Event id"
//	@Success		204	"Event deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/{id} [delete]
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
