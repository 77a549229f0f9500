package api

import (
	"net/http"
	"strconv"
	"strings"
)

// PreferencesUpdated is the SSE event sent after the preferences change.
const PreferencesUpdated = "preferences.updated"

// GetPreferences handles GET /api/preferences.
//
//	@Summary		Get scheduling preferences
//	@Tags			preferences
//	@Produce		json
//	@Success		200	{object}	PreferencesDTO
//	@Header			200	{string}	ETag	"Checksum to send back in If-Match"
//	@Security		BearerAuth
//	@Router			/preferences [get]
func (h *Handler) GetPreferences(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("ETag", strconv.Quote(h.prefs.Checksum()))
	writeJSON(w, http.StatusOK, preferencesDTO(h.prefs.Current()))
}

// UpdatePreferences handles PUT /api/preferences.
//
//	@Summary		Replace scheduling preferences
//	@Tags			preferences
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header		string			false	"ETag from a previous GET"
//	@Param			body		body		PreferencesDTO	true	"New preferences"
//	@Success		200			{object}	PreferencesDTO
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preferences [put]
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req PreferencesDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	sum, err := h.prefs.Save(req.preferences(), ifMatch)
	if err != nil {
		writeError(w, "save preferences", err)
		return
	}
	if h.broker != nil {
		h.broker.TryPublish(PreferencesUpdated, map[string]string{"checksum": sum})
	}
	w.Header().Set("ETag", strconv.Quote(sum))
	writeJSON(w, http.StatusOK, preferencesDTO(h.prefs.Current()))
}
