package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
	"github.com/adamsnows/jobhunter-bot/internal/events"
	"github.com/adamsnows/jobhunter-bot/internal/store"
)

type AttemptsHandler struct {
	Store *store.Store
	Hub   *events.Hub
}

func (h AttemptsHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	id, _ := splitPath(r.URL.Path, "/attempts/")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "bad_id", "missing attempt id")
		return
	}
	a, err := h.Store.GetAttempt(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, r, http.StatusNotFound, "not_found", "no such attempt")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// PatchByPath advances the attempt state machine from the dashboard:
// marking delivered/read by hand, or recording a response.
func (h AttemptsHandler) PatchByPath(w http.ResponseWriter, r *http.Request) {
	id, _ := splitPath(r.URL.Path, "/attempts/")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "bad_id", "missing attempt id")
		return
	}

	var body struct {
		State    string `json:"state"`
		Response string `json:"response"`
		Tone     string `json:"tone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	a, err := h.Store.GetAttempt(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, r, http.StatusNotFound, "not_found", "no such attempt")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	target, err := domain.ParseAttemptState(body.State)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_state", err.Error())
		return
	}

	now := time.Now()
	if target == domain.AttemptResponded {
		err = a.RecordResponse(body.Response, domain.ResponseTone(body.Tone), now)
	} else {
		err = a.Transition(target, now)
	}
	if err != nil {
		if errors.Is(err, domain.ErrBadTransition) {
			writeError(w, r, http.StatusConflict, "bad_transition", err.Error())
			return
		}
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := h.Store.SaveAttempt(r.Context(), a); err != nil {
		writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if h.Hub != nil {
		h.Hub.Publish(events.MakeEvent(RequestIDFrom(r.Context()), events.TypeAttemptState,
			map[string]any{"attempt": a.ID, "state": string(a.State)}))
	}
	writeJSON(w, http.StatusOK, a)
}
