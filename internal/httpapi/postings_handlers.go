package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
	"github.com/adamsnows/jobhunter-bot/internal/events"
	"github.com/adamsnows/jobhunter-bot/internal/store"
)

type PostingsHandler struct {
	Store *store.Store
	Hub   *events.Hub
}

func (h PostingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := store.PostingFilter{
		Status: domain.PostingStatus(q.Get("status")),
		Source: domain.Source(q.Get("source")),
		Sort:   q.Get("sort"),
	}
	if v := q.Get("min_score"); v != "" {
		if ms, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinScore = ms
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}

	postings, err := h.Store.QueryPostings(r.Context(), f)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, postings)
}

func (h PostingsHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	id, rest := splitPath(r.URL.Path, "/postings/")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "bad_id", "missing posting id")
		return
	}
	if rest == "attempts" {
		h.listAttempts(w, r, id)
		return
	}
	p, err := h.Store.GetPosting(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, r, http.StatusNotFound, "not_found", "no such posting")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h PostingsHandler) listAttempts(w http.ResponseWriter, r *http.Request, postingID string) {
	as, err := h.Store.AttemptsForPosting(r.Context(), postingID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, as)
}

// PatchByPath updates the review status of a posting.
func (h PostingsHandler) PatchByPath(w http.ResponseWriter, r *http.Request) {
	id, _ := splitPath(r.URL.Path, "/postings/")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "bad_id", "missing posting id")
		return
	}

	var body struct {
		Status string   `json:"status"`
		Tags   []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	if body.Status != "" {
		status := domain.PostingStatus(body.Status)
		switch status {
		case domain.PostingNew, domain.PostingApplied, domain.PostingRejected,
			domain.PostingInterview, domain.PostingOffer, domain.PostingArchived:
		default:
			writeError(w, r, http.StatusBadRequest, "bad_status", "unknown posting status")
			return
		}
		if err := h.Store.SetStatus(r.Context(), id, status); err != nil {
			writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
	}
	if body.Tags != nil {
		if err := h.Store.SetTags(r.Context(), id, body.Tags); err != nil {
			writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
	}

	p, err := h.Store.GetPosting(r.Context(), id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if h.Hub != nil {
		h.Hub.Publish(events.MakeEvent(RequestIDFrom(r.Context()), "posting.updated",
			map[string]any{"id": id, "status": p.Status}))
	}
	writeJSON(w, http.StatusOK, p)
}

// splitPath peels "/postings/{id}[/rest]" into id and rest.
func splitPath(path, prefix string) (id, rest string) {
	tail := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(tail, '/'); i >= 0 {
		return tail[:i], strings.Trim(tail[i+1:], "/")
	}
	return tail, ""
}
