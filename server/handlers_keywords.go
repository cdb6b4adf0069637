package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/zixifan/bili-helper/db"
)

// HandleKeywords handles GET (list) and POST (create) on /keywords.
func (h *Handlers) HandleKeywords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleKeywordsList(w, r)
	case http.MethodPost:
		h.handleKeywordsCreate(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handlers) handleKeywordsList(w http.ResponseWriter, r *http.Request) {
	keywords, err := db.ListKeywords(r.Context(), h.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Grouped view saves the frontend a pass over the flat list
	groups := lo.GroupBy(keywords, func(k db.Keyword) string { return k.Category })
	writeJSON(w, http.StatusOK, map[string]any{
		"keywords": keywords,
		"groups":   groups,
	})
}

func (h *Handlers) handleKeywordsCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Term     string `json:"term"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Term = strings.TrimSpace(req.Term)
	req.Category = strings.TrimSpace(req.Category)
	if req.Term == "" {
		writeError(w, http.StatusBadRequest, "term is required")
		return
	}
	if req.Category == "" {
		req.Category = "general"
	}
	id, err := db.InsertKeyword(r.Context(), h.db, req.Term, req.Category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// HandleKeywordsDispatcher routes /keywords/{id} and /keywords/{id}/toggle.
func (h *Handlers) HandleKeywordsDispatcher(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := pathID(r, "/keywords/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch {
	case tail == "" && r.Method == http.MethodDelete:
		h.mutateRow(w, r, func() error { return db.DeleteKeyword(r.Context(), h.db, id) })
	case tail == "toggle" && r.Method == http.MethodPost:
		h.mutateRow(w, r, func() error { return db.ToggleKeyword(r.Context(), h.db, id) })
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// mutateRow runs a single-row mutation and maps sql.ErrNoRows to 404.
func (h *Handlers) mutateRow(w http.ResponseWriter, _ *http.Request, fn func() error) {
	if err := fn(); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
