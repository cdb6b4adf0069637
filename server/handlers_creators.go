package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zixifan/bili-helper/db"
)

// HandleCreators handles GET (list) and POST (create) on /creators.
func (h *Handlers) HandleCreators(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleCreatorsList(w, r)
	case http.MethodPost:
		h.handleCreatorsCreate(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handlers) handleCreatorsList(w http.ResponseWriter, r *http.Request) {
	creators, err := db.ListCreators(r.Context(), h.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"creators": creators})
}

func (h *Handlers) handleCreatorsCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		MID  string `json:"mid"`
		Tag  string `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.MID = strings.TrimSpace(req.MID)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Tag != db.CreatorTagSpecial && req.Tag != db.CreatorTagPaid {
		writeError(w, http.StatusBadRequest, "tag must be special or paid")
		return
	}
	// Adds sourced from the followings list may repeat; skip silently
	exists, err := db.CreatorExists(r.Context(), h.db, req.Name, req.MID, req.Tag)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if exists {
		writeJSON(w, http.StatusOK, map[string]any{"created": false})
		return
	}
	id, err := db.InsertCreator(r.Context(), h.db, req.Name, req.MID, req.Tag)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "created": true})
}

// HandleCreatorsDispatcher routes /creators/{id} and /creators/{id}/toggle.
func (h *Handlers) HandleCreatorsDispatcher(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := pathID(r, "/creators/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch {
	case tail == "" && r.Method == http.MethodDelete:
		h.mutateRow(w, r, func() error { return db.DeleteCreator(r.Context(), h.db, id) })
	case tail == "toggle" && r.Method == http.MethodPost:
		h.mutateRow(w, r, func() error { return db.ToggleCreator(r.Context(), h.db, id) })
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
