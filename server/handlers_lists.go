package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/zixifan/bili-helper/db"
)

// HandleLists handles GET (list) and POST (create) on /lists.
func (h *Handlers) HandleLists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListsList(w, r)
	case http.MethodPost:
		h.handleListsCreate(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handlers) handleListsList(w http.ResponseWriter, r *http.Request) {
	entries, err := db.ListEntries(r.Context(), h.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	whitelist := lo.Filter(entries, func(e db.ListEntry, _ int) bool { return e.ListType == db.ListTypeWhitelist })
	blacklist := lo.Filter(entries, func(e db.ListEntry, _ int) bool { return e.ListType == db.ListTypeBlacklist })
	writeJSON(w, http.StatusOK, map[string]any{
		"whitelist": whitelist,
		"blacklist": blacklist,
	})
}

func (h *Handlers) handleListsCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		MID      string `json:"mid"`
		ListType string `json:"list_type"`
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
	if req.ListType != db.ListTypeWhitelist && req.ListType != db.ListTypeBlacklist {
		writeError(w, http.StatusBadRequest, "list_type must be whitelist or blacklist")
		return
	}
	id, err := db.InsertListEntry(r.Context(), h.db, req.Name, req.MID, req.ListType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// HandleListsDispatcher routes /lists/{id} and /lists/{id}/toggle.
func (h *Handlers) HandleListsDispatcher(w http.ResponseWriter, r *http.Request) {
	id, tail, ok := pathID(r, "/lists/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch {
	case tail == "" && r.Method == http.MethodDelete:
		h.mutateRow(w, r, func() error { return db.DeleteListEntry(r.Context(), h.db, id) })
	case tail == "toggle" && r.Method == http.MethodPost:
		h.mutateRow(w, r, func() error { return db.ToggleListEntry(r.Context(), h.db, id) })
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
