package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zixifan/bili-helper/biliapi"
	"github.com/zixifan/bili-helper/db"
	"github.com/zixifan/bili-helper/feed"
	"github.com/zixifan/bili-helper/session"
)

// followingsSearchPages bounds how many pages the search endpoint scans.
const followingsSearchPages = 3

// HandleLogin validates a SESSDATA credential against the nav endpoint and
// creates a server-side session. The token is returned both as a cookie and in
// the JSON body so non-browser clients can use the Authorization header.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		SessData string `json:"sessdata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.SessData = strings.TrimSpace(req.SessData)
	if req.SessData == "" {
		writeError(w, http.StatusBadRequest, "sessdata is required")
		return
	}

	profile, err := h.bili.Nav(r.Context(), req.SessData)
	if err != nil {
		var apiErr *biliapi.APIError
		if errors.As(err, &apiErr) {
			// Upstream rejects the credential with a non-zero code
			writeError(w, http.StatusUnauthorized, "credential rejected: "+apiErr.Message)
			return
		}
		writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}

	token := session.NewToken()
	acct := session.Account{
		DisplayName: profile.Name,
		MID:         profile.MID,
		SessData:    req.SessData,
		Face:        profile.Face,
	}
	if err := h.sessions.Put(r.Context(), token, acct, session.DefaultTTL); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(session.DefaultTTL),
	})
	slog.Info("account login", slog.String("mid", acct.MID), slog.String("name", acct.DisplayName))
	writeJSON(w, http.StatusOK, map[string]any{
		"token":        token,
		"display_name": acct.DisplayName,
		"mid":          acct.MID,
		"face":         acct.Face,
	})
}

// HandleLogout deletes the session and clears the cookie.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, token, ok := h.currentAccount(r); ok {
		if err := h.sessions.Delete(r.Context(), token); err != nil {
			slog.Warn("session delete failed", slog.Any("err", err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleFollowings returns the first page of the account's followed creators.
func (h *Handlers) HandleFollowings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	acct, _, ok := h.currentAccount(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	followings, err := h.bili.ListFollowings(r.Context(), acct.MID, acct.SessData, 1)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"followings": followings})
}

// HandleFollowingsSearch filters the account's followings by a case-insensitive
// substring match on ?q=.
func (h *Handlers) HandleFollowingsSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	acct, _, ok := h.currentAccount(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	followings, err := h.bili.ListFollowings(r.Context(), acct.MID, acct.SessData, followingsSearchPages)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	matches := biliapi.SearchFollowings(followings, q)
	writeJSON(w, http.StatusOK, map[string]any{"followings": matches})
}

// HandleUpdates aggregates recent uploads from the account's followed creators
// into one feed. The lookback interval comes from the stored settings, and an
// optional ?limit= caps the feed after sorting.
func (h *Handlers) HandleUpdates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	acct, _, ok := h.currentAccount(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in")
		return
	}
	settings, err := db.GetSettings(r.Context(), h.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	limit := parseIntQuery(r, "limit", 0)

	updates, statuses, err := h.agg.Aggregate(r.Context(), acct.MID, acct.SessData, settings.SendIntervalHours, limit)
	if err != nil {
		// The followings listing itself failed; nothing partial to return
		writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updates":  updates,
		"statuses": statuses,
		"counts":   feed.CountByStatus(statuses),
	})
}
