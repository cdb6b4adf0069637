// Package server exposes the HTTP API handlers.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zixifan/bili-helper/biliapi"
	"github.com/zixifan/bili-helper/config"
	"github.com/zixifan/bili-helper/feed"
	"github.com/zixifan/bili-helper/session"
)

// sessionCookie is the cookie carrying the session token.
const sessionCookie = "bili_helper_session"

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db       *sql.DB
	ctx      context.Context
	sessions session.Store
	bili     *biliapi.Client
	agg      feed.Aggregator
}

// NewHandlers creates a new Handlers instance with the given dependencies.
// cfg may be nil; the aggregator then uses its stock page bounds.
func NewHandlers(ctx context.Context, db *sql.DB, sessions session.Store, bili *biliapi.Client, cfg *config.Config) *Handlers {
	agg := feed.Aggregator{Src: bili}
	if cfg != nil {
		agg.FollowingsMaxPages = cfg.FollowingsMaxPages
		agg.UploadsMaxPages = cfg.UploadsMaxPages
	}
	return &Handlers{
		db:       db,
		ctx:      ctx,
		sessions: sessions,
		bili:     bili,
		agg:      agg,
	}
}

// writeJSON encodes v as the response body with the JSON content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.Any("err", err))
	}
}

// writeError sends a JSON error body so frontend clients get a uniform shape.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// currentAccount resolves the session token from the cookie or Authorization
// header and looks it up in the session store. The second return is false when
// the request carries no valid session.
func (h *Handlers) currentAccount(r *http.Request) (session.Account, string, bool) {
	token := ""
	if c, err := r.Cookie(sessionCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		token = bearerToken(r)
	}
	if token == "" {
		return session.Account{}, "", false
	}
	acct, ok, err := h.sessions.Get(r.Context(), token)
	if err != nil {
		slog.Warn("session lookup failed", slog.Any("err", err))
		return session.Account{}, "", false
	}
	if !ok {
		return session.Account{}, "", false
	}
	return acct, token, true
}
