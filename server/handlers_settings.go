package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/zixifan/bili-helper/db"
)

// HandleSettings handles GET and PUT on the single settings row.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := db.GetSettings(r.Context(), h.db)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var s db.Settings
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if s.SendIntervalHours < 1 {
			writeError(w, http.StatusBadRequest, "send_interval_hours must be at least 1")
			return
		}
		if s.WebhookURL != "" {
			u, err := url.Parse(s.WebhookURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				writeError(w, http.StatusBadRequest, "webhook_url must be an http(s) URL")
				return
			}
		}
		if err := db.UpdateSettings(r.Context(), h.db, s); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, s)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
