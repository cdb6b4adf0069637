package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zixifan/bili-helper/biliapi"
	"github.com/zixifan/bili-helper/db"
	"github.com/zixifan/bili-helper/feed"
	"github.com/zixifan/bili-helper/session"
	"github.com/zixifan/bili-helper/testutil"
)

// newTestMux wires the full router against a real database and a mock
// upstream. Skips when TEST_PG_DSN is not set.
func newTestMux(t *testing.T) (http.Handler, *testutil.MockBiliServer, *session.MemoryStore) {
	t.Helper()
	database := testutil.SetupTestDB(t)
	testutil.ResetTables(t, database)
	mock := testutil.NewMockBiliServer(t)
	store := session.NewMemoryStore()
	client := &biliapi.Client{BaseURL: mock.URL}
	return NewMux(context.Background(), database, store, client, nil), mock, store
}

func doJSON(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestKeywordLifecycle(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/keywords", `{"term":"minecraft","category":"games"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, mux, http.MethodGet, "/keywords", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Keywords []db.Keyword            `json:"keywords"`
		Groups   map[string][]db.Keyword `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Keywords, 1)
	assert.Equal(t, "minecraft", listed.Keywords[0].Term)
	assert.True(t, listed.Keywords[0].Enabled)
	require.Contains(t, listed.Groups, "games")

	rec = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/keywords/%d/toggle", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/keywords", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.False(t, listed.Keywords[0].Enabled)

	rec = doJSON(t, mux, http.MethodDelete, fmt.Sprintf("/keywords/%d", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, fmt.Sprintf("/keywords/%d", created.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKeywordValidation(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/keywords", `{"term":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, "/keywords/notanumber", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatorLifecycleAndDedupe(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/creators", `{"name":"alice","mid":"100","tag":"special"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same name/mid/tag again is skipped, not duplicated
	rec = doJSON(t, mux, http.MethodPost, "/creators", `{"name":"alice","mid":"100","tag":"special"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"created":false`)

	// Same creator under the other tag is a distinct row
	rec = doJSON(t, mux, http.MethodPost, "/creators", `{"name":"alice","mid":"100","tag":"paid"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/creators", "")
	var listed struct {
		Creators []db.Creator `json:"creators"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Creators, 2)
}

func TestCreatorTagValidation(t *testing.T) {
	mux, _, _ := newTestMux(t)
	rec := doJSON(t, mux, http.MethodPost, "/creators", `{"name":"bob","tag":"vip"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListLifecycle(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/lists", `{"name":"good","list_type":"whitelist"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, mux, http.MethodPost, "/lists", `{"name":"bad","list_type":"blacklist"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, mux, http.MethodPost, "/lists", `{"name":"x","list_type":"greylist"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/lists", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Whitelist []db.ListEntry `json:"whitelist"`
		Blacklist []db.ListEntry `json:"blacklist"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Whitelist, 1)
	assert.Len(t, listed.Blacklist, 1)
}

func TestSettingsRoundTrip(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var s db.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 2, s.SendIntervalHours)

	s.SendIntervalHours = 6
	s.AggregatesEnabled = true
	s.WebhookURL = "https://hooks.example.com/digest"
	body, _ := json.Marshal(s)
	rec = doJSON(t, mux, http.MethodPut, "/settings", string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/settings", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 6, s.SendIntervalHours)
	assert.True(t, s.AggregatesEnabled)
}

func TestSettingsValidation(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPut, "/settings", `{"send_interval_hours":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPut, "/settings", `{"send_interval_hours":2,"webhook_url":"ftp://nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatesEndpoint(t *testing.T) {
	mux, mock, store := newTestMux(t)

	token := session.NewToken()
	require.NoError(t, store.Put(context.Background(), token,
		session.Account{DisplayName: "tester", MID: "42", SessData: "secret"}, time.Hour))

	now := time.Now().Unix()
	mock.MockFollowingsResponse([]map[string]interface{}{
		{"uname": "alice", "mid": 100, "special": 1},
	})
	mock.MockUploadsResponse([]map[string]interface{}{
		{"title": "fresh", "created": now, "bvid": "BV1xx", "author": "alice"},
	})

	req := httptest.NewRequest(http.MethodGet, "/account/updates?limit=10", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Updates  []feed.Update        `json:"updates"`
		Statuses []feed.CreatorStatus `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Updates, 1)
	assert.Equal(t, "alice", body.Updates[0].CreatorName)
	assert.True(t, body.Updates[0].Special)
	require.Len(t, body.Statuses, 1)
	assert.Equal(t, feed.StatusUpdated, body.Statuses[0].Status)
}

func TestUpdatesUpstreamFailure(t *testing.T) {
	mux, mock, store := newTestMux(t)

	token := session.NewToken()
	require.NoError(t, store.Put(context.Background(), token,
		session.Account{MID: "42", SessData: "secret"}, time.Hour))
	mock.Handlers["/x/relation/followings"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}

	req := httptest.NewRequest(http.MethodGet, "/account/updates", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthAndReadyEndpoints(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}

func TestCorrelationIDHeader(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, "corr-123", rec.Header().Get("X-Correlation-ID"))
}
