package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zixifan/bili-helper/biliapi"
	"github.com/zixifan/bili-helper/session"
	"github.com/zixifan/bili-helper/testutil"
)

func newTestHandlers(t *testing.T) (*Handlers, *testutil.MockBiliServer, *session.MemoryStore) {
	t.Helper()
	mock := testutil.NewMockBiliServer(t)
	store := session.NewMemoryStore()
	client := &biliapi.Client{BaseURL: mock.URL}
	return NewHandlers(context.Background(), nil, store, client, nil), mock, store
}

func loginTestSession(t *testing.T, store *session.MemoryStore) string {
	t.Helper()
	token := session.NewToken()
	acct := session.Account{DisplayName: "tester", MID: "42", SessData: "secret"}
	require.NoError(t, store.Put(context.Background(), token, acct, time.Hour))
	return token
}

func TestLoginSuccess(t *testing.T) {
	h, mock, store := newTestHandlers(t)
	mock.MockNavResponse("alice", 42, "https://i0.hdslb.com/face.jpg")

	req := httptest.NewRequest(http.MethodPost, "/account/login", strings.NewReader(`{"sessdata":"abc123"}`))
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Token       string `json:"token"`
		DisplayName string `json:"display_name"`
		MID         string `json:"mid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.DisplayName)
	assert.Equal(t, "42", body.MID)
	require.NotEmpty(t, body.Token)

	// Session persisted with the credential
	acct, ok, err := store.Get(context.Background(), body.Token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc123", acct.SessData)

	// Cookie set
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Equal(t, body.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginRejectedCredential(t *testing.T) {
	h, mock, _ := newTestHandlers(t)
	mock.MockNavError(-101, "account not logged in")

	req := httptest.NewRequest(http.MethodPost, "/account/login", strings.NewReader(`{"sessdata":"bad"}`))
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "credential rejected")
}

func TestLoginValidation(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/account/login", strings.NewReader(`{"sessdata":"  "}`))
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/account/login", strings.NewReader(`not json`))
	rec = httptest.NewRecorder()
	h.HandleLogin(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutDeletesSession(t *testing.T) {
	h, _, store := newTestHandlers(t)
	token := loginTestSession(t, store)

	req := httptest.NewRequest(http.MethodPost, "/account/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, ok, err := store.Get(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFollowingsRequiresSession(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/account/followings", nil)
	rec := httptest.NewRecorder()
	h.HandleFollowings(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFollowingsList(t *testing.T) {
	h, mock, store := newTestHandlers(t)
	token := loginTestSession(t, store)
	mock.MockFollowingsResponse([]map[string]interface{}{
		{"uname": "creator one", "mid": 100, "special": 1},
		{"uname": "creator two", "mid": 200, "special": 0},
	})

	req := httptest.NewRequest(http.MethodGet, "/account/followings", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	h.HandleFollowings(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Followings []biliapi.Following `json:"followings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Followings, 2)
	assert.Equal(t, "creator one", body.Followings[0].Name)
	assert.True(t, body.Followings[0].Special)
}

func TestFollowingsBearerToken(t *testing.T) {
	h, mock, store := newTestHandlers(t)
	token := loginTestSession(t, store)
	mock.MockFollowingsResponse(nil)

	req := httptest.NewRequest(http.MethodGet, "/account/followings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.HandleFollowings(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFollowingsSearch(t *testing.T) {
	h, mock, store := newTestHandlers(t)
	token := loginTestSession(t, store)
	mock.MockFollowingsResponse([]map[string]interface{}{
		{"uname": "Cooking Channel", "mid": 1},
		{"uname": "gaming daily", "mid": 2},
		{"uname": "cook with me", "mid": 3},
	})

	req := httptest.NewRequest(http.MethodGet, "/account/followings/search?q=cook", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	h.HandleFollowingsSearch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Followings []biliapi.Following `json:"followings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Followings, 2)
}

func TestFollowingsSearchRequiresQuery(t *testing.T) {
	h, _, store := newTestHandlers(t)
	token := loginTestSession(t, store)

	req := httptest.NewRequest(http.MethodGet, "/account/followings/search", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	h.HandleFollowingsSearch(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFollowingsUpstreamFailure(t *testing.T) {
	h, mock, store := newTestHandlers(t)
	token := loginTestSession(t, store)
	mock.Handlers["/x/relation/followings"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}

	req := httptest.NewRequest(http.MethodGet, "/account/followings", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	h.HandleFollowings(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
