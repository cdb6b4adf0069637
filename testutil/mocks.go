package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockBiliServer creates a test server that mocks Bilibili web API responses.
type MockBiliServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockBiliServer creates a new mock Bilibili API server. Unregistered paths
// return 404.
func NewMockBiliServer(t *testing.T) *MockBiliServer {
	t.Helper()
	m := &MockBiliServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// envelope wraps data in the Bilibili {code,message,data} wire format.
func envelope(code int64, message string, data interface{}) map[string]interface{} {
	return map[string]interface{}{"code": code, "message": message, "data": data}
}

// MockNavResponse serves the profile endpoint.
func (m *MockBiliServer) MockNavResponse(uname string, mid int64, face string) {
	m.Handlers["/x/web-interface/nav"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(envelope(0, "", map[string]interface{}{
			"uname": uname, "mid": mid, "face": face,
		}))
	}
}

// MockNavError serves an application error from the profile endpoint.
func (m *MockBiliServer) MockNavError(code int64, message string) {
	m.Handlers["/x/web-interface/nav"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(envelope(code, message, nil))
	}
}

// MockFollowingsResponse serves one page of followings, then empty pages.
func (m *MockBiliServer) MockFollowingsResponse(items []map[string]interface{}) {
	m.Handlers["/x/relation/followings"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		page := items
		if r.URL.Query().Get("pn") != "1" {
			page = nil
		}
		_ = json.NewEncoder(w).Encode(envelope(0, "", map[string]interface{}{"list": page}))
	}
}

// MockUploadsResponse serves one page of uploads for every creator, then empty
// pages.
func (m *MockBiliServer) MockUploadsResponse(vlist []map[string]interface{}) {
	m.Handlers["/x/space/arc/search"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		page := vlist
		if r.URL.Query().Get("pn") != "1" {
			page = nil
		}
		_ = json.NewEncoder(w).Encode(envelope(0, "", map[string]interface{}{
			"list": map[string]interface{}{"vlist": page},
		}))
	}
}
