package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zixifan/bili-helper/testutil"
)

func TestSplitMids(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, splitMids("1, 2,,3"))
	assert.Nil(t, splitMids(" , "))
}

func TestFetchWithBackoffRetriesOn429(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"code":0,"message":"0","data":{"list":{"vlist":[]}}}`)
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, body, err := fetchWithBackoff(context.Background(), client, srv.URL, "x")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, calls)
	assert.Contains(t, string(body), `"code":0`)
}

func TestFetchWithBackoffGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, _, err := fetchWithBackoff(context.Background(), client, srv.URL, "x")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, maxAttempts, calls)
}

func TestProbeCreatorCountsHits(t *testing.T) {
	now := time.Now().Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/x/space/arc/search", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("mid"))
		fmt.Fprintf(w, `{"code":0,"message":"0","data":{"list":{"vlist":[
			{"title":"new","created":%d},
			{"title":"old","created":%d}
		]}}}`, now, now-7200)
	}))
	defer srv.Close()

	var out bytes.Buffer
	client := &http.Client{Timeout: 5 * time.Second}
	err := probeCreator(context.Background(), client, srv.URL, "42", "x", now-3600, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "HTTP 200")
	assert.Contains(t, out.String(), "2 uploads on page 1, 1 at or after cutoff")
}

func TestAggregateTargetsMergesProbedIDs(t *testing.T) {
	now := time.Now().Unix()
	mock := testutil.NewMockBiliServer(t)
	mock.MockUploadsResponse([]map[string]interface{}{
		{"title": "fresh", "created": now, "bvid": "BV1xx", "author": "up"},
	})

	var out bytes.Buffer
	aggregateTargets(context.Background(), mock.URL, []string{"10", "20"}, now-3600, "x", &out)

	// Both ids get the same page from the mock, so the merged feed has two
	// entries and every target reports updated.
	assert.Contains(t, out.String(), "merged feed: 2 updates from 2 targets (updated 2, no_updates 0, api_failed 0)")
	assert.Contains(t, out.String(), "[10] fresh")
	assert.Contains(t, out.String(), "[20] fresh")
}

func TestProbeCreatorReportsEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":-101,"message":"account not logged in"}`)
	}))
	defer srv.Close()

	var out bytes.Buffer
	client := &http.Client{Timeout: 5 * time.Second}
	err := probeCreator(context.Background(), client, srv.URL, "42", "x", 0, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "api code -101 (account not logged in)")
}
