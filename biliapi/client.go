// Package biliapi contains minimal helpers to interact with the Bilibili web
// APIs for profile resolution, followed-creator listing, and per-creator upload
// listing, using an optional SESSDATA session cookie.
package biliapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/zixifan/bili-helper/telemetry"
)

const defaultBaseURL = "https://api.bilibili.com"

// Client provides the methods needed for followings and upload discovery.
// Zero page sizes fall back to the upstream defaults (50 followings, 30
// uploads per page).
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client

	FollowingsPageSize int
	UploadsPageSize    int
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

// APIError is an application-level failure: the HTTP round trip and JSON decode
// succeeded but the response envelope carries a non-zero code.
type APIError struct {
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bili api code %d", e.Code)
	}
	return fmt.Sprintf("bili api code %d: %s", e.Code, e.Message)
}

// envelope is the wire format shared by all Bilibili web endpoints.
type envelope struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// getJSON fetches path with query params, unwraps the {code,message,data}
// envelope, and decodes the data payload into out. A network/decode failure is
// returned as-is; a non-zero envelope code is returned as *APIError.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, sessdata string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+path, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = q.Encode()
	ua := c.UserAgent
	if ua == "" {
		ua = "bili-helper/1.0"
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Referer", "https://www.bilibili.com/")
	if sessdata != "" {
		req.Header.Set("Cookie", "SESSDATA="+sessdata)
	}

	telemetry.IncCounter(telemetry.BiliRequests)
	resp, err := c.http().Do(req)
	if err != nil {
		telemetry.IncCounter(telemetry.BiliRequestFailures)
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		telemetry.IncCounter(telemetry.BiliRequestFailures)
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Code != 0 {
		telemetry.IncCounter(telemetry.BiliRequestFailures)
		return &APIError{Code: env.Code, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
