// Package notify runs the periodic digest job: aggregate recent uploads from
// the configured account's followed creators and deliver the result to the
// webhook stored in settings.
package notify

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/zixifan/bili-helper/biliapi"
	"github.com/zixifan/bili-helper/config"
	"github.com/zixifan/bili-helper/db"
	"github.com/zixifan/bili-helper/feed"
	"github.com/zixifan/bili-helper/telemetry"
)

// checkInterval is how often the job wakes up to evaluate whether a digest is
// due. The actual send cadence comes from settings.send_interval_hours.
const checkInterval = 1 * time.Minute

// Digest is the JSON payload delivered to the webhook.
type Digest struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Account     string               `json:"account"`
	Recipients  string               `json:"recipients,omitempty"`
	Updates     []feed.Update        `json:"updates"`
	Statuses    []feed.CreatorStatus `json:"statuses"`
	Counts      map[feed.Status]int  `json:"counts"`
}

// Notifier owns the digest loop state.
type Notifier struct {
	DB         *sql.DB
	Bili       *biliapi.Client
	Cfg        *config.Config
	HTTPClient *http.Client

	lastSent time.Time
}

// Start runs the digest loop until ctx is cancelled. Errors are logged and the
// loop keeps going; a broken webhook must not take the service down.
func (n *Notifier) Start(ctx context.Context) {
	slog.Info("digest job starting", slog.Duration("check_interval", checkInterval))
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("digest job stopping")
			return
		case <-ticker.C:
			if err := n.RunOnce(ctx); err != nil {
				slog.Error("digest run failed", slog.Any("err", err))
			}
		}
	}
}

// RunOnce evaluates the settings and sends a digest if one is due. A nil
// return with no send means the job was not due or is not configured.
func (n *Notifier) RunOnce(ctx context.Context) error {
	settings, err := db.GetSettings(ctx, n.DB)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !settings.AggregatesEnabled || settings.WebhookURL == "" {
		return nil
	}
	if err := n.Cfg.ValidateDigestReady(); err != nil {
		slog.Debug("digest skipped", slog.Any("reason", err))
		return nil
	}
	interval := time.Duration(settings.SendIntervalHours) * time.Hour
	if !n.lastSent.IsZero() && time.Since(n.lastSent) < interval {
		return nil
	}

	profile, err := n.Bili.Nav(ctx, n.Cfg.BiliSessData)
	if err != nil {
		telemetry.IncCounter(telemetry.DigestsFailed)
		return fmt.Errorf("resolve account: %w", err)
	}
	agg := feed.Aggregator{
		Src:                n.Bili,
		FollowingsMaxPages: n.Cfg.FollowingsMaxPages,
		UploadsMaxPages:    n.Cfg.UploadsMaxPages,
	}
	updates, statuses, err := agg.Aggregate(ctx, profile.MID, n.Cfg.BiliSessData, settings.SendIntervalHours, 0)
	if err != nil {
		telemetry.IncCounter(telemetry.DigestsFailed)
		return fmt.Errorf("aggregate: %w", err)
	}

	digest := Digest{
		GeneratedAt: time.Now().UTC(),
		Account:     profile.Name,
		Recipients:  settings.EmailRecipients,
		Updates:     updates,
		Statuses:    statuses,
		Counts:      feed.CountByStatus(statuses),
	}
	if err := n.deliver(ctx, settings.WebhookURL, digest); err != nil {
		telemetry.IncCounter(telemetry.DigestsFailed)
		return fmt.Errorf("deliver digest: %w", err)
	}
	n.lastSent = time.Now()
	telemetry.IncCounter(telemetry.DigestsSent)
	slog.Info("digest sent",
		slog.String("account", profile.Name),
		slog.Int("updates", len(updates)),
		slog.Int("creators", len(statuses)))
	return nil
}

// deliver POSTs the digest as JSON and treats any non-2xx response as an error.
func (n *Notifier) deliver(ctx context.Context, webhookURL string, digest Digest) error {
	body, err := json.Marshal(digest)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
