package db

import (
	"context"
	"database/sql"
)

// Settings is the single-row notification configuration (id is always 1).
type Settings struct {
	SendIntervalHours int    `json:"send_interval_hours"`
	AggregatesEnabled bool   `json:"aggregates_enabled"`
	HighlightSpecial  bool   `json:"highlight_special"`
	HighlightPaid     bool   `json:"highlight_paid"`
	EmailRecipients   string `json:"email_recipients"`
	WebhookURL        string `json:"webhook_url"`
}

// GetSettings reads the settings row, inserting defaults if it is missing.
func GetSettings(ctx context.Context, dbx *sql.DB) (Settings, error) {
	var s Settings
	err := dbx.QueryRowContext(ctx,
		`SELECT send_interval_hours, aggregates_enabled, highlight_special, highlight_paid, email_recipients, webhook_url
		 FROM settings WHERE id = 1`).
		Scan(&s.SendIntervalHours, &s.AggregatesEnabled, &s.HighlightSpecial, &s.HighlightPaid, &s.EmailRecipients, &s.WebhookURL)
	if err == sql.ErrNoRows {
		if _, err := dbx.ExecContext(ctx, `INSERT INTO settings (id) VALUES (1) ON CONFLICT DO NOTHING`); err != nil {
			return Settings{}, err
		}
		return GetSettings(ctx, dbx)
	}
	return s, err
}

// UpdateSettings writes the settings row.
func UpdateSettings(ctx context.Context, dbx *sql.DB, s Settings) error {
	_, err := dbx.ExecContext(ctx,
		`UPDATE settings
		 SET send_interval_hours = $1,
		     aggregates_enabled = $2,
		     highlight_special = $3,
		     highlight_paid = $4,
		     email_recipients = $5,
		     webhook_url = $6
		 WHERE id = 1`,
		s.SendIntervalHours, s.AggregatesEnabled, s.HighlightSpecial, s.HighlightPaid, s.EmailRecipients, s.WebhookURL)
	return err
}
