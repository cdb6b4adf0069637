package db

import (
	"context"
	"database/sql"
)

// List entry types.
const (
	ListTypeWhitelist = "whitelist"
	ListTypeBlacklist = "blacklist"
)

// ListEntry is one whitelist/blacklist row.
type ListEntry struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	MID      string `json:"mid"`
	ListType string `json:"list_type"`
	Enabled  bool   `json:"enabled"`
}

// ListEntries returns all list entries ordered by type then name.
func ListEntries(ctx context.Context, dbx *sql.DB) ([]ListEntry, error) {
	rows, err := dbx.QueryContext(ctx, `SELECT id, name, COALESCE(mid, ''), list_type, enabled FROM list_entries ORDER BY list_type, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]ListEntry, 0)
	for rows.Next() {
		var e ListEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.MID, &e.ListType, &e.Enabled); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// InsertListEntry adds a list entry (enabled) and returns its id.
func InsertListEntry(ctx context.Context, dbx *sql.DB, name, mid, listType string) (int64, error) {
	var id int64
	err := dbx.QueryRowContext(ctx,
		`INSERT INTO list_entries (name, mid, list_type, enabled) VALUES ($1, $2, $3, TRUE) RETURNING id`,
		name, mid, listType).Scan(&id)
	return id, err
}

// ToggleListEntry flips the enabled flag.
func ToggleListEntry(ctx context.Context, dbx *sql.DB, id int64) error {
	res, err := dbx.ExecContext(ctx, `UPDATE list_entries SET enabled = NOT enabled WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteListEntry removes a list entry.
func DeleteListEntry(ctx context.Context, dbx *sql.DB, id int64) error {
	res, err := dbx.ExecContext(ctx, `DELETE FROM list_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
