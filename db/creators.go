package db

import (
	"context"
	"database/sql"
)

// Creator tags: special attention vs. paid subscription.
const (
	CreatorTagSpecial = "special"
	CreatorTagPaid    = "paid"
)

// Creator is a tracked content creator.
type Creator struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	MID     string `json:"mid"`
	Tag     string `json:"tag"`
	Enabled bool   `json:"enabled"`
}

// ListCreators returns all tracked creators ordered by tag then name.
func ListCreators(ctx context.Context, dbx *sql.DB) ([]Creator, error) {
	rows, err := dbx.QueryContext(ctx, `SELECT id, name, COALESCE(mid, ''), tag, enabled FROM creators ORDER BY tag, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]Creator, 0)
	for rows.Next() {
		var c Creator
		if err := rows.Scan(&c.ID, &c.Name, &c.MID, &c.Tag, &c.Enabled); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// CreatorExists reports whether a creator with the same name, mid and tag is
// already tracked. Used to dedupe adds sourced from the followings list.
func CreatorExists(ctx context.Context, dbx *sql.DB, name, mid, tag string) (bool, error) {
	var one int
	err := dbx.QueryRowContext(ctx,
		`SELECT 1 FROM creators WHERE name = $1 AND COALESCE(mid, '') = $2 AND tag = $3`,
		name, mid, tag).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertCreator adds a creator (enabled) and returns its id.
func InsertCreator(ctx context.Context, dbx *sql.DB, name, mid, tag string) (int64, error) {
	var id int64
	err := dbx.QueryRowContext(ctx,
		`INSERT INTO creators (name, mid, tag, enabled) VALUES ($1, $2, $3, TRUE) RETURNING id`,
		name, mid, tag).Scan(&id)
	return id, err
}

// ToggleCreator flips the enabled flag.
func ToggleCreator(ctx context.Context, dbx *sql.DB, id int64) error {
	res, err := dbx.ExecContext(ctx, `UPDATE creators SET enabled = NOT enabled WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteCreator removes a creator.
func DeleteCreator(ctx context.Context, dbx *sql.DB, id int64) error {
	res, err := dbx.ExecContext(ctx, `DELETE FROM creators WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
