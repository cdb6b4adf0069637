package db

import (
	"context"
	"database/sql"
)

// Keyword is one interest term grouped under a category.
type Keyword struct {
	ID       int64  `json:"id"`
	Term     string `json:"term"`
	Category string `json:"category"`
	Enabled  bool   `json:"enabled"`
}

// ListKeywords returns all keywords ordered by category then term.
func ListKeywords(ctx context.Context, dbx *sql.DB) ([]Keyword, error) {
	rows, err := dbx.QueryContext(ctx, `SELECT id, term, category, enabled FROM keywords ORDER BY category, term`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]Keyword, 0)
	for rows.Next() {
		var k Keyword
		if err := rows.Scan(&k.ID, &k.Term, &k.Category, &k.Enabled); err != nil {
			return nil, err
		}
		list = append(list, k)
	}
	return list, rows.Err()
}

// InsertKeyword adds a keyword (enabled) and returns its id.
func InsertKeyword(ctx context.Context, dbx *sql.DB, term, category string) (int64, error) {
	var id int64
	err := dbx.QueryRowContext(ctx,
		`INSERT INTO keywords (term, category, enabled) VALUES ($1, $2, TRUE) RETURNING id`,
		term, category).Scan(&id)
	return id, err
}

// ToggleKeyword flips the enabled flag.
func ToggleKeyword(ctx context.Context, dbx *sql.DB, id int64) error {
	res, err := dbx.ExecContext(ctx, `UPDATE keywords SET enabled = NOT enabled WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteKeyword removes a keyword.
func DeleteKeyword(ctx context.Context, dbx *sql.DB, id int64) error {
	res, err := dbx.ExecContext(ctx, `DELETE FROM keywords WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow converts a zero-row result into sql.ErrNoRows so handlers can map
// missing ids to 404.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
