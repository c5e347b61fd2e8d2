// Package kpi persists the daily CO2 pivot in SQLite.
package kpi

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/model"
)

// SQLiteStore persists DailyTotal rows in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS daily_co2 (
        category TEXT,
        day TEXT,
        co2_kg REAL,
        trips INTEGER,
        PRIMARY KEY(category, day)
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Put replaces the rows for each (category, day) in one transaction.
func (s *SQLiteStore) Put(ctx context.Context, rows []aggregate.DailyTotal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO daily_co2 (category, day, co2_kg, trips)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(category, day) DO UPDATE SET
            co2_kg = excluded.co2_kg,
            trips = excluded.trips`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, string(r.Category), r.Date.String(), r.CO2Kg, r.Trips); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("put %s %s: %w", r.Category, r.Date, err)
		}
	}
	return tx.Commit()
}

// Query returns rows of category in [start, end] ordered by day. Zero
// bounds are open.
func (s *SQLiteStore) Query(ctx context.Context, category model.Category, start, end model.Date) ([]aggregate.DailyTotal, error) {
	lo, hi := "0000-01-01", "9999-12-31"
	if !start.IsZero() {
		lo = start.String()
	}
	if !end.IsZero() {
		hi = end.String()
	}
	rows, err := s.db.QueryContext(ctx, `SELECT day, co2_kg, trips
        FROM daily_co2 WHERE category = ? AND day >= ? AND day <= ? ORDER BY day`,
		string(category), lo, hi)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []aggregate.DailyTotal
	for rows.Next() {
		var day string
		r := aggregate.DailyTotal{Category: category}
		if err := rows.Scan(&day, &r.CO2Kg, &r.Trips); err != nil {
			return nil, err
		}
		if r.Date, err = model.ParseDate(day); err != nil {
			return nil, fmt.Errorf("stored day %q: %w", day, err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Categories lists the categories with stored rows.
func (s *SQLiteStore) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM daily_co2 ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Category
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, model.Category(c))
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
