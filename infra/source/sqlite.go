package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"regexp"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/taxico2/core/factory"
	"github.com/kilianp07/taxico2/core/model"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLConfig configures a database trip source. Query, when set, must select
// category, passenger_count, trip_distance, pickup_time and dropoff_time in
// that order and should end with an ORDER BY so reruns read rows in the same
// order; otherwise those columns are read from Table.
type SQLConfig struct {
	Path     string `json:"path"`
	DSN      string `json:"dsn"`
	Table    string `json:"table"`
	Query    string `json:"query"`
	Category string `json:"category"`
}

func (c SQLConfig) query() (string, error) {
	if c.Query != "" {
		return c.Query, nil
	}
	table := c.Table
	if table == "" {
		table = "trips"
	}
	if !identRe.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return fmt.Sprintf(`SELECT category, passenger_count, trip_distance, pickup_time, dropoff_time FROM %s ORDER BY rowid`, table), nil
}

// SQLiteSource streams trips from a SQLite table.
type SQLiteSource struct {
	db   *sql.DB
	rows *sql.Rows
	def  model.Category
	row  int
}

// NewSQLiteSource opens the database and starts the query.
func NewSQLiteSource(ctx context.Context, cfg SQLConfig) (*SQLiteSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite source: path is required")
	}
	q, err := cfg.query()
	if err != nil {
		return nil, fmt.Errorf("sqlite source: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite source: query: %w", err)
	}
	return &SQLiteSource{db: db, rows: rows, def: model.ParseCategory(cfg.Category)}, nil
}

// Next returns the next row.
func (s *SQLiteSource) Next(ctx context.Context) (model.TripRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.TripRecord{}, err
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return model.TripRecord{}, fmt.Errorf("sqlite source: %w", err)
		}
		return model.TripRecord{}, io.EOF
	}
	s.row++
	var cat, pc, dist, pu, do any
	if err := s.rows.Scan(&cat, &pc, &dist, &pu, &do); err != nil {
		return model.TripRecord{}, fmt.Errorf("sqlite source: scan: %w", err)
	}
	return rawTrip{
		Category:   text(cat),
		Passengers: text(pc),
		Distance:   text(dist),
		Pickup:     text(pu),
		Dropoff:    text(do),
	}.parse(s.row, s.def)
}

// Close releases the cursor and the database.
func (s *SQLiteSource) Close() error {
	_ = s.rows.Close()
	return s.db.Close()
}

func newSQLiteFromConf(conf map[string]any) (*SQLiteSource, error) {
	var c SQLConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return NewSQLiteSource(context.Background(), c)
}
