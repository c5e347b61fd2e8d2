package source

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/taxico2/core/factory"
	"github.com/kilianp07/taxico2/core/model"
)

// PostgresSource streams trips from PostgreSQL. Columns are cast in the
// default query so numeric and timestamp types scan without loss; a custom
// query must return text, bigint, double precision, timestamp, timestamp.
// Rows are summed in arrival order, so a custom query needs an ORDER BY
// for reruns to produce identical totals.
type PostgresSource struct {
	pool *pgxpool.Pool
	rows pgx.Rows
	def  model.Category
	row  int
}

func (c SQLConfig) pgQuery() (string, error) {
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
	return fmt.Sprintf(`SELECT category::text, passenger_count::bigint, trip_distance::double precision,
        pickup_time::timestamp, dropoff_time::timestamp FROM %s
        ORDER BY pickup_time, dropoff_time, category, trip_distance, passenger_count`, table), nil
}

// NewPostgresSource connects and starts the query.
func NewPostgresSource(ctx context.Context, cfg SQLConfig) (*PostgresSource, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres source: dsn is required")
	}
	q, err := cfg.pgQuery()
	if err != nil {
		return nil, fmt.Errorf("postgres source: %w", err)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	rows, err := pool.Query(ctx, q)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	return &PostgresSource{pool: pool, rows: rows, def: model.ParseCategory(cfg.Category)}, nil
}

// Next returns the next row. NULL columns yield a *model.RecordError.
func (s *PostgresSource) Next(ctx context.Context) (model.TripRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.TripRecord{}, err
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return model.TripRecord{}, fmt.Errorf("postgres source: %w", err)
		}
		return model.TripRecord{}, io.EOF
	}
	s.row++
	var (
		cat      *string
		pc       *int64
		dist     *float64
		pu, drop *time.Time
	)
	if err := s.rows.Scan(&cat, &pc, &dist, &pu, &drop); err != nil {
		return model.TripRecord{}, fmt.Errorf("postgres source: scan: %w", err)
	}
	return pgTrip(s.row, s.def, cat, pc, dist, pu, drop)
}

func pgTrip(row int, def model.Category, cat *string, pc *int64, dist *float64, pu, drop *time.Time) (model.TripRecord, error) {
	c := def
	if cat != nil && *cat != "" {
		c = model.ParseCategory(*cat)
	}
	fail := func(err error) (model.TripRecord, error) {
		return model.TripRecord{}, &model.RecordError{Row: row, Category: c, Err: err}
	}
	switch {
	case c == "":
		return fail(fmt.Errorf("empty category: %w", model.ErrUnknownCategory))
	case dist == nil:
		return fail(fmt.Errorf("trip_distance is null: %w", model.ErrInvalidTrip))
	case pu == nil || drop == nil:
		return fail(fmt.Errorf("pickup or dropoff is null: %w", model.ErrInvalidTimestamp))
	}
	t := model.TripRecord{
		Category:     c,
		TripDistance: *dist,
		PickupTime:   model.Naive(*pu),
		DropoffTime:  model.Naive(*drop),
	}
	if pc != nil {
		if !validPassengers(float64(*pc)) {
			return fail(fmt.Errorf("passenger_count %d: %w", *pc, model.ErrInvalidTrip))
		}
		t.PassengerCount = int(*pc)
	}
	return t, nil
}

// Close releases the cursor and the pool.
func (s *PostgresSource) Close() error {
	s.rows.Close()
	s.pool.Close()
	return nil
}

func newPostgresFromConf(conf map[string]any) (*PostgresSource, error) {
	var c SQLConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return NewPostgresSource(context.Background(), c)
}
