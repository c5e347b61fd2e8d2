package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kilianp07/taxico2/core/factory"
	"github.com/kilianp07/taxico2/core/model"
)

// CSVConfig configures a CSV trip file.
type CSVConfig struct {
	Path string `json:"path"`
	// Category is used for rows without a category column, e.g. a file
	// holding only green trips.
	Category  string `json:"category"`
	Delimiter string `json:"delimiter"`
}

// CSVSource streams trips from a CSV file with a header row.
type CSVSource struct {
	f   *os.File
	r   *csv.Reader
	idx map[string]int
	def model.Category
	row int
}

// NewCSVSource opens the file and resolves the header columns.
func NewCSVSource(cfg CSVConfig) (*CSVSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("csv source: path is required")
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("csv source: %w", err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	if cfg.Delimiter != "" {
		r.Comma = []rune(cfg.Delimiter)[0]
	}
	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv source %s: read header: %w", cfg.Path, err)
	}
	def := model.ParseCategory(cfg.Category)
	idx, err := columnIndex(header, def != "")
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv source %s: %w", cfg.Path, err)
	}
	return &CSVSource{f: f, r: r, idx: idx, def: def}, nil
}

// Next returns the next trip. Malformed rows are returned as
// *model.RecordError.
func (s *CSVSource) Next(ctx context.Context) (model.TripRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.TripRecord{}, err
	}
	rec, err := s.r.Read()
	if err == io.EOF {
		return model.TripRecord{}, io.EOF
	}
	s.row++
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return model.TripRecord{}, &model.RecordError{Row: s.row, Err: fmt.Errorf("%v: %w", perr, model.ErrInvalidTrip)}
		}
		return model.TripRecord{}, err
	}
	get := func(field string) string {
		i, ok := s.idx[field]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	return rawTrip{
		Category:   get(fieldCategory),
		Passengers: get(fieldPassengers),
		Distance:   get(fieldDistance),
		Pickup:     get(fieldPickup),
		Dropoff:    get(fieldDropoff),
	}.parse(s.row, s.def)
}

// Close closes the underlying file.
func (s *CSVSource) Close() error { return s.f.Close() }

func newCSVFromConf(conf map[string]any) (*CSVSource, error) {
	var c CSVConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return NewCSVSource(c)
}
