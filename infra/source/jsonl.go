package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kilianp07/taxico2/core/factory"
	"github.com/kilianp07/taxico2/core/model"
)

// JSONLConfig configures a JSON-lines trip file.
type JSONLConfig struct {
	Path     string `json:"path"`
	Category string `json:"category"`
}

// JSONLSource streams trips from a file holding one JSON object per line.
// Keys accept the same aliases as CSV headers.
type JSONLSource struct {
	f   *os.File
	sc  *bufio.Scanner
	def model.Category
	row int
}

// NewJSONLSource opens the file.
func NewJSONLSource(cfg JSONLConfig) (*JSONLSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("jsonl source: path is required")
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("jsonl source: %w", err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &JSONLSource{f: f, sc: sc, def: model.ParseCategory(cfg.Category)}, nil
}

// Next returns the next trip. Blank lines are ignored.
func (s *JSONLSource) Next(ctx context.Context) (model.TripRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.TripRecord{}, err
	}
	for s.sc.Scan() {
		line := bytes.TrimSpace(s.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		s.row++
		obj := map[string]any{}
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return model.TripRecord{}, &model.RecordError{Row: s.row, Err: fmt.Errorf("decode: %v: %w", err, model.ErrInvalidTrip)}
		}
		fields := make(map[string]any, len(obj))
		for k, v := range obj {
			fields[strings.ToLower(k)] = v
		}
		get := func(field string) string {
			for _, a := range fieldAliases[field] {
				if v, ok := fields[a]; ok {
					return text(v)
				}
			}
			return ""
		}
		return rawTrip{
			Category:   get(fieldCategory),
			Passengers: get(fieldPassengers),
			Distance:   get(fieldDistance),
			Pickup:     get(fieldPickup),
			Dropoff:    get(fieldDropoff),
		}.parse(s.row, s.def)
	}
	if err := s.sc.Err(); err != nil {
		return model.TripRecord{}, fmt.Errorf("jsonl source: %w", err)
	}
	return model.TripRecord{}, io.EOF
}

// Close closes the underlying file.
func (s *JSONLSource) Close() error { return s.f.Close() }

func newJSONLFromConf(conf map[string]any) (*JSONLSource, error) {
	var c JSONLConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return NewJSONLSource(c)
}
