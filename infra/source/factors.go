package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/kilianp07/taxico2/core/model"
)

var (
	factorCategoryCols = []string{"vehicle_type", "category", "color", "taxi_type"}
	// Rate columns with the divisor converting them to kg per mile.
	factorRateCols = []struct {
		name    string
		divisor float64
	}{
		{"co2_kg_per_mile", 1},
		{"co2_rate", 1},
		{"kg_per_mile", 1},
		{"co2_grams_per_mile", 1000},
		{"co2_g_per_mile", 1000},
	}
)

// CSVFactors loads the emissions factor table from a CSV file with a
// category column and a rate column in kg or grams per mile.
type CSVFactors struct {
	Path string
}

// Load reads and validates the table. A missing file or an empty table
// wraps model.ErrMissingFactors.
func (c CSVFactors) Load(ctx context.Context) (model.Factors, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Path == "" {
		return nil, fmt.Errorf("factor file not configured: %w", model.ErrMissingFactors)
	}
	f, err := os.Open(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", c.Path, model.ErrMissingFactors)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	factors, err := ReadFactors(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Path, err)
	}
	return factors, nil
}

// ReadFactors parses a factor table.
func ReadFactors(r io.Reader) (model.Factors, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty factor table: %w", model.ErrMissingFactors)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	catCol, rateCol, divisor := -1, -1, 1.0
	pos := map[string]int{}
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, n := range factorCategoryCols {
		if i, ok := pos[n]; ok {
			catCol = i
			break
		}
	}
	for _, rc := range factorRateCols {
		if i, ok := pos[rc.name]; ok {
			rateCol, divisor = i, rc.divisor
			break
		}
	}
	if catCol < 0 || rateCol < 0 {
		return nil, fmt.Errorf("factor table needs a category and a co2 rate column, got %v", header)
	}

	out := model.Factors{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cat := model.ParseCategory(rec[catCol])
		if cat == "" {
			continue
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(rec[rateCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: rate %q: %w", line, rec[rateCol], err)
		}
		if _, dup := out[cat]; dup {
			return nil, fmt.Errorf("line %d: duplicate factor for %s", line, cat)
		}
		out[cat] = rate / divisor
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
