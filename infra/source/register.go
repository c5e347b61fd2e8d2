// Package source provides the trip sources and the factor loader used by
// the engine: CSV, JSON lines, SQLite and PostgreSQL.
package source

import (
	coresource "github.com/kilianp07/taxico2/core/source"
)

// init registers the built-in trip sources.
func init() {
	_ = coresource.RegisterTripSource("csv", func(conf map[string]any) (coresource.TripSource, error) {
		return newCSVFromConf(conf)
	})
	_ = coresource.RegisterTripSource("jsonl", func(conf map[string]any) (coresource.TripSource, error) {
		return newJSONLFromConf(conf)
	})
	_ = coresource.RegisterTripSource("sqlite", func(conf map[string]any) (coresource.TripSource, error) {
		return newSQLiteFromConf(conf)
	})
	_ = coresource.RegisterTripSource("postgres", func(conf map[string]any) (coresource.TripSource, error) {
		return newPostgresFromConf(conf)
	})
}
