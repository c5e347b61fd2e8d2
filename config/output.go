package config

import "fmt"

// OutputConfig selects what a run writes. Empty paths are skipped.
type OutputConfig struct {
	// Format of the summary printed to stdout: "text", "json" or "none".
	Format      string `json:"format"`
	ReportJSON  string `json:"report_json"`
	ExtremesCSV string `json:"extremes_csv"`
	SeriesCSV   string `json:"series_csv"`
	ChartHTML   string `json:"chart_html"`
}

// SetDefaults applies default values.
func (c *OutputConfig) SetDefaults() {
	if c.Format == "" {
		c.Format = "text"
	}
}

// Validate checks the output format.
func (c OutputConfig) Validate() error {
	switch c.Format {
	case "text", "json", "none":
		return nil
	default:
		return fmt.Errorf("output.format: unknown format %q", c.Format)
	}
}

// StoreConfig enables persistence of the daily pivot.
type StoreConfig struct {
	SQLitePath string `json:"sqlite_path"`
}

// APIConfig configures the HTTP server started by serve.
type APIConfig struct {
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// SetDefaults applies default values.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
