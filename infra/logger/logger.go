package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	corelogger "github.com/kilianp07/taxico2/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.NopLogger

// Config selects the level and optional log file.
type Config struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 28
	}
}

// Validate checks the level name.
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

var (
	mu     sync.RWMutex
	output io.Writer = os.Stdout
	level            = zerolog.InfoLevel
	file   *lumberjack.Logger
)

// Configure sets the level and destination used by loggers created
// afterwards. When File is set, output goes to stdout and to a rotated file.
func Configure(cfg Config) error {
	cfg.SetDefaults()
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	var out io.Writer = os.Stdout
	var lj *lumberjack.Logger
	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		lj = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = io.MultiWriter(os.Stdout, lj)
	}
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		_ = file.Close()
	}
	output, level, file = out, lvl, lj
	return nil
}

// Close releases the log file opened by Configure.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	output = os.Stdout
	return err
}

// New returns a Logger for the given component. The environment is detected via
// the APP_ENV variable.
func New(component string) Logger {
	mu.RLock()
	out, lvl := output, level
	mu.RUnlock()
	return newZerologLogger(component, out, lvl)
}
