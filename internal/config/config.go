// Package config loads the batch and server settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/insightdelivered/statement-batch/internal/parser"
	"github.com/insightdelivered/statement-batch/internal/writer"
)

// ErrInvalid is returned for configuration that cannot drive a run.
var ErrInvalid = errors.New("invalid configuration")

// DefaultWorkbook is the workbook file name used when the workbook is
// switched on without a name.
const DefaultWorkbook = "statements_all.xlsx"

// Config holds all settings.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// InputConfig selects the documents of a batch.
type InputConfig struct {
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
	Limit   int    `yaml:"limit"`
}

// OutputConfig names the files a run writes. Names are relative to Dir.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	Accounts     string `yaml:"accounts"`
	Transactions string `yaml:"transactions"`
	Failures     string `yaml:"failures"`
	AuditLog     string `yaml:"audit_log"`
	Workbook     string `yaml:"workbook"` // empty disables
}

// ExtractionConfig tunes field and table extraction.
type ExtractionConfig struct {
	FieldPages     int                `yaml:"field_pages"`
	HeaderScanRows int                `yaml:"header_scan_rows"`
	Placeholder    string             `yaml:"placeholder"`
	FieldRules     []parser.FieldRule `yaml:"field_rules"`
	PeriodPattern  string             `yaml:"period_pattern"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Load reads configuration from a YAML file and applies environment overrides.
// A .env file in the working directory is honoured when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns the settings of a plain batch run over ./data.
func DefaultConfig() *Config {
	opts := parser.DefaultOptions()
	rules := make([]parser.FieldRule, len(opts.FieldRules))
	copy(rules, opts.FieldRules)

	return &Config{
		Input: InputConfig{
			Dir:     "data",
			Pattern: "*.pdf",
			Limit:   100,
		},
		Output: OutputConfig{
			Dir:          "output",
			Accounts:     "accounts_all.csv",
			Transactions: "transactions_all.csv",
			Failures:     "failed_files.csv",
			AuditLog:     "run_log.txt",
		},
		Extraction: ExtractionConfig{
			FieldPages:     opts.FieldPages,
			HeaderScanRows: opts.HeaderScanRows,
			Placeholder:    opts.Placeholder,
			FieldRules:     rules,
			PeriodPattern:  opts.PeriodPattern,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Input.Dir == "" {
		return fmt.Errorf("%w: input dir is empty", ErrInvalid)
	}
	if c.Input.Limit < 1 {
		return fmt.Errorf("%w: limit must be at least 1, got %d", ErrInvalid, c.Input.Limit)
	}
	if _, err := filepath.Match(c.Input.Pattern, ""); err != nil || c.Input.Pattern == "" {
		return fmt.Errorf("%w: bad input pattern %q", ErrInvalid, c.Input.Pattern)
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("%w: output dir is empty", ErrInvalid)
	}
	if c.Output.Accounts == "" || c.Output.Transactions == "" || c.Output.Failures == "" || c.Output.AuditLog == "" {
		return fmt.Errorf("%w: output file names must not be empty", ErrInvalid)
	}

	if c.Extraction.FieldPages < 1 {
		return fmt.Errorf("%w: field_pages must be at least 1", ErrInvalid)
	}
	if c.Extraction.HeaderScanRows < 1 {
		return fmt.Errorf("%w: header_scan_rows must be at least 1", ErrInvalid)
	}
	if _, err := parser.New(c.ParserOptions()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return nil
}

// ParserOptions converts the extraction settings.
func (c *Config) ParserOptions() parser.Options {
	return parser.Options{
		FieldRules:     c.Extraction.FieldRules,
		PeriodPattern:  c.Extraction.PeriodPattern,
		FieldPages:     c.Extraction.FieldPages,
		HeaderScanRows: c.Extraction.HeaderScanRows,
		Placeholder:    c.Extraction.Placeholder,
	}
}

// WriterPaths converts the output settings.
func (c *Config) WriterPaths() writer.Paths {
	return writer.Paths{
		Dir:          c.Output.Dir,
		Accounts:     c.Output.Accounts,
		Transactions: c.Output.Transactions,
		Failures:     c.Output.Failures,
		Workbook:     c.Output.Workbook,
	}
}

// AuditLogPath is the full path of the run log.
func (c *Config) AuditLogPath() string {
	return filepath.Join(c.Output.Dir, c.Output.AuditLog)
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("STATEMENT_INPUT_DIR"); v != "" {
		cfg.Input.Dir = v
	}

	if v := os.Getenv("STATEMENT_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}

	if v := os.Getenv("STATEMENT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: STATEMENT_LIMIT %q is not a number", ErrInvalid, v)
		}
		cfg.Input.Limit = n
	}

	if v := os.Getenv("STATEMENT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("STATEMENT_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	return nil
}
