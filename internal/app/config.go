package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // hcl file or directory

	Query            string
	SkipExisting     bool
	InputCollections []string
	OutputCollection string

	// CatalogDSN selects the Postgres catalog. When empty the catalog
	// fixture from the pipeline files is used.
	CatalogDSN  string
	SeedCatalog bool

	OutputFormat string // "text" or "json"
	LogFormat    string
	LogLevel     string
	MetricsPort  int
	WorkerCount  int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	switch cfg.OutputFormat {
	case "":
		cfg.OutputFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid output format %q: must be 'text' or 'json'", cfg.OutputFormat)
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("invalid worker count %d: must not be negative", cfg.WorkerCount)
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 1
	}
	if cfg.SeedCatalog && cfg.CatalogDSN == "" {
		return nil, errors.New("seeding the catalog requires a catalog DSN")
	}
	return &cfg, nil
}
