package cli

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by the CLI.
const (
	EnvCatalogDSN = "QGRAPH_CATALOG_DSN"
	EnvLogLevel   = "QGRAPH_LOG_LEVEL"
	EnvLogFormat  = "QGRAPH_LOG_FORMAT"
)

type envDefaults struct {
	catalogDSN string
	logLevel   string
	logFormat  string
}

// loadEnv reads .env if present and returns the flag defaults it implies.
// Variables already set in the process environment win over .env.
func loadEnv() envDefaults {
	_ = godotenv.Load()
	return envDefaults{
		catalogDSN: strings.TrimSpace(os.Getenv(EnvCatalogDSN)),
		logLevel:   firstNonEmpty(os.Getenv(EnvLogLevel), "info"),
		logFormat:  firstNonEmpty(os.Getenv(EnvLogFormat), "text"),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
