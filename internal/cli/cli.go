package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/qgraph/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Environment variables (optionally from a .env file) provide defaults that
// flags override.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	env := loadEnv()

	flagSet := flag.NewFlagSet("qgraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
qgraph - Build a quantum graph for a pipeline against a dataset catalog.

Usage:
  qgraph [options] [PIPELINE_PATH]

Arguments:
  PIPELINE_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Environment:
  QGRAPH_CATALOG_DSN, QGRAPH_LOG_LEVEL, QGRAPH_LOG_FORMAT
    Defaults for the matching flags. A .env file in the working directory
    is read if present.

Options:
`)
		flagSet.PrintDefaults()
	}

	pipelineFlag := flagSet.String("pipeline", "", "Path to the pipeline file or directory.")
	pFlag := flagSet.String("p", "", "Path to the pipeline file or directory (shorthand).")
	queryFlag := flagSet.String("query", "", "Selection expression restricting the data IDs, e.g. \"visit = 1 AND detector != 3\".")
	skipFlag := flagSet.Bool("skip-existing", true, "Drop quanta whose outputs all exist instead of failing.")
	inputsFlag := flagSet.String("input-collections", "", "Comma-separated collections searched for inputs, in priority order.")
	outputFlag := flagSet.String("output-collection", "", "Collection outputs are written to.")
	dsnFlag := flagSet.String("catalog-dsn", env.catalogDSN, "Postgres DSN of the catalog. Empty uses the catalog block of the pipeline files.")
	seedFlag := flagSet.Bool("seed-catalog", false, "Load the pipeline's catalog block into the Postgres catalog before building.")
	formatFlag := flagSet.String("format", "text", "Graph output format. Options: 'text' or 'json'.")
	logFormatFlag := flagSet.String("log-format", env.logFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", env.logLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	metricsPortFlag := flagSet.Int("metrics-port", 0, "Port for the /metrics and /health endpoints. 0 is disabled.")
	workersFlag := flagSet.Int("workers", 1, "Number of tasks assembled concurrently.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *pipelineFlag != "" {
		path = *pipelineFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Pipeline path determined.", "path", path)

	if path == "" {
		slog.Debug("No pipeline path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		PipelinePath:     path,
		Query:            *queryFlag,
		SkipExisting:     *skipFlag,
		InputCollections: splitList(*inputsFlag),
		OutputCollection: strings.TrimSpace(*outputFlag),
		CatalogDSN:       strings.TrimSpace(*dsnFlag),
		SeedCatalog:      *seedFlag,
		OutputFormat:     strings.ToLower(*formatFlag),
		LogFormat:        logFormat,
		LogLevel:         logLevel,
		MetricsPort:      *metricsPortFlag,
		WorkerCount:      *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "pipeline", config.PipelinePath)
	return config, false, nil
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
