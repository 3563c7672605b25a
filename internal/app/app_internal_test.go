package app

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/qgraph/internal/config"
	"github.com/vk/qgraph/internal/dataset"
	"github.com/vk/qgraph/internal/graph"
	"github.com/vk/qgraph/internal/pipeline"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := NewConfig(Config{PipelinePath: "pipeline.hcl"})
		require.NoError(t, err)
		assert.Equal(t, "text", cfg.OutputFormat)
		assert.Equal(t, 1, cfg.WorkerCount)
	})

	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "missing path", cfg: Config{}, wantErr: "PipelinePath is a required"},
		{name: "bad format", cfg: Config{PipelinePath: "p", OutputFormat: "yaml"}, wantErr: "invalid output format"},
		{name: "negative workers", cfg: Config{PipelinePath: "p", WorkerCount: -1}, wantErr: "invalid worker count"},
		{name: "seed without dsn", cfg: Config{PipelinePath: "p", SeedCatalog: true}, wantErr: "requires a catalog DSN"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "task", "isr")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"task":"isr"`)
}

func TestBuildUniverse(t *testing.T) {
	u, err := buildUniverse(&config.Model{})
	require.NoError(t, err)
	assert.True(t, u.Has("visit"), "no declared dimensions gives the default universe")

	u, err = buildUniverse(&config.Model{Dimensions: []*config.DimensionDefinition{
		{Name: "exposure"},
		{Name: "ccd", Links: []string{"exposure", "ccd"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ccd", "exposure"}, u.Names())
	assert.False(t, u.Has("visit"))

	_, err = buildUniverse(&config.Model{Dimensions: []*config.DimensionDefinition{{Name: "a"}, {Name: "a"}}})
	assert.ErrorContains(t, err, "declared more than once")
}

func TestBuildPipeline(t *testing.T) {
	p, err := buildPipeline(&config.Model{Tasks: []*config.Task{
		{Label: "isr", Class: "isr@^1", QuantumDimensions: []string{"visit"}, Connections: map[string]string{"calexp": "postISR"}},
	}})
	require.NoError(t, err)
	task, ok := p.Task("isr")
	require.True(t, ok)
	assert.Equal(t, "isr@^1", task.TaskName)
	assert.False(t, task.Resolved())
	assert.Equal(t, []string{"visit"}, task.Config.QuantumDimensions)
	assert.Equal(t, "postISR", task.Config.Connections["calexp"])

	_, err = buildPipeline(&config.Model{Tasks: []*config.Task{{Label: "a", Class: "x"}, {Label: "a", Class: "y"}}})
	assert.ErrorContains(t, err, "duplicate task label")
}

func TestMetricsMux(t *testing.T) {
	a := &App{logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))}
	srv := httptest.NewServer(a.metricsMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWriteSummary(t *testing.T) {
	calexp := dataset.NewDatasetType("calexp", "visit")
	id, err := dataset.CoordinateFromMap(map[string]any{"visit": 1})
	require.NoError(t, err)
	qg := graph.New(graph.Parts{
		Tasks: []graph.TaskNodes{{
			Task: pipeline.TaskDef{Label: "isr", TaskName: "isr@1.0.0"},
			Quanta: []graph.Quantum{{
				TaskLabel: "isr",
				DataID:    id,
				Outputs:   []dataset.DatasetRef{dataset.NewRef(calexp, id)},
			}},
		}},
		Outputs: []dataset.DatasetType{calexp},
	})

	var text bytes.Buffer
	require.NoError(t, writeSummary(&text, "text", qg))
	assert.Contains(t, text.String(), "Quantum graph: 1 tasks, 1 quanta")
	assert.Regexp(t, `isr\s+isr@1\.0\.0\s+1\s+-`, text.String())
	assert.Contains(t, text.String(), "Task order: isr")
	assert.Contains(t, text.String(), "Output dataset types: calexp")
	assert.Contains(t, text.String(), "Init inputs: -")

	var js bytes.Buffer
	require.NoError(t, writeSummary(&js, "json", qg))
	assert.Contains(t, js.String(), `"task_name": "isr@1.0.0"`)
}
