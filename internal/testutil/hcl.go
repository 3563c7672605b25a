package testutil

import (
	"testing"

	"github.com/vk/qgraph/internal/app"
)

// CameraPipelineHCL is a two-task pipeline over two detectors of one visit:
// isr turns raw into calexp and char turns calexp into src.
const CameraPipelineHCL = `
task_class "isr" {
  version = "1.0.0"
  input "raw" { dimensions = ["instrument", "visit", "detector"] }
  output "calexp" { dimensions = ["instrument", "visit", "detector"] }
  init_input "camera" {}
  init_output "isr_config" {}
}

task_class "char" {
  input "calexp" { dimensions = ["instrument", "visit", "detector"] }
  output "src" { dimensions = ["instrument", "visit", "detector"] }
}

task "isr" {
  class              = "isr@^1.0"
  quantum_dimensions = ["visit", "detector"]
}

task "char" {
  class              = "char"
  quantum_dimensions = ["visit", "detector"]
}
`

// CameraCatalogHCL seeds the catalog used with CameraPipelineHCL: raw
// datasets for detectors 10 and 11 and the camera init dataset.
const CameraCatalogHCL = `
catalog {
  data_ids = [
    { instrument = "HSC", visit = 1, detector = 10 },
    { instrument = "HSC", visit = 1, detector = 11 },
  ]
  collection "defaults" { children = ["raw/all", "calib"] }
  dataset "raw" {
    collection = "raw/all"
    data_id    = { instrument = "HSC", visit = 1, detector = 10 }
  }
  dataset "raw" {
    collection = "raw/all"
    data_id    = { instrument = "HSC", visit = 1, detector = 11 }
  }
  dataset "camera" {
    collection = "calib"
    data_id    = {}
  }
}
`

// RunPipelineTest builds CameraCatalogHCL together with pipelineHCL, reading
// from the "defaults" chain and writing to "run/1".
func RunPipelineTest(t *testing.T, pipelineHCL string, cfg app.Config) *HarnessResult {
	t.Helper()

	files := map[string]string{
		"catalog.hcl":  CameraCatalogHCL,
		"pipeline.hcl": pipelineHCL,
	}
	if cfg.InputCollections == nil {
		cfg.InputCollections = []string{"defaults"}
	}
	if cfg.OutputCollection == "" {
		cfg.OutputCollection = "run/1"
	}
	return RunIntegrationTest(t, files, cfg)
}
