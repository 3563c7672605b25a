package hcl

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/qgraph/internal/config"
	"github.com/vk/qgraph/internal/ctxlog"
	"github.com/vk/qgraph/internal/fsutil"
	"github.com/vk/qgraph/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file reachable from paths and merges them into a
// single model. A path that does not exist is skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := config.NewModel()
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root schema.File
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		part, err := l.translateFile(&root)
		if err != nil {
			return nil, fmt.Errorf("failed to translate HCL file %s: %w", file, err)
		}
		model.Merge(part)
	}

	fixture := 0
	if model.Catalog != nil {
		fixture = len(model.Catalog.Datasets)
	}
	logger.Debug("HCL loading complete.",
		"dimensions", len(model.Dimensions),
		"task_classes", len(model.TaskClasses),
		"tasks", len(model.Tasks),
		"fixture_datasets", fixture,
	)
	return model, nil
}

// findAllHCLFiles expands paths into a sorted, de-duplicated list of .hcl files.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var all []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		found := []string{path}
		if info.IsDir() {
			found, err = fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
		} else if !fsutil.HasExtension(path, ".hcl") {
			continue
		}

		for _, f := range found {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			all = append(all, f)
		}
	}
	sort.Strings(all)
	return all, nil
}
