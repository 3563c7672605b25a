package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/vk/qgraph/internal/config"
	"github.com/vk/qgraph/internal/pipeline"
	"github.com/vk/qgraph/internal/semver"
)

// ErrTaskClassNotFound is returned when no registered class matches a reference.
var ErrTaskClassNotFound = errors.New("task class not found")

// Module is the interface that Go packages providing task classes implement
// to be registered.
type Module interface {
	Register(r *Registry)
}

type entry struct {
	class   pipeline.TaskClass
	version semver.Version
}

// Registry holds all registered task classes for a single application instance.
type Registry struct {
	classes map[string][]entry
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{classes: make(map[string][]entry)}
}

// Add registers class under its name and version. An empty version
// registers the class unversioned.
func (r *Registry) Add(class pipeline.TaskClass, version string) error {
	name := class.Name()
	if name == "" || strings.Contains(name, "@") {
		return fmt.Errorf("invalid task class name %q", name)
	}
	var v semver.Version
	if version != "" {
		parsed, err := semver.ParseVersion(version)
		if err != nil {
			return fmt.Errorf("task class %q: %w", name, err)
		}
		v = parsed
	}
	for _, e := range r.classes[name] {
		if semver.Compare(e.version, v) == 0 {
			return fmt.Errorf("task class %q version %s already registered", name, v)
		}
	}
	slog.Debug("Registering task class.", "name", name, "version", v.String())
	r.classes[name] = append(r.classes[name], entry{class: class, version: v})
	return nil
}

// Register is Add for use from Module implementations; a conflicting
// registration is a programming error and panics.
func (r *Registry) Register(class pipeline.TaskClass, version string) {
	if err := r.Add(class, version); err != nil {
		panic(err)
	}
}

// RegisterModules calls Register on every module.
func (r *Registry) RegisterModules(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// PopulateFromModel registers a ManifestClass for every task class manifest
// in the model.
func (r *Registry) PopulateFromModel(model *config.Model) error {
	for _, def := range model.TaskClasses {
		if err := r.Add(NewManifestClass(def), def.Version); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the registered class names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.classes))
	for name := range r.classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LoadTaskClass resolves a task reference of the form "name" or
// "name@constraint" and returns the class with its canonical name.
func (r *Registry) LoadTaskClass(ref string) (pipeline.TaskClass, string, error) {
	name, rawConstraint, _ := strings.Cut(ref, "@")
	var constraint semver.Constraint
	if rawConstraint != "" {
		c, err := semver.ParseConstraint(rawConstraint)
		if err != nil {
			return nil, "", fmt.Errorf("task reference %q: %w", ref, err)
		}
		constraint = c
	}

	entries := r.classes[name]
	if len(entries) == 0 {
		return nil, "", fmt.Errorf("%w: %q", ErrTaskClassNotFound, ref)
	}

	versions := make([]semver.Version, len(entries))
	for i, e := range entries {
		versions[i] = e.version
	}
	best, ok := semver.MaxSatisfying(constraint, versions)
	if !ok {
		return nil, "", fmt.Errorf("%w: no version of %q satisfies %s", ErrTaskClassNotFound, name, constraint)
	}
	class := entries[slices.IndexFunc(entries, func(e entry) bool { return semver.Compare(e.version, best) == 0 })].class
	if best.IsZero() {
		return class, name, nil
	}
	return class, name + "@" + best.String(), nil
}
