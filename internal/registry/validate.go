package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/qgraph/internal/ctxlog"
)

// ValidateRegistry checks every manifest class for internal consistency:
// connection names are unique across categories, and a dataset type used by
// several connections of one class is declared with the same dimensions.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		for _, e := range r.classes[name] {
			m, ok := e.class.(*ManifestClass)
			if !ok {
				continue
			}
			connNames := make(map[string]Category)
			typeDims := make(map[string]string)
			for cat, conns := range m.connections {
				if len(conns) == 0 && Category(cat) == Output {
					logger.Warn("Task class declares no outputs; its quanta are always skipped when existing outputs are skipped.", "task_class", name)
				}
				for _, c := range conns {
					if prev, dup := connNames[c.Name]; dup {
						errs = append(errs, fmt.Sprintf("task class '%s': connection '%s' declared as both %s and %s", name, c.Name, prev, Category(cat)))
						continue
					}
					connNames[c.Name] = Category(cat)

					dims := strings.Join(c.Dimensions, ",")
					if prev, seen := typeDims[c.DatasetType]; seen && prev != dims {
						errs = append(errs, fmt.Sprintf("task class '%s': dataset type '%s' declared with dimensions [%s] and [%s]", name, c.DatasetType, prev, dims))
						continue
					}
					typeDims[c.DatasetType] = dims
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
