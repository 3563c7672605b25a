// Package dataset defines the data model shared by the catalog, the graph
// builder and the quantum graph: dataset types, data coordinates and dataset
// references.
package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// DatasetType is a named kind of data product, typed by the dimensions that
// identify its instances. Identity is the name.
type DatasetType struct {
	Name       string
	Dimensions []string
}

// NewDatasetType returns a dataset type with a sorted, de-duplicated copy of dims.
func NewDatasetType(name string, dims ...string) DatasetType {
	return DatasetType{Name: name, Dimensions: SortedUnique(dims)}
}

func (t DatasetType) String() string {
	return fmt.Sprintf("%s(%s)", t.Name, strings.Join(t.Dimensions, ", "))
}

// DatasetID is the catalog identity of an existing dataset. NoID means the
// dataset has not been produced or registered yet.
type DatasetID int64

// NoID marks a reference to a dataset that does not exist yet.
const NoID DatasetID = 0

// DatasetRef references one dataset instance.
type DatasetRef struct {
	Type   DatasetType
	DataID DataCoordinate
	ID     DatasetID
}

// NewRef returns a reference to a dataset that does not exist yet.
func NewRef(t DatasetType, dataID DataCoordinate) DatasetRef {
	return DatasetRef{Type: t, DataID: dataID}
}

// Exists reports whether the reference carries a catalog identity.
func (r DatasetRef) Exists() bool { return r.ID != NoID }

// Key identifies the dataset instance: type name plus coordinate key.
func (r DatasetRef) Key() string {
	return r.Type.Name + "/" + r.DataID.Key()
}

func (r DatasetRef) String() string {
	if r.Exists() {
		return fmt.Sprintf("%s@%s#%d", r.Type.Name, r.DataID, r.ID)
	}
	return fmt.Sprintf("%s@%s", r.Type.Name, r.DataID)
}

// SortRefs orders refs by dataset type name, then by coordinate key.
func SortRefs(refs []DatasetRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Type.Name != refs[j].Type.Name {
			return refs[i].Type.Name < refs[j].Type.Name
		}
		return refs[i].DataID.Key() < refs[j].DataID.Key()
	})
}

// SortTypes orders dataset types by name.
func SortTypes(types []DatasetType) {
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
}

// TypeNames returns the names of types, in order.
func TypeNames(types []DatasetType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.Name
	}
	return out
}

// SortedUnique returns a sorted copy of names with duplicates removed.
func SortedUnique(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
