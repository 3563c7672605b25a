// Package dimension describes the dimension universe: the named axes that
// data coordinates assign values to, and the link columns that identify a
// single value of each dimension.
package dimension

import (
	"fmt"
	"sort"
)

// Dimension is a named axis of the data model. Links are the atomic identity
// columns that must be held fixed to pin down one value of the dimension,
// e.g. visit links to (instrument, visit).
type Dimension struct {
	Name  string
	Links []string
}

// Universe is a lookup table of known dimensions.
type Universe struct {
	dims map[string]Dimension
}

// NewUniverse builds a universe. A dimension declared without links links
// only to itself. Declaring a name twice is an error.
func NewUniverse(dims ...Dimension) (*Universe, error) {
	u := &Universe{dims: make(map[string]Dimension, len(dims))}
	for _, d := range dims {
		if d.Name == "" {
			return nil, fmt.Errorf("dimension with empty name")
		}
		if _, exists := u.dims[d.Name]; exists {
			return nil, fmt.Errorf("dimension %q declared more than once", d.Name)
		}
		links := d.Links
		if len(links) == 0 {
			links = []string{d.Name}
		}
		u.dims[d.Name] = Dimension{Name: d.Name, Links: append([]string(nil), links...)}
	}
	return u, nil
}

// Default returns the universe used when a pipeline declares no dimensions.
func Default() *Universe {
	u, err := NewUniverse(
		Dimension{Name: "instrument"},
		Dimension{Name: "skymap"},
		Dimension{Name: "abstract_filter"},
		Dimension{Name: "physical_filter", Links: []string{"instrument", "physical_filter"}},
		Dimension{Name: "detector", Links: []string{"instrument", "detector"}},
		Dimension{Name: "exposure", Links: []string{"instrument", "exposure"}},
		Dimension{Name: "visit", Links: []string{"instrument", "visit"}},
		Dimension{Name: "tract", Links: []string{"skymap", "tract"}},
		Dimension{Name: "patch", Links: []string{"skymap", "tract", "patch"}},
	)
	if err != nil {
		panic(err)
	}
	return u
}

// Dimension looks up a dimension by name.
func (u *Universe) Dimension(name string) (Dimension, error) {
	d, ok := u.dims[name]
	if !ok {
		return Dimension{}, fmt.Errorf("unknown dimension %q", name)
	}
	return d, nil
}

// Has reports whether name is a dimension or a link column of one.
func (u *Universe) Has(name string) bool {
	if _, ok := u.dims[name]; ok {
		return true
	}
	for _, d := range u.dims {
		for _, l := range d.Links {
			if l == name {
				return true
			}
		}
	}
	return false
}

// Names returns all declared dimension names, sorted.
func (u *Universe) Names() []string {
	out := make([]string, 0, len(u.dims))
	for name := range u.dims {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LinkSet expands names into their link columns, in declaration order with
// duplicates removed.
func (u *Universe) LinkSet(names []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	for _, name := range names {
		d, err := u.Dimension(name)
		if err != nil {
			return nil, err
		}
		for _, link := range d.Links {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			out = append(out, link)
		}
	}
	return out, nil
}
