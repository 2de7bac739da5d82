// Package naming gives components a stable, human-readable name.
package naming

import "strings"

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NamedBase is a base implementation of Named.
type NamedBase struct {
	name string
}

// Name returns the name of the object.
func (b *NamedBase) Name() string {
	return b.name
}

// MakeNamedBase creates a new NamedBase. Names must not be empty or contain
// white space, as they are used as keys in traces and monitoring URLs.
func MakeNamedBase(name string) NamedBase {
	if name == "" || strings.ContainsAny(name, " \t\n") {
		panic("invalid component name " + `"` + name + `"`)
	}

	return NamedBase{name: name}
}
