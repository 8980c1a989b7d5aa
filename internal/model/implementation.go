package model

import "strings"

// ImplementationComponents groups the four implementation surfaces a
// requirement touches. A dotted entry ("Class.method") is interpreted by
// visualization layers as a class member; ClassMember exposes that split.
type ImplementationComponents struct {
	Frontend   []string `json:"frontend,omitempty"`
	Backend    []string `json:"backend,omitempty"`
	Middleware []string `json:"middleware,omitempty"`
	Shared     []string `json:"shared,omitempty"`
}

// IsEmpty reports whether no component lists hold any entries.
func (ic *ImplementationComponents) IsEmpty() bool {
	if ic == nil {
		return true
	}
	return len(ic.Frontend) == 0 && len(ic.Backend) == 0 && len(ic.Middleware) == 0 && len(ic.Shared) == 0
}

// Layers returns the set of layers ("frontend", "backend", "middleware",
// "shared") that have at least one entry — used by the decomposition
// engine's ADaPT complexity assessment (spec.md §4.4) to count distinct
// affected layers.
func (ic *ImplementationComponents) Layers() []string {
	if ic == nil {
		return nil
	}
	var layers []string
	if len(ic.Frontend) > 0 {
		layers = append(layers, "frontend")
	}
	if len(ic.Backend) > 0 {
		layers = append(layers, "backend")
	}
	if len(ic.Middleware) > 0 {
		layers = append(layers, "middleware")
	}
	if len(ic.Shared) > 0 {
		layers = append(layers, "shared")
	}
	return layers
}

// ClassMember splits a dotted "Class.method" entry into (class, method, ok).
// ok is false when entry has no dot, in which case it is a bare symbol.
func ClassMember(entry string) (class, method string, ok bool) {
	idx := strings.LastIndex(entry, ".")
	if idx < 0 {
		return "", entry, false
	}
	return entry[:idx], entry[idx+1:], true
}

// PropertyType enumerates the kind of testable property a requirement
// carries.
type PropertyType string

const (
	PropertyInvariant   PropertyType = "invariant"
	PropertyRoundTrip   PropertyType = "round_trip"
	PropertyIdempotence PropertyType = "idempotence"
	PropertyOracle      PropertyType = "oracle"
)

// TestableProperty is a single property-based test specification attached
// to a requirement.
type TestableProperty struct {
	Criterion    string       `json:"criterion"`
	PropertyType PropertyType `json:"property_type"`
	StrategySpec string       `json:"strategy_spec,omitempty"`
	TestSkeleton string       `json:"test_skeleton,omitempty"`
}
