package registry

import (
	"fmt"
	"sort"
)

// UnknownKindError indicates a lookup for a kind that was never registered.
// This is a code/schema gap, not a retryable condition.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown object kind %q", e.Kind)
}

// CoerceRule selects how a raw provider value maps to its local storage
// representation.
type CoerceRule int

const (
	// RuleString stores text; provider nulls become "" rather than NULL so
	// downstream queries never deal with three-valued text logic.
	RuleString CoerceRule = iota
	// RuleTimestamp converts an integer unix timestamp to a UTC time;
	// absent/null stays nil.
	RuleTimestamp
	// RuleInt stores integer amounts in the provider's smallest indivisible
	// unit. No float conversion happens on the way in.
	RuleInt
	// RuleBool stores a boolean; absent/null stays nil.
	RuleBool
	// RuleEnum behaves like RuleString but is validated against a known-value
	// set. Unknown members are retained, not rejected; the provider may add
	// enum members at any time and that must not break a sync.
	RuleEnum
	// RuleJSON stores nested non-relation data (metadata maps, lists) as an
	// opaque JSON document.
	RuleJSON
)

// FieldSpec declares one promoted column of a kind: where it comes from in
// the raw structure and how its value is coerced.
type FieldSpec struct {
	Column    string
	SourceKey string
	Rule      CoerceRule
	Known     []string // RuleEnum only
}

// RelationSpec declares a foreign-key-shaped field referencing another kind.
// The raw value is either a bare remote id or a fully embedded object; the
// relation resolver decides which and recurses accordingly.
type RelationSpec struct {
	Column     string
	SourceKey  string
	TargetKind string
}

// Descriptor is the schema of one kind: its table, promoted fields and
// relations, and its sync behavior flags.
type Descriptor struct {
	// Kind is the type tag objects of this descriptor carry, e.g. "customer".
	Kind string
	// Object is the value of the raw structure's "object" key. Usually equal
	// to Kind.
	Object string
	// Table is the local table objects of this kind are mirrored into.
	Table string
	// Immutable marks kinds that never change after creation on the provider
	// side. A locally present immutable object is never re-fetched.
	Immutable bool
	// InsertOnly marks kinds that are only ever inserted, never updated
	// (e.g. settled financial transactions).
	InsertOnly bool

	Fields    []FieldSpec
	Relations []RelationSpec
}

// Relation returns the relation spec for a column, or nil.
func (d *Descriptor) Relation(column string) *RelationSpec {
	for i := range d.Relations {
		if d.Relations[i].Column == column {
			return &d.Relations[i]
		}
	}
	return nil
}

// Registry maps kind tags to descriptors. New kinds are added by registering
// data, not by subclassing anything.
type Registry struct {
	kinds map[string]*Descriptor
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]*Descriptor)}
}

// Register associates a kind tag with its descriptor. Registering the same
// kind twice replaces the earlier descriptor.
func (r *Registry) Register(desc *Descriptor) {
	if desc.Object == "" {
		desc.Object = desc.Kind
	}
	r.kinds[desc.Kind] = desc
}

// Lookup returns the descriptor for a kind, or *UnknownKindError.
func (r *Registry) Lookup(kind string) (*Descriptor, error) {
	desc, ok := r.kinds[kind]
	if !ok {
		return nil, &UnknownKindError{Kind: kind}
	}
	return desc, nil
}

// Kinds returns all registered kind tags, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.kinds))
	for kind := range r.kinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
