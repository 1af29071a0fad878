package metadata

import (
	"reflect"
	"strings"
)

// Direction is the direction of a relationship as seen from the declaring class.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Undirected
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "OUTGOING"
	case Incoming:
		return "INCOMING"
	case Undirected:
		return "UNDIRECTED"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection parses OUTGOING, INCOMING or UNDIRECTED, case-insensitively.
// The empty string yields the default Outgoing.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "OUTGOING":
		return Outgoing, true
	case "INCOMING":
		return Incoming, true
	case "UNDIRECTED":
		return Undirected, true
	default:
		return Outgoing, false
	}
}

// Reverse returns the direction seen from the other endpoint.
func (d Direction) Reverse() Direction {
	switch d {
	case Outgoing:
		return Incoming
	case Incoming:
		return Outgoing
	default:
		return d
	}
}

// FieldKind classifies a mapped field. The classification is done once when
// the model is built.
type FieldKind int

const (
	KindScalar FieldKind = iota
	KindConvertible
	KindReference
	KindCollection
)

func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindConvertible:
		return "convertible"
	case KindReference:
		return "reference"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// RelationshipInfo describes the relationship a reference or collection field maps to.
type RelationshipInfo struct {
	Type      string
	Direction Direction
	// Target is the class of the field's element type.
	Target string
	// ViaEntity is set when Target is a relationship entity.
	ViaEntity bool
}

// FieldModel is the structural description of one mapped field.
type FieldModel struct {
	Name string
	// Owner is the class that declares the field.
	Owner string
	Kind  FieldKind
	// Property is the graph property name for scalar and convertible fields.
	Property      string
	Declared      DeclaredType
	ConverterName string
	Converter     Converter
	Relationship  *RelationshipInfo
	Annotations   *AnnotationsInfo
	// Index is the reflect index path from the class's struct type.
	Index []int
}

// IsProperty reports whether the field is stored as a node or relationship property.
func (f *FieldModel) IsProperty() bool {
	return (f.Kind == KindScalar || f.Kind == KindConvertible) && f.Property != ""
}

// IsEndpoint reports whether the field is the start or end node of a
// relationship entity.
func (f *FieldModel) IsEndpoint() bool {
	return f.Annotations.Has(AnnotationStartNode) || f.Annotations.Has(AnnotationEndNode)
}

// Many reports whether the field holds several related objects.
func (f *FieldModel) Many() bool { return f.Kind == KindCollection }

// ClassModel is the structural description of one domain type.
type ClassModel struct {
	Name      string
	SuperName string
	// Labels holds the node labels, the class's own label first. Empty for
	// relationship entities.
	Labels []string
	// RelationshipType is set for relationship entities.
	RelationshipType string
	Annotations      *AnnotationsInfo
	Fields           []*FieldModel
	// Identity is the field holding the native id, nil when the class
	// declares none.
	Identity *FieldModel
	// Version is the optimistic locking field, if any.
	Version *FieldModel
	// StartNode and EndNode are set for relationship entities.
	StartNode *FieldModel
	EndNode   *FieldModel
	Type      reflect.Type

	super  *ClassModel
	fields map[string]*FieldModel
}

// Label returns the primary label or relationship type.
func (c *ClassModel) Label() string {
	if c.IsRelationshipEntity() {
		return c.RelationshipType
	}
	if len(c.Labels) == 0 {
		return ""
	}
	return c.Labels[0]
}

// IsRelationshipEntity reports whether the class maps a relationship.
func (c *ClassModel) IsRelationshipEntity() bool {
	return c.Annotations.Has(AnnotationRelationshipEntity)
}

// Super returns the resolved supertype, nil when there is none.
func (c *ClassModel) Super() *ClassModel { return c.super }

// Field returns the field with the given name.
func (c *ClassModel) Field(name string) (*FieldModel, bool) {
	f, ok := c.fields[name]
	return f, ok
}

// PropertyFields returns the scalar and convertible fields in declaration order.
func (c *ClassModel) PropertyFields() []*FieldModel {
	var out []*FieldModel
	for _, f := range c.Fields {
		if f.IsProperty() {
			out = append(out, f)
		}
	}
	return out
}

// RelationshipFields returns the fields mapping relationships, in declaration order.
func (c *ClassModel) RelationshipFields() []*FieldModel {
	var out []*FieldModel
	for _, f := range c.Fields {
		if f.Relationship != nil && !f.IsEndpoint() {
			out = append(out, f)
		}
	}
	return out
}

// IsA reports whether c is the named class or one of its subtypes.
func (c *ClassModel) IsA(name string) bool {
	for cur := c; cur != nil; cur = cur.super {
		if cur.Name == name {
			return true
		}
	}
	return false
}

// Accepts reports whether a field with element class target can hold an
// instance of c.
func (c *ClassModel) Accepts(target *FieldModel) bool {
	if target.Relationship == nil || !c.IsA(target.Relationship.Target) {
		return false
	}
	if c.Type == nil || target.Declared.Go == nil {
		return true
	}
	return reflect.PointerTo(c.Type).AssignableTo(elementSlot(target.Declared.Go))
}

// elementSlot returns the type of a single element of a reference or collection field.
func elementSlot(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Slice {
		return t.Elem()
	}
	return t
}
