package metadata

import (
	"reflect"
	"strings"
)

// TagName is the struct tag key read by Scan.
const TagName = "ogm"

// Node is embedded into a struct to mark it as a node entity. Its tag carries
// the class-level annotations, e.g.
//
//	type Human struct {
//		metadata.Node `ogm:"label:Human"`
//		ID   *int64 `ogm:"id"`
//		Name string `ogm:"property"`
//	}
type Node struct{}

// Relationship is embedded into a struct to mark it as a relationship entity.
// The struct must declare one `ogm:"start"` and one `ogm:"end"` field.
type Relationship struct{}

var (
	nodeMarker         = reflect.TypeOf(Node{})
	relationshipMarker = reflect.TypeOf(Relationship{})
)

// TypeDescriptor is the discovery input for one candidate domain type.
type TypeDescriptor struct {
	// Name is the type name used as class name. Defaults label and type names.
	Name string
	// Super names the supertype, empty when there is none.
	Super string
	// SuperIndex is the index of the embedded supertype field in Type.
	SuperIndex []int
	// Annotations are the class-level annotations.
	Annotations []*AnnotationInfo
	// Fields are the fields declared directly on the type.
	Fields []FieldDescriptor
	// Type is the struct type. It may be nil for models that are only
	// inspected, never hydrated.
	Type reflect.Type
}

// FieldDescriptor describes one declared field.
type FieldDescriptor struct {
	Name        string
	Type        DeclaredType
	Annotations []*AnnotationInfo
	// Index is the reflect field index relative to the declaring struct.
	Index []int
}

// DeclaredType is the declared type of a field.
type DeclaredType struct {
	// Name is the element type name: the struct name for entity references,
	// the Go type string otherwise.
	Name string
	// Collection is set for slices of the element type.
	Collection bool
	// Go is the full field type, nil for descriptor-only models.
	Go reflect.Type
}

// Scan builds type descriptors from the given struct values or types. Entity
// types referenced from fields or embedded as supertypes are scanned as well.
func Scan(values ...any) ([]TypeDescriptor, error) {
	s := &scanner{seen: make(map[reflect.Type]bool)}
	for _, v := range values {
		var typ reflect.Type
		if t, ok := v.(reflect.Type); ok {
			typ = t
		} else {
			typ = reflect.TypeOf(v)
		}
		if typ == nil {
			return nil, configErrorf("", "", "cannot scan nil value")
		}
		for typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
		if typ.Kind() != reflect.Struct {
			return nil, configErrorf(typ.String(), "", "type is not a struct")
		}
		s.queue = append(s.queue, typ)
	}
	for len(s.queue) > 0 {
		typ := s.queue[0]
		s.queue = s.queue[1:]
		if s.seen[typ] {
			continue
		}
		s.seen[typ] = true
		desc, err := s.describe(typ)
		if err != nil {
			return nil, err
		}
		s.out = append(s.out, desc)
	}
	return s.out, nil
}

type scanner struct {
	seen  map[reflect.Type]bool
	queue []reflect.Type
	out   []TypeDescriptor
}

func (s *scanner) describe(typ reflect.Type) (TypeDescriptor, error) {
	desc := TypeDescriptor{Name: typ.Name(), Type: typ}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get(TagName)

		if field.Anonymous {
			ft := field.Type
			switch {
			case ft == nodeMarker:
				anns, err := parseClassTag(desc.Name, tag, AnnotationNodeEntity)
				if err != nil {
					return desc, err
				}
				desc.Annotations = append(desc.Annotations, anns...)
			case ft == relationshipMarker:
				anns, err := parseClassTag(desc.Name, tag, AnnotationRelationshipEntity)
				if err != nil {
					return desc, err
				}
				desc.Annotations = append(desc.Annotations, anns...)
			case ft.Kind() == reflect.Struct && isEntity(ft):
				if desc.Super != "" {
					return desc, configErrorf(desc.Name, field.Name, "multiple embedded supertypes (%s, %s)", desc.Super, ft.Name())
				}
				desc.Super = ft.Name()
				desc.SuperIndex = field.Index
				s.queue = append(s.queue, ft)
			}
			continue
		}
		if !field.IsExported() {
			continue
		}

		anns, err := parseFieldTag(desc.Name, field.Name, tag)
		if err != nil {
			return desc, err
		}
		declared := declaredTypeOf(field.Type)
		if elem := elementType(field.Type); elem.Kind() == reflect.Struct && isEntity(elem) {
			s.queue = append(s.queue, elem)
		}
		desc.Fields = append(desc.Fields, FieldDescriptor{
			Name:        field.Name,
			Type:        declared,
			Annotations: anns,
			Index:       field.Index,
		})
	}
	return desc, nil
}

// isEntity reports whether typ embeds a marker, directly or through an
// embedded entity.
func isEntity(typ reflect.Type) bool {
	if typ.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.Anonymous {
			continue
		}
		if f.Type == nodeMarker || f.Type == relationshipMarker || isEntity(f.Type) {
			return true
		}
	}
	return false
}

// elementType strips slices and pointers.
func elementType(t reflect.Type) reflect.Type {
	for {
		switch {
		case t.Kind() == reflect.Ptr:
			t = t.Elem()
		case t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8:
			t = t.Elem()
		default:
			return t
		}
	}
}

func declaredTypeOf(t reflect.Type) DeclaredType {
	d := DeclaredType{Go: t}
	if t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8 {
		d.Collection = true
	}
	elem := elementType(t)
	if elem.Kind() == reflect.Struct && isEntity(elem) {
		d.Name = elem.Name()
	} else if d.Collection {
		d.Name = t.Elem().String()
	} else {
		d.Name = t.String()
	}
	return d
}

// parseClassTag parses the tag of an embedded marker. The marker itself
// always yields its annotation, with `label:` or `type:` attributes attached.
func parseClassTag(class, tag, marker string) ([]*AnnotationInfo, error) {
	info := NewAnnotationInfo(marker)
	for _, part := range splitTag(tag) {
		key, value, _ := strings.Cut(part, ":")
		switch {
		case key == "label" && marker == AnnotationNodeEntity:
			info = info.with("label", value)
		case key == "type" && marker == AnnotationRelationshipEntity:
			info = info.with("type", value)
		default:
			return nil, configErrorf(class, "", "unknown class tag component %q", part)
		}
	}
	return []*AnnotationInfo{info}, nil
}

// parseFieldTag turns an `ogm` field tag into annotations.
func parseFieldTag(class, field, tag string) ([]*AnnotationInfo, error) {
	anns := NewAnnotationsInfo()
	for _, part := range splitTag(tag) {
		key, value, hasValue := strings.Cut(part, ":")
		switch key {
		case "-":
			anns.Add(NewAnnotationInfo(AnnotationTransient))
		case "id":
			anns.Add(NewAnnotationInfo(AnnotationID))
		case "version":
			anns.Add(NewAnnotationInfo(AnnotationVersion))
		case "start":
			anns.Add(NewAnnotationInfo(AnnotationStartNode))
		case "end":
			anns.Add(NewAnnotationInfo(AnnotationEndNode))
		case "property":
			if hasValue {
				anns.Add(NewAnnotationInfo(AnnotationProperty, "name", value))
			} else {
				anns.Add(NewAnnotationInfo(AnnotationProperty))
			}
		case "relationship":
			rel := anns.Get(AnnotationRelationship)
			if rel == nil {
				rel = NewAnnotationInfo(AnnotationRelationship)
			}
			if hasValue {
				rel = rel.with("type", value)
			}
			anns.Add(rel)
		case "direction":
			rel := anns.Get(AnnotationRelationship)
			if rel == nil {
				rel = NewAnnotationInfo(AnnotationRelationship)
			}
			anns.Add(rel.with("direction", value))
		case "convert":
			if !hasValue || value == "" {
				return nil, configErrorf(class, field, "convert tag requires a converter name")
			}
			anns.Add(NewAnnotationInfo(AnnotationConvert, "converter", value))
		default:
			return nil, configErrorf(class, field, "unknown tag component %q", part)
		}
	}
	return anns.List(), nil
}

func splitTag(tag string) []string {
	if strings.TrimSpace(tag) == "" {
		return nil
	}
	parts := strings.Split(tag, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
