package metadata

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Model is the registry of all classes of a mapped domain. It is immutable
// after Build and safe for concurrent reads.
type Model struct {
	classes     map[string]*ClassModel
	order       []*ClassModel
	byType      map[reflect.Type]*ClassModel
	declaring   map[relationshipKey][]*ClassModel
	relEntities map[string][]*ClassModel
	converters  *ConverterRegistry
}

type relationshipKey struct {
	typ string
	dir Direction
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	converters *ConverterRegistry
	logger     *zap.Logger
}

// WithConverters sets the registry used to resolve `convert:` references.
func WithConverters(r *ConverterRegistry) Option {
	return func(o *buildOptions) { o.converters = r }
}

// WithLogger sets the logger used while building.
func WithLogger(l *zap.Logger) Option {
	return func(o *buildOptions) { o.logger = l }
}

// BuildFrom scans the given struct values and builds a model from them.
func BuildFrom(values []any, opts ...Option) (*Model, error) {
	types, err := Scan(values...)
	if err != nil {
		return nil, err
	}
	return Build(types, opts...)
}

// Build resolves the candidate types into a model. Any malformed or cyclic
// metadata is reported as a *ConfigurationError.
func Build(types []TypeDescriptor, opts ...Option) (*Model, error) {
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.converters == nil {
		o.converters = NewConverterRegistry()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	b := &builder{
		descs: make(map[string]*TypeDescriptor, len(types)),
		model: &Model{
			classes:     make(map[string]*ClassModel, len(types)),
			byType:      make(map[reflect.Type]*ClassModel, len(types)),
			declaring:   make(map[relationshipKey][]*ClassModel),
			relEntities: make(map[string][]*ClassModel),
			converters:  o.converters,
		},
		state: make(map[string]int, len(types)),
	}

	// 1. one class per candidate, own annotations only
	for i := range types {
		desc := &types[i]
		if desc.Name == "" {
			return nil, configErrorf("", "", "type descriptor without a name")
		}
		if _, dup := b.descs[desc.Name]; dup {
			return nil, configErrorf(desc.Name, "", "duplicate type name")
		}
		b.descs[desc.Name] = desc
	}
	for i := range types {
		desc := &types[i]
		class := &ClassModel{
			Name:        desc.Name,
			Annotations: NewAnnotationsInfo(desc.Annotations...),
			Type:        desc.Type,
			fields:      make(map[string]*FieldModel),
		}
		// supertypes outside the candidate set are ignored
		if _, ok := b.descs[desc.Super]; ok && desc.Super != "" {
			class.SuperName = desc.Super
		}
		b.model.classes[desc.Name] = class
		b.model.order = append(b.model.order, class)
		if desc.Type != nil {
			b.model.byType[desc.Type] = class
		}
	}

	// 2. supertype chains, annotations and labels
	for _, class := range b.model.order {
		if err := b.resolveHierarchy(class, nil); err != nil {
			return nil, err
		}
	}

	// 3, 4. fields, identity, classification; supertypes first
	done := make(map[string]bool, len(b.model.order))
	for _, class := range b.model.order {
		if err := b.resolveFields(class, done); err != nil {
			return nil, err
		}
	}

	// 5. reverse indexes
	for _, class := range b.model.order {
		if class.IsRelationshipEntity() {
			b.model.relEntities[class.RelationshipType] = append(b.model.relEntities[class.RelationshipType], class)
		}
		for _, f := range class.RelationshipFields() {
			key := relationshipKey{typ: f.Relationship.Type, dir: f.Relationship.Direction}
			if !containsClass(b.model.declaring[key], class) {
				b.model.declaring[key] = append(b.model.declaring[key], class)
			}
		}
	}

	o.logger.Debug("metadata model built",
		zap.Int("classes", len(b.model.order)),
		zap.Int("relationship_types", len(b.model.declaring)))
	return b.model, nil
}

const (
	unvisited = iota
	visiting
	resolved
)

type builder struct {
	descs map[string]*TypeDescriptor
	model *Model
	state map[string]int
}

func (b *builder) resolveHierarchy(class *ClassModel, path []string) error {
	switch b.state[class.Name] {
	case resolved:
		return nil
	case visiting:
		return configErrorf(class.Name, "", "supertype cycle: %s -> %s", strings.Join(path, " -> "), class.Name)
	}
	b.state[class.Name] = visiting
	path = append(path, class.Name)

	own := class.Annotations
	var super *ClassModel
	if class.SuperName != "" {
		super = b.model.classes[class.SuperName]
		if err := b.resolveHierarchy(super, path); err != nil {
			return err
		}
		merged := super.Annotations.clone()
		merged.Append(own)
		class.Annotations = merged
		class.super = super
	}

	if class.IsRelationshipEntity() {
		if own.Has(AnnotationNodeEntity) {
			return configErrorf(class.Name, "", "type is marked both as node and relationship entity")
		}
		class.RelationshipType = class.Annotations.Get(AnnotationRelationshipEntity).Value("type", RelationshipType(class.Name))
	} else {
		label := class.Name
		if ann := own.Get(AnnotationNodeEntity); ann != nil {
			label = ann.Value("label", class.Name)
		}
		class.Labels = []string{label}
		if super != nil {
			for _, l := range super.Labels {
				if l != label {
					class.Labels = append(class.Labels, l)
				}
			}
		}
	}

	b.state[class.Name] = resolved
	return nil
}

func (b *builder) resolveFields(class *ClassModel, done map[string]bool) error {
	if done[class.Name] {
		return nil
	}
	desc := b.descs[class.Name]

	var inherited []*FieldModel
	if class.super != nil {
		if err := b.resolveFields(class.super, done); err != nil {
			return err
		}
		declared := make(map[string]bool, len(desc.Fields))
		for _, f := range desc.Fields {
			declared[f.Name] = true
		}
		for _, f := range class.super.Fields {
			if declared[f.Name] {
				continue
			}
			copied := *f
			if f.Index != nil && desc.SuperIndex != nil {
				copied.Index = append(append([]int(nil), desc.SuperIndex...), f.Index...)
			}
			inherited = append(inherited, &copied)
		}
	}

	class.Fields = append(class.Fields, inherited...)
	for i := range desc.Fields {
		f, err := b.classifyField(class, &desc.Fields[i])
		if err != nil {
			return err
		}
		if f != nil {
			class.Fields = append(class.Fields, f)
		}
	}

	properties := make(map[string]string)
	for _, f := range class.Fields {
		class.fields[f.Name] = f
		switch {
		case f.Annotations.Has(AnnotationID):
			class.Identity = f
			continue
		case f.Annotations.Has(AnnotationStartNode):
			class.StartNode = f
		case f.Annotations.Has(AnnotationEndNode):
			class.EndNode = f
		}
		if f.Annotations.Has(AnnotationVersion) {
			class.Version = f
		}
		if f.IsProperty() {
			if other, dup := properties[f.Property]; dup {
				return configErrorf(class.Name, f.Name, "property %q already mapped by field %s", f.Property, other)
			}
			properties[f.Property] = f.Name
		}
	}

	if class.IsRelationshipEntity() {
		if class.StartNode == nil || class.EndNode == nil {
			return configErrorf(class.Name, "", "relationship entity requires one start and one end node field")
		}
		for _, f := range class.Fields {
			if f.Relationship != nil && f != class.StartNode && f != class.EndNode {
				return configErrorf(class.Name, f.Name, "relationship entities cannot declare relationship fields")
			}
		}
	} else if class.StartNode != nil || class.EndNode != nil {
		return configErrorf(class.Name, "", "start and end node fields are only allowed on relationship entities")
	}

	done[class.Name] = true
	return nil
}

func (b *builder) classifyField(class *ClassModel, desc *FieldDescriptor) (*FieldModel, error) {
	anns := NewAnnotationsInfo(desc.Annotations...)
	if anns.Has(AnnotationTransient) {
		return nil, nil
	}
	f := &FieldModel{
		Name:        desc.Name,
		Owner:       class.Name,
		Declared:    desc.Type,
		Annotations: anns,
		Index:       desc.Index,
	}

	if anns.Has(AnnotationID) {
		if t := desc.Type.Go; t != nil && !isInt64Slot(t) {
			return nil, configErrorf(class.Name, desc.Name, "identity field must be int64 or *int64, got %s", t)
		}
		f.Kind = KindScalar
		return f, nil
	}

	target, isRef := b.model.classes[desc.Type.Name]
	if isRef {
		return b.classifyReference(class, f, target)
	}
	if anns.Has(AnnotationRelationship) || anns.Has(AnnotationStartNode) || anns.Has(AnnotationEndNode) {
		return nil, configErrorf(class.Name, desc.Name, "relationship field must reference a mapped type, got %s", desc.Type.Name)
	}

	f.Property = PropertyName(desc.Name)
	if p := anns.Get(AnnotationProperty); p != nil {
		f.Property = p.Value("name", f.Property)
	}
	f.Kind = KindScalar
	if conv := anns.Get(AnnotationConvert); conv != nil {
		name := conv.Value("converter", "")
		c, ok := b.model.converters.Lookup(name)
		if !ok {
			return nil, configErrorf(class.Name, desc.Name, "unresolvable converter %q", name)
		}
		f.Kind = KindConvertible
		f.ConverterName = name
		f.Converter = c
	} else if t := desc.Type.Go; t != nil && !isPropertyType(t) {
		return nil, configErrorf(class.Name, desc.Name, "type %s cannot be stored as a property without a converter", t)
	}
	if anns.Has(AnnotationVersion) {
		if t := desc.Type.Go; t != nil && !isIntegerKind(t.Kind()) {
			return nil, configErrorf(class.Name, desc.Name, "version field must be an integer, got %s", t)
		}
	}
	return f, nil
}

func (b *builder) classifyReference(class *ClassModel, f *FieldModel, target *ClassModel) (*FieldModel, error) {
	if t := f.Declared.Go; t != nil && elementSlot(t).Kind() != reflect.Ptr {
		return nil, configErrorf(class.Name, f.Name, "entity references must be pointers, got %s", t)
	}
	f.Kind = KindReference
	if f.Declared.Collection {
		f.Kind = KindCollection
	}

	if f.Annotations.Has(AnnotationStartNode) || f.Annotations.Has(AnnotationEndNode) {
		if target.IsRelationshipEntity() || f.Declared.Collection {
			return nil, configErrorf(class.Name, f.Name, "start and end node fields must reference a single node entity")
		}
		f.Relationship = &RelationshipInfo{Type: class.RelationshipType, Target: target.Name}
		if f.Annotations.Has(AnnotationEndNode) {
			f.Relationship.Direction = Incoming
		}
		return f, nil
	}

	ann := f.Annotations.Get(AnnotationRelationship)
	if ann == nil {
		ann = NewAnnotationInfo(AnnotationRelationship)
	}
	dir, ok := ParseDirection(ann.Value("direction", ""))
	if !ok {
		return nil, configErrorf(class.Name, f.Name, "invalid relationship direction %q", ann.Value("direction", ""))
	}
	info := &RelationshipInfo{Direction: dir, Target: target.Name}
	if target.IsRelationshipEntity() {
		info.ViaEntity = true
		info.Type = target.RelationshipType
		if declared := ann.Value("type", ""); declared != "" && declared != target.RelationshipType {
			return nil, configErrorf(class.Name, f.Name, "relationship type %q conflicts with relationship entity %s of type %q", declared, target.Name, target.RelationshipType)
		}
	} else {
		info.Type = ann.Value("type", RelationshipType(f.Name))
	}
	f.Relationship = info
	return f, nil
}

// Class returns the class with the given name.
func (m *Model) Class(name string) (*ClassModel, bool) {
	c, ok := m.classes[name]
	return c, ok
}

// Classes returns every class in registration order.
func (m *Model) Classes() []*ClassModel {
	return append([]*ClassModel(nil), m.order...)
}

// ClassForType returns the class mapped to a struct type or pointer to it.
func (m *Model) ClassForType(t reflect.Type) (*ClassModel, bool) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	c, ok := m.byType[t]
	return c, ok
}

// ClassOf returns the class of an object.
func (m *Model) ClassOf(obj any) (*ClassModel, bool) {
	if obj == nil {
		return nil, false
	}
	return m.ClassForType(reflect.TypeOf(obj))
}

// Declaring returns the classes declaring a relationship of the given type
// and direction.
func (m *Model) Declaring(relType string, dir Direction) []*ClassModel {
	return append([]*ClassModel(nil), m.declaring[relationshipKey{typ: relType, dir: dir}]...)
}

// RelationshipEntities returns the relationship entity classes mapping relType.
func (m *Model) RelationshipEntities(relType string) []*ClassModel {
	return append([]*ClassModel(nil), m.relEntities[relType]...)
}

// RequiresEntity reports whether relType is mapped by a relationship entity.
func (m *Model) RequiresEntity(relType string) bool {
	return len(m.relEntities[relType]) > 0
}

// Converters returns the converter registry the model was built with.
func (m *Model) Converters() *ConverterRegistry { return m.converters }

// NodeClassesFor returns the maximally specific node classes whose label set
// is contained in labels. A caller gets exactly one class for an
// unambiguous record.
func (m *Model) NodeClassesFor(labels []string) []*ClassModel {
	have := make(map[string]bool, len(labels))
	for _, l := range labels {
		have[l] = true
	}
	var candidates []*ClassModel
	for _, c := range m.order {
		if c.IsRelationshipEntity() || len(c.Labels) == 0 {
			continue
		}
		match := true
		for _, l := range c.Labels {
			if !have[l] {
				match = false
				break
			}
		}
		if match {
			candidates = append(candidates, c)
		}
	}
	var out []*ClassModel
	for _, c := range candidates {
		general := false
		for _, other := range candidates {
			if other != c && other.IsA(c.Name) {
				general = true
				break
			}
		}
		if !general {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func containsClass(list []*ClassModel, c *ClassModel) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}

var timeType = reflect.TypeOf(time.Time{})

func isInt64Slot(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Int64
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// isPropertyType reports whether values of t can be stored as graph
// properties without conversion.
func isPropertyType(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String, reflect.Float32, reflect.Float64:
		return true
	case reflect.Uint, reflect.Uint64:
		// values above math.MaxInt64 have no int64 property form
		return false
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return true
		}
		return isPropertyType(t.Elem()) && t.Elem().Kind() != reflect.Slice
	default:
		return isIntegerKind(t.Kind())
	}
}
