// Package metadata builds the immutable structural model of a mapped domain:
// annotations, classes, fields and the relationships between them.
//
// The model is built once at startup by Build and is read-only afterwards, so
// a single *Model can be shared by any number of sessions without locking.
package metadata

// Qualified names of the annotations understood by the mapper.
const (
	AnnotationNodeEntity         = "ogm.NodeEntity"
	AnnotationRelationshipEntity = "ogm.RelationshipEntity"
	AnnotationID                 = "ogm.Id"
	AnnotationProperty           = "ogm.Property"
	AnnotationRelationship       = "ogm.Relationship"
	AnnotationStartNode          = "ogm.StartNode"
	AnnotationEndNode            = "ogm.EndNode"
	AnnotationConvert            = "ogm.Convert"
	AnnotationTransient          = "ogm.Transient"
	AnnotationVersion            = "ogm.Version"
)

// AnnotationInfo is one parsed annotation: a name and an ordered list of
// attributes. It is immutable once created.
type AnnotationInfo struct {
	name   string
	keys   []string
	values map[string]string
}

// NewAnnotationInfo creates an annotation from alternating key/value pairs.
// A trailing key without a value is stored with an empty value.
func NewAnnotationInfo(name string, kv ...string) *AnnotationInfo {
	info := &AnnotationInfo{name: name, values: make(map[string]string, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		val := ""
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		info = info.with(kv[i], val)
	}
	return info
}

// with returns a copy of the annotation with the attribute set. Existing keys
// keep their position.
func (a *AnnotationInfo) with(key, value string) *AnnotationInfo {
	next := &AnnotationInfo{
		name:   a.name,
		keys:   append([]string(nil), a.keys...),
		values: make(map[string]string, len(a.values)+1),
	}
	for k, v := range a.values {
		next.values[k] = v
	}
	if _, ok := next.values[key]; !ok {
		next.keys = append(next.keys, key)
	}
	next.values[key] = value
	return next
}

// Name returns the qualified annotation name.
func (a *AnnotationInfo) Name() string { return a.name }

// Keys returns the attribute names in declaration order.
func (a *AnnotationInfo) Keys() []string {
	return append([]string(nil), a.keys...)
}

// Get returns the value of an attribute.
func (a *AnnotationInfo) Get(key string) (string, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Value returns the attribute value, or def when the attribute is missing or empty.
func (a *AnnotationInfo) Value(key, def string) string {
	if v, ok := a.values[key]; ok && v != "" {
		return v
	}
	return def
}

// AnnotationsInfo holds at most one AnnotationInfo per name for a class or field.
type AnnotationsInfo struct {
	byName map[string]*AnnotationInfo
	order  []string
}

// NewAnnotationsInfo returns an index holding the given annotations. Later
// entries override earlier ones with the same name.
func NewAnnotationsInfo(infos ...*AnnotationInfo) *AnnotationsInfo {
	a := &AnnotationsInfo{byName: make(map[string]*AnnotationInfo, len(infos))}
	for _, info := range infos {
		a.Add(info)
	}
	return a
}

// Add stores info, replacing any annotation with the same name.
func (a *AnnotationsInfo) Add(info *AnnotationInfo) {
	if info == nil {
		return
	}
	if a.byName == nil {
		a.byName = make(map[string]*AnnotationInfo)
	}
	if _, ok := a.byName[info.name]; !ok {
		a.order = append(a.order, info.name)
	}
	a.byName[info.name] = info
}

// Get returns the annotation with the given name or nil if it is not present.
func (a *AnnotationsInfo) Get(name string) *AnnotationInfo {
	if a == nil {
		return nil
	}
	return a.byName[name]
}

// Has reports whether the named annotation is present.
func (a *AnnotationsInfo) Has(name string) bool {
	return a.Get(name) != nil
}

// List returns all annotations. Callers must not rely on the order.
func (a *AnnotationsInfo) List() []*AnnotationInfo {
	if a == nil {
		return nil
	}
	out := make([]*AnnotationInfo, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.byName[name])
	}
	return out
}

// Len returns the number of annotations.
func (a *AnnotationsInfo) Len() int {
	if a == nil {
		return 0
	}
	return len(a.byName)
}

// Append merges other into a. Entries of other override entries of a that
// share their name.
func (a *AnnotationsInfo) Append(other *AnnotationsInfo) {
	for _, info := range other.List() {
		a.Add(info)
	}
}

// clone returns an independent copy of the index.
func (a *AnnotationsInfo) clone() *AnnotationsInfo {
	return NewAnnotationsInfo(a.List()...)
}
