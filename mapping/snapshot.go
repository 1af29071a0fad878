package mapping

import "reflect"

// NodeSnapshot is the last known persisted state of a node.
type NodeSnapshot struct {
	Labels []string
	Props  map[string]any
}

// RelationshipSnapshot is the last known persisted state of a relationship.
type RelationshipSnapshot struct {
	ID      int64
	Type    string
	StartID int64
	EndID   int64
	// Entity is set when the relationship is mapped by a relationship entity.
	Entity bool
	Props  map[string]any
}

// Touches reports whether nodeID is one of the relationship's endpoints.
func (r RelationshipSnapshot) Touches(nodeID int64) bool {
	return r.StartID == nodeID || r.EndID == nodeID
}

func (r RelationshipSnapshot) clone() RelationshipSnapshot {
	r.Props = CopyProps(r.Props)
	return r
}

// CopyProps returns a deep copy of a canonical property map. Snapshots never
// share storage with live objects or with each other.
func CopyProps(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = copyValue(x[i])
		}
		return out
	case []byte:
		return append([]byte(nil), x...)
	default:
		return v
	}
}

// PropsEqual compares two canonical property values.
func PropsEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

// ChangedProps returns the properties of current that differ from previous.
// Properties missing from current but present in previous are returned with
// a nil value, which removes them from the store.
func ChangedProps(previous, current map[string]any) map[string]any {
	changed := make(map[string]any)
	for k, v := range current {
		old, ok := previous[k]
		if !ok {
			if v != nil {
				changed[k] = v
			}
			continue
		}
		if !PropsEqual(old, v) {
			changed[k] = v
		}
	}
	for k, old := range previous {
		if _, ok := current[k]; !ok && old != nil {
			changed[k] = nil
		}
	}
	return changed
}
