// Package mapping hydrates graph query results into domain objects and keeps
// the per-unit-of-work identity map and snapshots those objects are diffed
// against on save.
package mapping

// NodeRecord is a node as returned by the store.
type NodeRecord struct {
	ID     int64
	Labels []string
	Props  map[string]any
}

// RelationshipRecord is a relationship as returned by the store.
type RelationshipRecord struct {
	ID      int64
	Type    string
	StartID int64
	EndID   int64
	Props   map[string]any
}

// Row is one result row. Cells hold scalars, NodeRecord, RelationshipRecord
// (or pointers to them) or nested []any of those. Columns keep the order the
// query returned them in.
type Row struct {
	Keys   []string
	Values []any
}

// NewRow builds a row from alternating column names and cells.
func NewRow(kv ...any) Row {
	var r Row
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		r.Keys = append(r.Keys, key)
		r.Values = append(r.Values, kv[i+1])
	}
	return r
}

// Get returns the cell of a column.
func (r Row) Get(column string) (any, bool) {
	for i, k := range r.Keys {
		if k == column && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// RootSpec selects which hydrated objects are returned as roots. With Column
// set, entities found in that column are roots; with Class set, every entity
// of that class (or a subtype) is a root. Both may be combined.
type RootSpec struct {
	Column string
	Class  string
}

// flatten appends every node and relationship record found in cell,
// descending into nested lists.
func flatten(cell any, nodes *[]NodeRecord, rels *[]RelationshipRecord) {
	switch v := cell.(type) {
	case NodeRecord:
		*nodes = append(*nodes, v)
	case *NodeRecord:
		if v != nil {
			*nodes = append(*nodes, *v)
		}
	case RelationshipRecord:
		*rels = append(*rels, v)
	case *RelationshipRecord:
		if v != nil {
			*rels = append(*rels, *v)
		}
	case []any:
		for _, item := range v {
			flatten(item, nodes, rels)
		}
	}
}
