// Package cypher compiles the difference between a unit of work's tracked
// snapshots and the current object graph into an ordered batch of Cypher
// statements, and folds the store's answers back into the mapping context.
package cypher

import (
	"fmt"

	"github.com/nioertel/neo4j-ogm/mapping"
	"github.com/nioertel/neo4j-ogm/metadata"
)

// Kind classifies a statement.
type Kind int

const (
	CreateNode Kind = iota
	UpdateNode
	DeleteNode
	CreateRelationship
	UpdateRelationship
	DeleteRelationship
)

func (k Kind) String() string {
	switch k {
	case CreateNode:
		return "create_node"
	case UpdateNode:
		return "update_node"
	case DeleteNode:
		return "delete_node"
	case CreateRelationship:
		return "create_relationship"
	case UpdateRelationship:
		return "update_relationship"
	case DeleteRelationship:
		return "delete_relationship"
	default:
		return "unknown"
	}
}

// Ref is a placeholder for the native id of an element created earlier in the
// same batch. Refs are negative; zero means no ref.
type Ref int64

// Statement is one parameterized Cypher statement of a batch. Every statement
// returns the native id of the element it touched in an "id" column.
type Statement struct {
	Kind   Kind
	Query  string
	Params map[string]any
	// Ref is the placeholder the id returned by a create statement is bound to.
	Ref Ref
	// ExpectRows is set when matching no row means the element changed or
	// vanished since it was read.
	ExpectRows bool
}

// Bind returns the parameters with every Ref replaced by the id created for it.
func (s Statement) Bind(created map[Ref]int64) (map[string]any, error) {
	out := make(map[string]any, len(s.Params))
	for k, v := range s.Params {
		ref, ok := v.(Ref)
		if !ok {
			out[k] = v
			continue
		}
		id, ok := created[ref]
		if !ok {
			return nil, fmt.Errorf("parameter %s refers to unresolved element %d", k, ref)
		}
		out[k] = id
	}
	return out, nil
}

type nodeChange struct {
	obj     any
	class   *metadata.ClassModel
	ref     Ref
	id      int64
	labels  []string
	props   map[string]any
	version *int64
}

type relChange struct {
	obj     any // nil for plain associations
	class   *metadata.ClassModel
	ref     Ref
	id      int64
	typ     string
	start   any
	end     any
	props   map[string]any
	version *int64
}

// Batch is the ordered statement list of one save or delete together with
// the bookkeeping needed to apply the store's answer.
type Batch struct {
	Statements []Statement

	nodes        []nodeChange
	rels         []relChange
	deletedNodes []int64
	deletedRels  []int64
}

// Len returns the number of statements.
func (b *Batch) Len() int { return len(b.Statements) }

// Empty reports whether the batch holds no statement.
func (b *Batch) Empty() bool { return len(b.Statements) == 0 }

// Count returns the number of statements of a kind.
func (b *Batch) Count(kind Kind) int {
	n := 0
	for _, s := range b.Statements {
		if s.Kind == kind {
			n++
		}
	}
	return n
}

// ApplyResults registers created elements under the ids the store assigned,
// refreshes the snapshot of every touched element and forgets deleted ones.
// It must only be called once the whole batch was acknowledged.
func ApplyResults(ctx *mapping.Context, batch *Batch, created map[Ref]int64) error {
	for _, n := range batch.nodes {
		if n.ref != 0 {
			if _, ok := created[n.ref]; !ok {
				return fmt.Errorf("no id returned for created %s", n.class.Name)
			}
		}
	}
	for _, r := range batch.rels {
		if r.ref != 0 {
			if _, ok := created[r.ref]; !ok {
				return fmt.Errorf("no id returned for created relationship %s", r.typ)
			}
		}
	}

	for _, id := range batch.deletedRels {
		ctx.RemoveRelationship(id)
	}

	// nodes before relationships so endpoint ids resolve
	for _, n := range batch.nodes {
		id := n.id
		if n.ref != 0 {
			id = created[n.ref]
		}
		labels := n.labels
		if prev, ok := ctx.NodeSnapshot(id); ok && len(prev.Labels) > 0 {
			labels = prev.Labels
		}
		snap := mapping.NodeSnapshot{Labels: labels, Props: n.props}
		if cur, ok := ctx.Node(id); ok && cur == n.obj {
			ctx.SetNodeSnapshot(id, snap)
		} else {
			ctx.RegisterNode(n.obj, id, snap)
		}
		if n.version != nil {
			if err := mapping.SetVersion(n.class, n.obj, *n.version); err != nil {
				return err
			}
		}
	}

	for _, r := range batch.rels {
		id := r.id
		if r.ref != 0 {
			id = created[r.ref]
		}
		startID, ok1 := ctx.NodeID(r.start)
		endID, ok2 := ctx.NodeID(r.end)
		if !ok1 || !ok2 {
			if prev, ok := ctx.Relationship(id); ok {
				startID, endID = prev.StartID, prev.EndID
			}
		}
		snap := mapping.RelationshipSnapshot{ID: id, Type: r.typ, StartID: startID, EndID: endID, Props: r.props}
		if r.obj != nil {
			ctx.RegisterRelationshipEntity(r.obj, snap)
			if r.version != nil {
				if err := mapping.SetVersion(r.class, r.obj, *r.version); err != nil {
					return err
				}
			}
			continue
		}
		ctx.PutRelationship(snap)
	}

	for _, id := range batch.deletedNodes {
		ctx.RemoveNode(id)
	}
	return nil
}
