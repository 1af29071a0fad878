package mapping

import (
	"sort"

	"github.com/nioertel/neo4j-ogm/metadata"
)

// Context is the identity map and snapshot store of one unit of work.
//
// Nodes and relationship entities are kept in separate identity maps because
// the store numbers nodes and relationships independently: a node and a
// relationship may share the same native id.
//
// A Context performs no locking and must only be used by one goroutine at a
// time.
type Context struct {
	model *metadata.Model

	nodes         map[int64]any
	nodeIDs       map[any]int64
	nodeSnapshots map[int64]NodeSnapshot

	relEntities   map[int64]any
	relEntityIDs  map[any]int64
	relationships map[int64]RelationshipSnapshot
	adjacency     map[int64]map[int64]struct{}
}

// NewContext returns an empty context for the given model.
func NewContext(model *metadata.Model) *Context {
	c := &Context{model: model}
	c.Clear()
	return c
}

// Model returns the metadata model the context maps against.
func (c *Context) Model() *metadata.Model { return c.model }

// Clear forgets every tracked object and snapshot.
func (c *Context) Clear() {
	c.nodes = make(map[int64]any)
	c.nodeIDs = make(map[any]int64)
	c.nodeSnapshots = make(map[int64]NodeSnapshot)
	c.relEntities = make(map[int64]any)
	c.relEntityIDs = make(map[any]int64)
	c.relationships = make(map[int64]RelationshipSnapshot)
	c.adjacency = make(map[int64]map[int64]struct{})
}

// Len returns the number of tracked nodes and relationships.
func (c *Context) Len() (nodes, relationships int) {
	return len(c.nodes), len(c.relationships)
}

// Node returns the instance registered for a native node id.
func (c *Context) Node(id int64) (any, bool) {
	obj, ok := c.nodes[id]
	return obj, ok
}

// NodeID returns the native id of a tracked node instance.
func (c *Context) NodeID(obj any) (int64, bool) {
	id, ok := c.nodeIDs[obj]
	return id, ok
}

// NodeSnapshot returns a copy of the snapshot of a node.
func (c *Context) NodeSnapshot(id int64) (NodeSnapshot, bool) {
	s, ok := c.nodeSnapshots[id]
	if !ok {
		return NodeSnapshot{}, false
	}
	return NodeSnapshot{Labels: append([]string(nil), s.Labels...), Props: CopyProps(s.Props)}, true
}

// RelationshipEntity returns the relationship entity registered for a native
// relationship id.
func (c *Context) RelationshipEntity(id int64) (any, bool) {
	obj, ok := c.relEntities[id]
	return obj, ok
}

// RelationshipEntityID returns the native id of a tracked relationship entity.
func (c *Context) RelationshipEntityID(obj any) (int64, bool) {
	id, ok := c.relEntityIDs[obj]
	return id, ok
}

// Relationship returns a copy of the snapshot of a relationship.
func (c *Context) Relationship(id int64) (RelationshipSnapshot, bool) {
	r, ok := c.relationships[id]
	if !ok {
		return RelationshipSnapshot{}, false
	}
	return r.clone(), true
}

// RelationshipsOf returns the snapshots of every known relationship touching
// a node, ordered by relationship id.
func (c *Context) RelationshipsOf(nodeID int64) []RelationshipSnapshot {
	ids := make([]int64, 0, len(c.adjacency[nodeID]))
	for id := range c.adjacency[nodeID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]RelationshipSnapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.relationships[id].clone())
	}
	return out
}

// RegisterNode stores obj as the instance of a native node id, records its
// snapshot and mirrors the id into the identity field.
func (c *Context) RegisterNode(obj any, id int64, snapshot NodeSnapshot) {
	if prev, ok := c.nodes[id]; ok && prev != obj {
		delete(c.nodeIDs, prev)
	}
	c.nodes[id] = obj
	c.nodeIDs[obj] = id
	c.SetNodeSnapshot(id, snapshot)
	if class, ok := c.model.ClassOf(obj); ok {
		SetIdentity(class, obj, id)
	}
}

// SetNodeSnapshot replaces the snapshot of a node.
func (c *Context) SetNodeSnapshot(id int64, snapshot NodeSnapshot) {
	c.nodeSnapshots[id] = NodeSnapshot{
		Labels: append([]string(nil), snapshot.Labels...),
		Props:  CopyProps(snapshot.Props),
	}
}

// RemoveNode forgets a node and every relationship touching it.
func (c *Context) RemoveNode(id int64) {
	for relID := range c.adjacency[id] {
		c.RemoveRelationship(relID)
	}
	if obj, ok := c.nodes[id]; ok {
		delete(c.nodeIDs, obj)
	}
	delete(c.nodes, id)
	delete(c.nodeSnapshots, id)
	delete(c.adjacency, id)
}

// RegisterRelationshipEntity stores obj as the instance of a native
// relationship id and records the relationship snapshot.
func (c *Context) RegisterRelationshipEntity(obj any, snapshot RelationshipSnapshot) {
	if prev, ok := c.relEntities[snapshot.ID]; ok && prev != obj {
		delete(c.relEntityIDs, prev)
	}
	c.relEntities[snapshot.ID] = obj
	c.relEntityIDs[obj] = snapshot.ID
	snapshot.Entity = true
	c.PutRelationship(snapshot)
	if class, ok := c.model.ClassOf(obj); ok {
		SetIdentity(class, obj, snapshot.ID)
	}
}

// PutRelationship records or replaces a relationship snapshot.
func (c *Context) PutRelationship(snapshot RelationshipSnapshot) {
	if prev, ok := c.relationships[snapshot.ID]; ok {
		c.unindex(prev)
	}
	c.relationships[snapshot.ID] = snapshot.clone()
	for _, n := range []int64{snapshot.StartID, snapshot.EndID} {
		if c.adjacency[n] == nil {
			c.adjacency[n] = make(map[int64]struct{})
		}
		c.adjacency[n][snapshot.ID] = struct{}{}
	}
}

// RemoveRelationship forgets a relationship and its entity instance, if any.
func (c *Context) RemoveRelationship(id int64) {
	r, ok := c.relationships[id]
	if !ok {
		return
	}
	c.unindex(r)
	delete(c.relationships, id)
	if obj, ok := c.relEntities[id]; ok {
		delete(c.relEntityIDs, obj)
		delete(c.relEntities, id)
	}
}

func (c *Context) unindex(r RelationshipSnapshot) {
	for _, n := range []int64{r.StartID, r.EndID} {
		if adj := c.adjacency[n]; adj != nil {
			delete(adj, r.ID)
			if len(adj) == 0 {
				delete(c.adjacency, n)
			}
		}
	}
}
