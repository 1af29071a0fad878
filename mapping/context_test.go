package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRegisterNode(t *testing.T) {
	ctx := NewContext(testModel(t))
	jane := &Human{Name: "Jane"}

	ctx.RegisterNode(jane, 7, NodeSnapshot{Labels: []string{"Human"}, Props: map[string]any{"name": "Jane"}})

	require.NotNil(t, jane.ID)
	assert.Equal(t, int64(7), *jane.ID)
	got, ok := ctx.Node(7)
	require.True(t, ok)
	assert.Same(t, jane, got)
	id, ok := ctx.NodeID(jane)
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	// snapshots are copies
	snap, _ := ctx.NodeSnapshot(7)
	snap.Props["name"] = "changed"
	again, _ := ctx.NodeSnapshot(7)
	assert.Equal(t, "Jane", again.Props["name"])
}

func TestContextReplacingANodeForgetsThePreviousInstance(t *testing.T) {
	ctx := NewContext(testModel(t))
	first, second := &Human{}, &Human{}

	ctx.RegisterNode(first, 1, NodeSnapshot{})
	ctx.RegisterNode(second, 1, NodeSnapshot{})

	_, ok := ctx.NodeID(first)
	assert.False(t, ok)
	got, _ := ctx.Node(1)
	assert.Same(t, second, got)
}

func TestContextRelationships(t *testing.T) {
	ctx := NewContext(testModel(t))
	jane, jon := &Human{}, &Human{}
	ctx.RegisterNode(jane, 1, NodeSnapshot{})
	ctx.RegisterNode(jon, 2, NodeSnapshot{})

	rel := &ParentOf{Parent: jane, Child: jon}
	ctx.RegisterRelationshipEntity(rel, RelationshipSnapshot{ID: 12, Type: "PARENT_OF", StartID: 1, EndID: 2})
	ctx.PutRelationship(RelationshipSnapshot{ID: 11, Type: "KNOWS", StartID: 2, EndID: 1})

	require.NotNil(t, rel.ID)
	assert.Equal(t, int64(12), *rel.ID)
	snap, ok := ctx.Relationship(12)
	require.True(t, ok)
	assert.True(t, snap.Entity)
	assert.True(t, snap.Touches(2))
	assert.False(t, snap.Touches(3))

	of := ctx.RelationshipsOf(1)
	require.Len(t, of, 2)
	assert.Equal(t, int64(11), of[0].ID)
	assert.Equal(t, int64(12), of[1].ID)

	// moving an endpoint reindexes the relationship
	ctx.PutRelationship(RelationshipSnapshot{ID: 11, Type: "KNOWS", StartID: 2, EndID: 2})
	assert.Len(t, ctx.RelationshipsOf(1), 1)

	ctx.RemoveNode(2)
	_, ok = ctx.Node(2)
	assert.False(t, ok)
	_, ok = ctx.RelationshipEntityID(rel)
	assert.False(t, ok)
	assert.Empty(t, ctx.RelationshipsOf(1))
	nodes, rels := ctx.Len()
	assert.Equal(t, 1, nodes)
	assert.Zero(t, rels)
}

func TestContextClear(t *testing.T) {
	ctx := NewContext(testModel(t))
	ctx.RegisterNode(&Human{}, 1, NodeSnapshot{})
	ctx.PutRelationship(RelationshipSnapshot{ID: 1, StartID: 1, EndID: 1})

	ctx.Clear()

	nodes, rels := ctx.Len()
	assert.Zero(t, nodes)
	assert.Zero(t, rels)
	assert.NotNil(t, ctx.Model())
}
