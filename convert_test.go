package ogm

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nioertel/neo4j-ogm/mapping"
)

func TestRowsFromResult(t *testing.T) {
	n1 := neo4j.Node{Id: 1, Labels: []string{"Person"}, Props: map[string]any{"name": "Ada"}}
	n2 := neo4j.Node{Id: 2, Labels: []string{"Pet"}, Props: map[string]any{"name": "Rex"}}
	rel := neo4j.Relationship{Id: 3, StartId: 1, EndId: 2, Type: "OWNS", Props: map[string]any{"since": int64(2020)}}

	rows := RowsFromResult(result([]string{"p", "list", "total"},
		[]any{neo4j.Path{Nodes: []neo4j.Node{n1, n2}, Relationships: []neo4j.Relationship{rel}}, []any{n1, []any{rel}}, int64(5)},
	))
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, []string{"p", "list", "total"}, row.Keys)

	node1 := mapping.NodeRecord{ID: 1, Labels: []string{"Person"}, Props: map[string]any{"name": "Ada"}}
	node2 := mapping.NodeRecord{ID: 2, Labels: []string{"Pet"}, Props: map[string]any{"name": "Rex"}}
	owns := mapping.RelationshipRecord{ID: 3, Type: "OWNS", StartID: 1, EndID: 2, Props: map[string]any{"since": int64(2020)}}

	assert.Equal(t, []any{node1, node2, owns}, row.Values[0])
	assert.Equal(t, []any{node1, []any{owns}}, row.Values[1])
	total, ok := row.Get("total")
	assert.True(t, ok)
	assert.Equal(t, int64(5), total)

	assert.Nil(t, RowsFromResult(nil))
}
