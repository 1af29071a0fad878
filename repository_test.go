package ogm

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryFor(t *testing.T) {
	pm := newTestManager(t, &fakeRunner{})

	_, err := RepositoryFor[Person](pm)
	assert.NoError(t, err)

	_, err = RepositoryFor[Owns](pm)
	assert.Error(t, err, "relationship entities have no repository")

	_, err = RepositoryFor[struct{ Name string }](pm)
	assert.Error(t, err)
}

func TestRepositoryFindByID(t *testing.T) {
	runner := &fakeRunner{}
	repo, err := RepositoryFor[Person](newTestManager(t, runner))
	require.NoError(t, err)
	ctx := context.Background()

	runner.results = append(runner.results, result([]string{"n"}, []any{personNode(9, "Ada", 0)}))
	ada, err := repo.FindByID(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "Ada", ada.Name)
	assert.Equal(t, "MATCH (n:`Person`) WHERE id(n) = $id RETURN n", runner.queries[0])

	// the repository's session tracks what it returned
	runner.results = append(runner.results, result([]string{"n"}, []any{personNode(9, "Ada", 0)}))
	again, err := repo.FindByID(ctx, 9)
	require.NoError(t, err)
	assert.Same(t, ada, again)

	_, err = repo.FindByID(ctx, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryFindOneRejectsSeveralResults(t *testing.T) {
	runner := &fakeRunner{}
	repo, err := RepositoryFor[Person](newTestManager(t, runner))
	require.NoError(t, err)

	runner.results = append(runner.results, result([]string{"n"},
		[]any{personNode(1, "Ada", 0)},
		[]any{personNode(2, "Grace", 0)},
	))
	_, err = repo.FindOne(context.Background(), gocypher.NewQueryBuilder().
		Match(gocypher.N("n", "Person")).
		Return("n"))
	assert.Error(t, err)
}

func TestRepositoryFindAllAndCount(t *testing.T) {
	runner := &fakeRunner{}
	repo, err := RepositoryFor[Person](newTestManager(t, runner))
	require.NoError(t, err)
	ctx := context.Background()

	runner.results = append(runner.results,
		result([]string{"n"}, []any{personNode(1, "Ada", 0)}, []any{personNode(2, "Grace", 0)}),
		result([]string{"count"}, []any{int64(2)}),
		result([]string{"count"}),
	)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.CountByProperty(ctx, "name", "Nobody")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRepositorySaveAndDelete(t *testing.T) {
	runner := &fakeRunner{}
	repo, err := RepositoryFor[Person](newTestManager(t, runner))
	require.NoError(t, err)
	ctx := context.Background()

	ada := &Person{Name: "Ada"}
	require.NoError(t, repo.Save(ctx, ada))
	require.NotNil(t, ada.ID)

	require.NoError(t, repo.Delete(ctx, ada))
	require.Len(t, runner.batches, 2)
	_, ok := repo.Session().Context().NodeID(ada)
	assert.False(t, ok)
}

func TestFindGraphDeduplicates(t *testing.T) {
	runner := &fakeRunner{}
	pm := newTestManager(t, runner)

	a := neo4j.Node{ElementId: "4:a", Labels: []string{"Person"}, Props: map[string]any{"name": "Ada"}}
	b := neo4j.Node{ElementId: "4:b", Labels: []string{"Person"}, Props: map[string]any{"name": "Grace"}}
	r := neo4j.Relationship{ElementId: "5:r", StartElementId: "4:a", EndElementId: "4:b", Type: "KNOWS"}
	runner.results = append(runner.results, result([]string{"p", "others"},
		[]any{neo4j.Path{Nodes: []neo4j.Node{a, b}, Relationships: []neo4j.Relationship{r}}, []any{a}},
		[]any{neo4j.Path{Nodes: []neo4j.Node{a, b}, Relationships: []neo4j.Relationship{r}}, []any{b}},
	))

	graph, err := pm.FindGraph(context.Background(), gocypher.NewQueryBuilder().
		Match(gocypher.N("n", "Person")).
		Return("n"))
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 2)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, "4:a", graph.Edges[0].Source)
	assert.Equal(t, "KNOWS", graph.Edges[0].Type)

	_, err = pm.FindGraph(context.Background(), gocypher.NewQueryBuilder().
		Match(gocypher.N("n", "Person")).
		Return("n"))
	assert.ErrorIs(t, err, ErrNotFound)
}
