package mapping

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nioertel/neo4j-ogm/metadata"
)

type Human struct {
	metadata.Node `ogm:"label:Human"`
	ID            *int64 `ogm:"id"`
	Name          string
	Children      []*ParentOf `ogm:"direction:OUTGOING"`
	Parents       []*ParentOf `ogm:"direction:INCOMING"`
}

type ParentOf struct {
	metadata.Relationship `ogm:"type:PARENT_OF"`
	ID                    *int64    `ogm:"id"`
	Parent                *Human    `ogm:"start"`
	Child                 *Human    `ogm:"end"`
	LastMeeting           time.Time `ogm:"convert:epochMillis"`
}

type Movie struct {
	metadata.Node
	ID     *int64 `ogm:"id"`
	Title  string
	Year   int
	Tags   []string
	Actors []*Actor `ogm:"relationship:ACTED_IN,direction:INCOMING"`
}

type Actor struct {
	metadata.Node
	ID     *int64 `ogm:"id"`
	Name   string
	Movies []*Movie `ogm:"relationship:ACTED_IN"`
	Friend *Actor   `ogm:"relationship:KNOWS"`
}

const lastMeetingMillis = int64(1689347516000)

func testModel(t *testing.T) *metadata.Model {
	t.Helper()
	model, err := metadata.BuildFrom([]any{Human{}, Movie{}})
	require.NoError(t, err)
	return model
}

func human(id int64, name string) NodeRecord {
	return NodeRecord{ID: id, Labels: []string{"Human"}, Props: map[string]any{"name": name}}
}

func parentOf(id, start, end int64) RelationshipRecord {
	return RelationshipRecord{ID: id, Type: "PARENT_OF", StartID: start, EndID: end, Props: map[string]any{"lastMeeting": lastMeetingMillis}}
}

func TestHydrateRelationshipEntity(t *testing.T) {
	model := testModel(t)
	ctx := NewContext(model)

	rows := []Row{NewRow("p", human(1, "Jane"), "r", parentOf(10, 1, 2), "c", human(2, "Jon"))}
	roots, err := NewMapper(model).Hydrate(ctx, rows, RootSpec{Column: "p"})
	require.NoError(t, err)
	require.Len(t, roots, 1)

	jane := roots[0].(*Human)
	assert.Equal(t, "Jane", jane.Name)
	require.NotNil(t, jane.ID)
	assert.Equal(t, int64(1), *jane.ID)

	require.Len(t, jane.Children, 1)
	rel := jane.Children[0]
	assert.Same(t, jane, rel.Parent)
	require.NotNil(t, rel.Child)
	assert.Equal(t, "Jon", rel.Child.Name)
	assert.Equal(t, time.UnixMilli(lastMeetingMillis).UTC(), rel.LastMeeting)
	assert.Equal(t, int64(10), *rel.ID)
	assert.Empty(t, jane.Parents)

	jon, ok := ctx.Node(2)
	require.True(t, ok)
	assert.Same(t, rel.Child, jon)
	require.Len(t, jon.(*Human).Parents, 1)
	assert.Same(t, rel, jon.(*Human).Parents[0])

	snap, ok := ctx.Relationship(10)
	require.True(t, ok)
	assert.True(t, snap.Entity)
	assert.Equal(t, lastMeetingMillis, snap.Props["lastMeeting"])
}

func TestHydrateNodeAndRelationshipShareID(t *testing.T) {
	model := testModel(t)
	ctx := NewContext(model)

	rows := []Row{NewRow("p", human(1, "Jane"), "r", parentOf(10, 1, 10), "c", human(10, "Jon"))}
	_, err := NewMapper(model).Hydrate(ctx, rows)
	require.NoError(t, err)

	node, ok := ctx.Node(10)
	require.True(t, ok)
	assert.IsType(t, &Human{}, node)

	rel, ok := ctx.RelationshipEntity(10)
	require.True(t, ok)
	assert.IsType(t, &ParentOf{}, rel)
	assert.Same(t, node, rel.(*ParentOf).Child)
}

func TestHydrateKeepsOneInstancePerID(t *testing.T) {
	model := testModel(t)
	ctx := NewContext(model)
	mapper := NewMapper(model)

	rows := []Row{
		NewRow("p", human(1, "Jane"), "r", parentOf(10, 1, 2), "c", human(2, "Jon")),
		NewRow("p", human(1, "Jane"), "r", parentOf(11, 1, 3), "c", human(3, "Ann")),
	}
	roots, err := mapper.Hydrate(ctx, rows, RootSpec{Column: "p"})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	jane := roots[0].(*Human)
	require.Len(t, jane.Children, 2)

	// a second query returns the same instances without duplicating links
	again, err := mapper.Hydrate(ctx, rows[:1], RootSpec{Column: "p"})
	require.NoError(t, err)
	assert.Same(t, jane, again[0])
	assert.Len(t, jane.Children, 2)

	nodes, rels := ctx.Len()
	assert.Equal(t, 3, nodes)
	assert.Equal(t, 2, rels)
}

func TestHydrateRefreshesChangedProperties(t *testing.T) {
	model := testModel(t)
	ctx := NewContext(model)
	mapper := NewMapper(model)

	roots, err := mapper.Hydrate(ctx, []Row{NewRow("n", human(1, "Jane"))})
	require.NoError(t, err)
	jane := roots[0].(*Human)

	// unchanged store state leaves local edits alone
	jane.Name = "Local"
	_, err = mapper.Hydrate(ctx, []Row{NewRow("n", human(1, "Jane"))})
	require.NoError(t, err)
	assert.Equal(t, "Local", jane.Name)

	_, err = mapper.Hydrate(ctx, []Row{NewRow("n", human(1, "Janet"))})
	require.NoError(t, err)
	assert.Equal(t, "Janet", jane.Name)
	snap, _ := ctx.NodeSnapshot(1)
	assert.Equal(t, "Janet", snap.Props["name"])
}

func TestHydrateKeepsLocalEditsForMissingProperties(t *testing.T) {
	model := testModel(t)
	ctx := NewContext(model)
	mapper := NewMapper(model)

	bare := NodeRecord{ID: 1, Labels: []string{"Human"}, Props: map[string]any{}}
	rel := RelationshipRecord{ID: 10, Type: "PARENT_OF", StartID: 1, EndID: 2}
	rows := []Row{NewRow("p", bare, "r", rel, "c", human(2, "Jon"))}

	roots, err := mapper.Hydrate(ctx, rows, RootSpec{Column: "p"})
	require.NoError(t, err)
	h := roots[0].(*Human)
	require.Len(t, h.Children, 1)
	assert.Equal(t, "", h.Name)

	met := time.UnixMilli(lastMeetingMillis)
	h.Name = "edited locally"
	h.Children[0].LastMeeting = met

	_, err = mapper.Hydrate(ctx, rows, RootSpec{Column: "p"})
	require.NoError(t, err)
	assert.Equal(t, "edited locally", h.Name)
	require.Len(t, h.Children, 1)
	assert.True(t, met.Equal(h.Children[0].LastMeeting))

	snap, _ := ctx.NodeSnapshot(1)
	assert.Equal(t, "", snap.Props["name"])
}

func TestHydratePlainRelationships(t *testing.T) {
	model := testModel(t)
	ctx := NewContext(model)

	actor := NodeRecord{ID: 5, Labels: []string{"Actor"}, Props: map[string]any{"name": "Keanu"}}
	movie := NodeRecord{ID: 6, Labels: []string{"Movie"}, Props: map[string]any{"title": "The Matrix", "year": int64(1999), "tags": []any{"sci-fi", "action"}}}
	actedIn := RelationshipRecord{ID: 30, Type: "ACTED_IN", StartID: 5, EndID: 6}

	roots, err := NewMapper(model).Hydrate(ctx, []Row{NewRow("path", []any{actor, actedIn, movie})}, RootSpec{Class: "Movie"})
	require.NoError(t, err)
	require.Len(t, roots, 1)

	m := roots[0].(*Movie)
	assert.Equal(t, 1999, m.Year)
	assert.Equal(t, []string{"sci-fi", "action"}, m.Tags)
	require.Len(t, m.Actors, 1)
	assert.Equal(t, "Keanu", m.Actors[0].Name)
	require.Len(t, m.Actors[0].Movies, 1)
	assert.Same(t, m, m.Actors[0].Movies[0])

	snap, ok := ctx.Relationship(30)
	require.True(t, ok)
	assert.False(t, snap.Entity)
	assert.Equal(t, []RelationshipSnapshot{snap}, ctx.RelationshipsOf(5))
}

func TestHydrateCycles(t *testing.T) {
	model := testModel(t)
	ctx := NewContext(model)

	a := NodeRecord{ID: 1, Labels: []string{"Actor"}, Props: map[string]any{"name": "A"}}
	b := NodeRecord{ID: 2, Labels: []string{"Actor"}, Props: map[string]any{"name": "B"}}
	rows := []Row{NewRow(
		"a", a,
		"b", b,
		"rels", []any{
			RelationshipRecord{ID: 20, Type: "KNOWS", StartID: 1, EndID: 2},
			RelationshipRecord{ID: 21, Type: "KNOWS", StartID: 2, EndID: 1},
		},
	)}
	roots, err := NewMapper(model).Hydrate(ctx, rows, RootSpec{Column: "a"})
	require.NoError(t, err)

	actorA := roots[0].(*Actor)
	require.NotNil(t, actorA.Friend)
	assert.Equal(t, "B", actorA.Friend.Name)
	assert.Same(t, actorA, actorA.Friend.Friend)
}

func TestHydrateSkipsRelationshipsWithUnknownEndpoints(t *testing.T) {
	model := testModel(t)
	ctx := NewContext(model)

	_, err := NewMapper(model).Hydrate(ctx, []Row{NewRow("p", human(1, "Jane"), "r", parentOf(10, 1, 99))})
	require.NoError(t, err)

	nodes, rels := ctx.Len()
	assert.Equal(t, 1, nodes)
	assert.Zero(t, rels)
}

func TestHydrateRejectsUnmappedLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
	}{
		{"unknown", []string{"Robot"}},
		{"ambiguous", []string{"Human", "Movie"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := testModel(t)
			ctx := NewContext(model)

			rows := []Row{
				NewRow("n", human(1, "Jane")),
				NewRow("ok", human(2, "Jon"), "bad", NodeRecord{ID: 3, Labels: tt.labels}),
			}
			_, err := NewMapper(model).Hydrate(ctx, rows)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMapping)

			var mapErr *MappingError
			require.True(t, errors.As(err, &mapErr))
			assert.Equal(t, 1, mapErr.Row)

			// the first row stays committed, nothing of the failing row is
			_, ok := ctx.Node(1)
			assert.True(t, ok)
			_, ok = ctx.Node(2)
			assert.False(t, ok)
		})
	}
}

func TestHydrateReportsConversionErrors(t *testing.T) {
	model := testModel(t)
	ctx := NewContext(model)

	rows := []Row{NewRow("m", NodeRecord{ID: 6, Labels: []string{"Movie"}, Props: map[string]any{"year": "nineteen"}})}
	_, err := NewMapper(model).Hydrate(ctx, rows)

	var mapErr *MappingError
	require.True(t, errors.As(err, &mapErr))
	assert.Equal(t, "Movie", mapErr.Class)
	assert.Equal(t, "Year", mapErr.Field)
	assert.Equal(t, "nineteen", mapErr.Value)
	assert.Zero(t, mapErr.Row)

	nodes, _ := ctx.Len()
	assert.Zero(t, nodes)
}

func TestHydrateRootSelection(t *testing.T) {
	model := testModel(t)
	rows := []Row{NewRow("p", human(1, "Jane"), "r", parentOf(10, 1, 2), "c", human(2, "Jon"))}

	all, err := NewMapper(model).Hydrate(NewContext(model), rows)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Jane", all[0].(*Human).Name)
	assert.Equal(t, "Jon", all[1].(*Human).Name)

	byClass, err := NewMapper(model).Hydrate(NewContext(model), rows, RootSpec{Class: "ParentOf"})
	require.NoError(t, err)
	require.Len(t, byClass, 1)
	assert.IsType(t, &ParentOf{}, byClass[0])

	byColumn, err := NewMapper(model).Hydrate(NewContext(model), rows, RootSpec{Column: "r"})
	require.NoError(t, err)
	require.Len(t, byColumn, 1)
	assert.IsType(t, &ParentOf{}, byColumn[0])

	none, err := NewMapper(model).Hydrate(NewContext(model), rows, RootSpec{Column: "missing"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
