package mapping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangedProps(t *testing.T) {
	tests := []struct {
		name     string
		previous map[string]any
		current  map[string]any
		want     map[string]any
	}{
		{
			name:     "only the changed key",
			previous: map[string]any{"a": int64(1), "b": int64(2)},
			current:  map[string]any{"a": int64(1), "b": int64(3)},
			want:     map[string]any{"b": int64(3)},
		},
		{
			name:     "unchanged",
			previous: map[string]any{"tags": []any{"x"}},
			current:  map[string]any{"tags": []any{"x"}},
			want:     map[string]any{},
		},
		{
			name:     "new key",
			previous: map[string]any{},
			current:  map[string]any{"a": "x", "empty": nil},
			want:     map[string]any{"a": "x"},
		},
		{
			name:     "removed key",
			previous: map[string]any{"a": "x"},
			current:  map[string]any{},
			want:     map[string]any{"a": nil},
		},
		{
			name:     "set to nil",
			previous: map[string]any{"a": "x"},
			current:  map[string]any{"a": nil},
			want:     map[string]any{"a": nil},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChangedProps(tt.previous, tt.current))
		})
	}
}

func TestCopyPropsIsDeep(t *testing.T) {
	orig := map[string]any{"tags": []any{"a", []any{"b"}}, "raw": []byte("x")}
	cp := CopyProps(orig)

	cp["tags"].([]any)[1].([]any)[0] = "changed"
	cp["raw"].([]byte)[0] = 'y'

	assert.Equal(t, "b", orig["tags"].([]any)[1].([]any)[0])
	assert.Equal(t, []byte("x"), orig["raw"])
	assert.NotNil(t, CopyProps(nil))
}

func TestProperties(t *testing.T) {
	model := testModel(t)
	movieClass, _ := model.Class("Movie")
	relClass, _ := model.Class("ParentOf")

	props, err := Properties(movieClass, &Movie{Title: "Heat", Year: 1995, Tags: []string{"crime"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Heat", "year": int64(1995), "tags": []any{"crime"}}, props)

	props, err = Properties(relClass, &ParentOf{LastMeeting: time.UnixMilli(lastMeetingMillis)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"lastMeeting": lastMeetingMillis}, props)
}

func TestIdentityAndVersionAccess(t *testing.T) {
	model := testModel(t)
	class, _ := model.Class("Human")
	h := &Human{}

	_, ok := IdentityOf(class, h)
	assert.False(t, ok)

	SetIdentity(class, h, 3)
	id, ok := IdentityOf(class, h)
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)

	// Human has no version field
	assert.NoError(t, SetVersion(class, h, 2))
}

func TestRelatedAndLink(t *testing.T) {
	model := testModel(t)
	actorClass, _ := model.Class("Actor")
	movies, _ := actorClass.Field("Movies")
	friend, _ := actorClass.Field("Friend")

	a, b := &Actor{Name: "A"}, &Actor{Name: "B"}
	m := &Movie{}

	assert.Empty(t, Related(friend, a))
	link(friend, a, b)
	assert.Equal(t, []any{b}, Related(friend, a))

	link(movies, a, m)
	link(movies, a, m)
	assert.Equal(t, []any{m}, Related(movies, a))

	a.Movies = append(a.Movies, nil)
	assert.Equal(t, []any{m, nil}, Related(movies, a))
}
