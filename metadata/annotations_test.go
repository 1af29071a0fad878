package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotationInfoValues(t *testing.T) {
	info := NewAnnotationInfo("X", "k", "1", "empty", "", "dangling")

	assert.Equal(t, "X", info.Name())
	assert.Equal(t, []string{"k", "empty", "dangling"}, info.Keys())

	v, ok := info.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = info.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, "def", info.Value("empty", "def"))
	assert.Equal(t, "def", info.Value("missing", "def"))
	assert.Equal(t, "1", info.Value("k", "def"))
}

func TestAnnotationInfoWithCopies(t *testing.T) {
	base := NewAnnotationInfo("X", "a", "1")
	next := base.with("a", "2").with("b", "3")

	assert.Equal(t, "1", base.Value("a", ""))
	assert.Equal(t, []string{"a"}, base.Keys())
	assert.Equal(t, "2", next.Value("a", ""))
	assert.Equal(t, []string{"a", "b"}, next.Keys())
}

func TestAnnotationsInfoAddReplacesByName(t *testing.T) {
	anns := NewAnnotationsInfo(NewAnnotationInfo("X", "k", "1"), NewAnnotationInfo("Y"))
	anns.Add(NewAnnotationInfo("X", "k", "2"))

	require.Equal(t, 2, anns.Len())
	assert.Equal(t, "2", anns.Get("X").Value("k", ""))
	assert.True(t, anns.Has("Y"))
	assert.False(t, anns.Has("Z"))
}

func TestAnnotationsInfoNilSafe(t *testing.T) {
	var anns *AnnotationsInfo
	assert.Nil(t, anns.Get("X"))
	assert.False(t, anns.Has("X"))
	assert.Empty(t, anns.List())
	assert.Zero(t, anns.Len())
}

func TestAnnotationsInfoAppendPrecedence(t *testing.T) {
	super := NewAnnotationsInfo(NewAnnotationInfo("X", "k", "2"), NewAnnotationInfo("Y", "k", "3"))
	sub := NewAnnotationsInfo(NewAnnotationInfo("X", "k", "1"))

	merged := super.clone()
	merged.Append(sub)

	require.Equal(t, 2, merged.Len())
	assert.Equal(t, "1", merged.Get("X").Value("k", ""))
	assert.Equal(t, "3", merged.Get("Y").Value("k", ""))

	// the supertype's own index is untouched
	assert.Equal(t, "2", super.Get("X").Value("k", ""))
}

func TestBuildMergesSupertypeAnnotations(t *testing.T) {
	model, err := Build([]TypeDescriptor{
		{
			Name:        "Sub",
			Super:       "Base",
			Annotations: []*AnnotationInfo{NewAnnotationInfo(AnnotationNodeEntity), NewAnnotationInfo("X", "k", "1")},
		},
		{
			Name:        "Base",
			Annotations: []*AnnotationInfo{NewAnnotationInfo(AnnotationNodeEntity), NewAnnotationInfo("X", "k", "2"), NewAnnotationInfo("Y", "k", "3")},
		},
	})
	require.NoError(t, err)

	sub, ok := model.Class("Sub")
	require.True(t, ok)
	assert.Equal(t, "1", sub.Annotations.Get("X").Value("k", ""))
	assert.Equal(t, "3", sub.Annotations.Get("Y").Value("k", ""))

	base, _ := model.Class("Base")
	assert.Equal(t, "2", base.Annotations.Get("X").Value("k", ""))
}
