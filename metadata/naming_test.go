package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropertyName(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"Name", "name"},
		{"LastMeeting", "lastMeeting"},
		{"ID", "id"},
		{"URLPath", "urlPath"},
		{"HTTPServerName", "httpServerName"},
		{"already", "already"},
		{"X", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, PropertyName(tt.field))
		})
	}
}

func TestRelationshipType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Children", "CHILDREN"},
		{"BestFriend", "BEST_FRIEND"},
		{"ParentOf", "PARENT_OF"},
		{"BookWasReadBy", "BOOK_WAS_READ_BY"},
		{"HTTPServer", "HTTP_SERVER"},
		{"readBy", "READ_BY"},
		{"snake_case", "SNAKE_CASE"},
		{"Address2", "ADDRESS2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelationshipType(tt.name))
		})
	}
}

func TestNamingIsDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, "FAVOURITE_BOOKS", RelationshipType("FavouriteBooks"))
		assert.Equal(t, "favouriteBooks", PropertyName("FavouriteBooks"))
	}
}
