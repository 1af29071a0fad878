package metadata

import (
	"strings"
	"unicode"
)

// The default naming convention applied when a field or type carries no
// explicit name. All functions here are pure so that save and query code can
// predict the names without consulting the model.
//
//   - property name: the leading upper-case run of the field name is
//     lower-cased ("Name" -> "name", "ID" -> "id", "URLPath" -> "urlPath")
//   - relationship type: words split at case boundaries, upper-cased and
//     joined with '_' ("BestFriend" -> "BEST_FRIEND", "HTTPServer" -> "HTTP_SERVER")
//   - direction: OUTGOING
//   - node label: the Go type name
//   - relationship entity type: RelationshipType of the Go type name

// PropertyName returns the default graph property name for a field.
func PropertyName(field string) string {
	runes := []rune(field)
	upper := 0
	for upper < len(runes) && unicode.IsUpper(runes[upper]) {
		upper++
	}
	switch {
	case upper == 0:
		return field
	case upper == 1 || upper == len(runes):
		// "Name" or "ID"
	default:
		// keep the first letter of the next word: "URLPath" -> "url" + "Path"
		if unicode.IsLower(runes[upper]) {
			upper--
		}
	}
	for i := 0; i < upper; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// RelationshipType returns the default relationship type derived from a
// field or type name.
func RelationshipType(name string) string {
	return strings.Join(splitWords(name), "_")
}

// splitWords splits a Go identifier at case boundaries and upper-cases each word.
func splitWords(name string) []string {
	runes := []rune(name)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case cur == '_':
			boundary = true
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsDigit(prev) != unicode.IsDigit(cur) && unicode.IsLetter(cur) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		}
		if boundary {
			if w := strings.Trim(string(runes[start:i]), "_"); w != "" {
				words = append(words, strings.ToUpper(w))
			}
			start = i
		}
	}
	if w := strings.Trim(string(runes[start:]), "_"); w != "" {
		words = append(words, strings.ToUpper(w))
	}
	return words
}
