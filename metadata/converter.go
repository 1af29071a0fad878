package metadata

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Converter translates between a field value and the scalar stored as a graph
// property. Implementations must be pure and round-trip consistent:
// ToFieldValue(ToGraphProperty(x)) == x for every valid x.
type Converter interface {
	ToGraphProperty(value any) (any, error)
	ToFieldValue(property any) (any, error)
}

// Names of the built-in converters.
const (
	ConverterEpochMillis = "epochMillis"
	ConverterRFC3339     = "rfc3339"
	ConverterStringMap   = "stringMap"
	ConverterUUID        = "uuid"
)

// ConverterRegistry resolves converter references found in `convert:` tags.
type ConverterRegistry struct {
	mu         sync.RWMutex
	converters map[string]Converter
}

// NewConverterRegistry returns a registry preloaded with the built-in converters.
func NewConverterRegistry() *ConverterRegistry {
	r := &ConverterRegistry{converters: make(map[string]Converter)}
	r.Register(ConverterEpochMillis, EpochMillisConverter{})
	r.Register(ConverterRFC3339, RFC3339Converter{})
	r.Register(ConverterStringMap, StringMapConverter{})
	r.Register(ConverterUUID, UUIDConverter{})
	return r
}

// Register adds or replaces a converter.
func (r *ConverterRegistry) Register(name string, c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[name] = c
}

// Lookup returns the converter registered under name.
func (r *ConverterRegistry) Lookup(name string) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.converters[name]
	return c, ok
}

// Names returns the registered converter names, sorted.
func (r *ConverterRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.converters))
	for name := range r.converters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EpochMillisConverter stores time.Time as milliseconds since the Unix epoch.
type EpochMillisConverter struct{}

func (EpochMillisConverter) ToGraphProperty(value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UnixMilli(), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.UnixMilli(), nil
	default:
		return nil, fmt.Errorf("epochMillis: unsupported value of type %T", value)
	}
}

func (EpochMillisConverter) ToFieldValue(property any) (any, error) {
	ms, err := asInt64(property)
	if err != nil {
		return nil, fmt.Errorf("epochMillis: %w", err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// RFC3339Converter stores time.Time as an RFC 3339 string with nanoseconds.
type RFC3339Converter struct{}

func (RFC3339Converter) ToGraphProperty(value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return v.Format(time.RFC3339Nano), nil
	default:
		return nil, fmt.Errorf("rfc3339: unsupported value of type %T", value)
	}
}

func (RFC3339Converter) ToFieldValue(property any) (any, error) {
	s, ok := property.(string)
	if !ok {
		return nil, fmt.Errorf("rfc3339: expected string, got %T", property)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("rfc3339: %w", err)
	}
	return t, nil
}

// StringMapConverter stores map[string]string as a JSON object string.
type StringMapConverter struct{}

func (StringMapConverter) ToGraphProperty(value any) (any, error) {
	m, ok := value.(map[string]string)
	if !ok {
		return nil, fmt.Errorf("stringMap: unsupported value of type %T", value)
	}
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("stringMap: %w", err)
	}
	return string(data), nil
}

func (StringMapConverter) ToFieldValue(property any) (any, error) {
	s, ok := property.(string)
	if !ok {
		return nil, fmt.Errorf("stringMap: expected string, got %T", property)
	}
	m := make(map[string]string)
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("stringMap: %w", err)
	}
	return m, nil
}

// UUIDConverter stores uuid.UUID in its canonical string form.
type UUIDConverter struct{}

func (UUIDConverter) ToGraphProperty(value any) (any, error) {
	id, ok := value.(uuid.UUID)
	if !ok {
		return nil, fmt.Errorf("uuid: unsupported value of type %T", value)
	}
	return id.String(), nil
}

func (UUIDConverter) ToFieldValue(property any) (any, error) {
	s, ok := property.(string)
	if !ok {
		return nil, fmt.Errorf("uuid: expected string, got %T", property)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("uuid: %w", err)
	}
	return id, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
