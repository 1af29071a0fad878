package ogm

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"github.com/nioertel/neo4j-ogm/mapping"
	"github.com/nioertel/neo4j-ogm/metadata"
)

// Repository provides a generic abstraction for CRUD operations for a specific
// node entity type T. Every repository works inside one session, so entities
// it returns are tracked and saving them sends only what changed.
type Repository[T any] struct {
	session *Session
	class   *metadata.ClassModel
}

// NewRepository creates a new generic repository for the type T.
//
// Parameters:
//   - session: The unit of work the repository loads into and saves from.
//
// Returns:
//
//	A new Repository instance or an error if T is not a mapped node entity.
func NewRepository[T any](session *Session) (*Repository[T], error) {
	class, ok := session.pm.model.ClassForType(reflect.TypeOf((*T)(nil)).Elem())
	if !ok {
		return nil, fmt.Errorf("%T is not a mapped type", (*T)(nil))
	}
	if class.IsRelationshipEntity() {
		return nil, fmt.Errorf("%s is a relationship entity", class.Name)
	}
	return &Repository[T]{session: session, class: class}, nil
}

// Session returns the session the repository works in.
func (r *Repository[T]) Session() *Session { return r.session }

// Save creates or updates the entity and its relationships up to the
// manager's default depth.
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	return r.session.Save(ctx, entity, r.session.pm.defaultDepth)
}

// FindByID retrieves a single entity by its native id.
//
// Returns:
//
//	A pointer to the found entity, ErrNotFound if no record is found, or another
//	error if the query or mapping fails.
func (r *Repository[T]) FindByID(ctx context.Context, id int64) (*T, error) {
	// native ids cannot be matched through the query builder
	query := "MATCH (n:`" + strings.ReplaceAll(r.class.Label(), "`", "``") + "`) WHERE id(n) = $id RETURN n"
	found, err := r.load(ctx, query, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return r.one(found)
}

// FindAll retrieves every entity carrying the type's label.
func (r *Repository[T]) FindAll(ctx context.Context) ([]*T, error) {
	return r.Find(ctx, gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.class.Label())).
		Return("n"))
}

// FindByProperty retrieves the entities whose property equals value.
func (r *Repository[T]) FindByProperty(ctx context.Context, property string, value any) ([]*T, error) {
	return r.Find(ctx, gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.class.Label()).WithProperties(map[string]any{property: value})).
		Return("n"))
}

// Find runs a custom query and returns the entities of type T it yields.
// Related entities returned by the query are linked into them.
func (r *Repository[T]) Find(ctx context.Context, qb *gocypher.QueryBuilder) ([]*T, error) {
	query, params, err := qb.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}
	return r.load(ctx, query, params)
}

// FindOne runs a custom query that must yield exactly one entity of type T.
func (r *Repository[T]) FindOne(ctx context.Context, qb *gocypher.QueryBuilder) (*T, error) {
	found, err := r.Find(ctx, qb)
	if err != nil {
		return nil, err
	}
	return r.one(found)
}

// Delete removes the entity and its relationships.
func (r *Repository[T]) Delete(ctx context.Context, entity *T) error {
	return r.session.Delete(ctx, entity)
}

// Count returns the number of nodes carrying the type's label.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.class.Label())).
		Return("count(n) AS count"))
}

// CountByProperty returns the number of nodes whose property equals value.
func (r *Repository[T]) CountByProperty(ctx context.Context, property string, value any) (int64, error) {
	return r.count(ctx, gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.class.Label()).WithProperties(map[string]any{property: value})).
		Return("count(n) AS count"))
}

func (r *Repository[T]) load(ctx context.Context, query string, params map[string]any) ([]*T, error) {
	objs, err := r.session.Load(ctx, query, params, mapping.RootSpec{Class: r.class.Name})
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(objs))
	for _, obj := range objs {
		if t, ok := obj.(*T); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *Repository[T]) one(found []*T) (*T, error) {
	switch len(found) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return found[0], nil
	default:
		// This indicates a data integrity issue, as the query should be unique.
		return nil, fmt.Errorf("expected 1 %s but found %d", r.class.Name, len(found))
	}
}

func (r *Repository[T]) count(ctx context.Context, qb *gocypher.QueryBuilder) (int64, error) {
	query, params, err := qb.Build()
	if err != nil {
		return 0, fmt.Errorf("could not build query: %w", err)
	}
	eagerResult, err := r.session.pm.runner.Run(ctx, query, params)
	if err != nil {
		return 0, err
	}
	if len(eagerResult.Records) == 0 || len(eagerResult.Records[0].Values) == 0 {
		return 0, nil
	}
	n, ok := eagerResult.Records[0].Values[0].(int64)
	if !ok {
		return 0, fmt.Errorf("count returned %T", eagerResult.Records[0].Values[0])
	}
	return n, nil
}
