package ogm

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/nioertel/neo4j-ogm/cypher"
	"github.com/nioertel/neo4j-ogm/mapping"
)

// Session is one unit of work: every object it loads or saves is tracked in
// its own mapping context, so the same stored element is always the same Go
// value and saves send only what changed since the last read or save.
//
// A Session is not safe for concurrent use.
type Session struct {
	pm  *PersistenceManager
	uow *mapping.Context
}

// Context returns the mapping context of the session.
func (s *Session) Context() *mapping.Context { return s.uow }

// Clear forgets every tracked object. Objects loaded before are detached and
// saving them again rewrites all their properties.
func (s *Session) Clear() { s.uow.Clear() }

// Load runs a read query and hydrates its rows. Without root specs every node
// entity found in the result is returned.
func (s *Session) Load(ctx context.Context, query string, params map[string]any, roots ...mapping.RootSpec) ([]any, error) {
	ctx, span := tracer.Start(ctx, "Session.Load")
	defer span.End()

	res, err := s.pm.runner.Run(ctx, query, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	rows := RowsFromResult(res)
	objs, err := s.pm.mapper.Hydrate(s.uow, rows, roots...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hydration failed")
		s.pm.logger.Error("hydration failed", zap.Int("rows", len(rows)), zap.Error(err))
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("ogm.rows", len(rows)),
		attribute.Int("ogm.roots", len(objs)),
	)
	hydratedRoots.Add(float64(len(objs)))
	return objs, nil
}

// LoadAll runs a read query and returns every hydrated entity of type T.
// Entities of types embedding T are hydrated and tracked but not returned.
func LoadAll[T any](ctx context.Context, s *Session, query string, params map[string]any) ([]*T, error) {
	class, ok := s.pm.model.ClassForType(reflect.TypeOf((*T)(nil)).Elem())
	if !ok {
		return nil, fmt.Errorf("%T is not a mapped type", (*T)(nil))
	}
	objs, err := s.Load(ctx, query, params, mapping.RootSpec{Class: class.Name})
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

// Save writes obj and everything reachable from it within depth relationship
// hops. Use cypher.Unlimited to follow every relationship.
func (s *Session) Save(ctx context.Context, obj any, depth int) error {
	return s.SaveAll(ctx, []any{obj}, depth)
}

// SaveAll saves several roots in one batch.
func (s *Session) SaveAll(ctx context.Context, objs []any, depth int) error {
	ctx, span := tracer.Start(ctx, "Session.Save")
	defer span.End()

	batch, err := s.pm.compiler.ComputeChangeSet(s.uow, objs, depth)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "change set rejected")
		return err
	}
	span.SetAttributes(attribute.Int("ogm.depth", depth), attribute.Int("ogm.statements", batch.Len()))
	return s.execute(ctx, batch)
}

// Delete removes nodes, with their relationships, and relationship entities
// from the store.
func (s *Session) Delete(ctx context.Context, objs ...any) error {
	ctx, span := tracer.Start(ctx, "Session.Delete")
	defer span.End()

	batch, err := s.pm.compiler.ComputeDelete(s.uow, objs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete rejected")
		return err
	}
	span.SetAttributes(attribute.Int("ogm.statements", batch.Len()))
	return s.execute(ctx, batch)
}

func (s *Session) execute(ctx context.Context, batch *cypher.Batch) error {
	if batch.Empty() {
		return nil
	}
	s.pm.logger.Debug("sending batch", zap.Int("statements", batch.Len()))
	created, err := s.pm.runner.RunBatch(ctx, batch)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			conflicts.Inc()
		}
		s.pm.logger.Error("batch failed", zap.Int("statements", batch.Len()), zap.Error(err))
		return err
	}
	for _, st := range batch.Statements {
		statementsSent.WithLabelValues(st.Kind.String()).Inc()
	}
	if err := cypher.ApplyResults(s.uow, batch, created); err != nil {
		return fmt.Errorf("apply results: %w", err)
	}
	return nil
}
