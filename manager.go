package ogm

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
	"go.uber.org/zap"

	"github.com/nioertel/neo4j-ogm/cypher"
	"github.com/nioertel/neo4j-ogm/mapping"
	"github.com/nioertel/neo4j-ogm/metadata"
)

// Node is embedded in a struct to mark it as a node entity. Its tag may set
// the label, e.g. `ogm:"label:Person"`.
type Node = metadata.Node

// Relationship is embedded in a struct to mark it as a relationship entity.
// Its tag may set the type, e.g. `ogm:"type:PARENT_OF"`.
type Relationship = metadata.Relationship

// PersistenceManager is the central orchestrator for the persistence layer.
// It owns the immutable metadata model and the database connection, and opens
// the sessions that do the actual mapping work. It is safe for concurrent use.
type PersistenceManager struct {
	runner       BatchRunner
	model        *metadata.Model
	mapper       *mapping.Mapper
	compiler     *cypher.Compiler
	logger       *zap.Logger
	defaultDepth int
	metadataOpts []metadata.Option
}

// Option configures a PersistenceManager.
type Option func(*PersistenceManager)

// WithLogger sets the logger used by the manager and its sessions.
func WithLogger(l *zap.Logger) Option {
	return func(pm *PersistenceManager) { pm.logger = l }
}

// WithDefaultDepth sets the depth repositories save with.
func WithDefaultDepth(depth int) Option {
	return func(pm *PersistenceManager) { pm.defaultDepth = depth }
}

// WithMetadataOptions passes options, such as metadata.WithConverters, to the
// model built by Open. NewPersistenceManager ignores them.
func WithMetadataOptions(opts ...metadata.Option) Option {
	return func(pm *PersistenceManager) { pm.metadataOpts = append(pm.metadataOpts, opts...) }
}

// NewPersistenceManager creates a new instance of the PersistenceManager.
func NewPersistenceManager(runner BatchRunner, model *metadata.Model, opts ...Option) *PersistenceManager {
	pm := &PersistenceManager{
		runner:       runner,
		model:        model,
		logger:       zap.NewNop(),
		defaultDepth: 1,
	}
	for _, opt := range opts {
		opt(pm)
	}
	pm.mapper = mapping.NewMapper(model, mapping.WithMapperLogger(pm.logger.Named("mapping")))
	pm.compiler = cypher.NewCompiler(model, cypher.WithLogger(pm.logger.Named("cypher")))
	return pm
}

// Open scans the given entity values, builds their model and returns a
// manager for it.
func Open(runner BatchRunner, entities []any, opts ...Option) (*PersistenceManager, error) {
	cfg := &PersistenceManager{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	buildOpts := append([]metadata.Option{metadata.WithLogger(cfg.logger.Named("metadata"))}, cfg.metadataOpts...)
	model, err := metadata.BuildFrom(entities, buildOpts...)
	if err != nil {
		return nil, err
	}
	return NewPersistenceManager(runner, model, opts...), nil
}

// Model returns the metadata model.
func (pm *PersistenceManager) Model() *metadata.Model { return pm.model }

// DefaultDepth returns the depth repositories save with.
func (pm *PersistenceManager) DefaultDepth() int { return pm.defaultDepth }

// OpenSession starts a new unit of work.
func (pm *PersistenceManager) OpenSession() *Session {
	return &Session{pm: pm, uow: mapping.NewContext(pm.model)}
}

// RepositoryFor is a generic function that creates and returns a repository
// for a specific struct type T, backed by a fresh session.
func RepositoryFor[T any](pm *PersistenceManager) (*Repository[T], error) {
	return NewRepository[T](pm.OpenSession())
}

// FindGraph executes a graph query defined by a gocypher.QueryBuilder and maps the result
// into a generic graph structure composed of nodes and edges.
//
// This method is domain-agnostic; it does not consult the metadata model. Its primary
// role is to translate the raw graph elements returned by a Cypher query into a clean,
// serializable format suitable for frontends or other services.
//
// The caller is responsible for constructing a valid query via the QueryBuilder, including
// a RETURN clause that specifies which nodes and relationships should be included in the
// final graph. For example, `RETURN h, r, c`.
//
// Nodes and relationships returned in several rows appear once in the result.
// ErrNotFound is returned when the query yields no record.
func (pm *PersistenceManager) FindGraph(ctx context.Context, qb *gocypher.QueryBuilder) (*GraphResult, error) {
	query, params, err := qb.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}

	eagerResult, err := pm.runner.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}

	if len(eagerResult.Records) == 0 {
		return nil, ErrNotFound
	}

	graph := &GraphResult{
		Nodes: make([]*GraphNode, 0),
		Edges: make([]*Edge, 0),
	}
	seenNodeIDs := make(map[string]bool)
	seenEdgeIDs := make(map[string]bool)

	var collect func(value any)
	collect = func(value any) {
		switch v := value.(type) {
		case neo4j.Node:
			if !seenNodeIDs[v.ElementId] {
				graph.Nodes = append(graph.Nodes, &GraphNode{
					ID:         v.ElementId,
					Labels:     v.Labels,
					Properties: v.Props,
				})
				seenNodeIDs[v.ElementId] = true
			}
		case neo4j.Relationship:
			if !seenEdgeIDs[v.ElementId] {
				graph.Edges = append(graph.Edges, &Edge{
					ID:         v.ElementId,
					Source:     v.StartElementId,
					Target:     v.EndElementId,
					Type:       v.Type,
					Properties: v.Props,
				})
				seenEdgeIDs[v.ElementId] = true
			}
		case neo4j.Path:
			for _, n := range v.Nodes {
				collect(n)
			}
			for _, r := range v.Relationships {
				collect(r)
			}
		case []any:
			for _, item := range v {
				collect(item)
			}
		}
	}
	for _, record := range eagerResult.Records {
		for _, value := range record.Values {
			collect(value)
		}
	}

	return graph, nil
}
