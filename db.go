// Package ogm maps annotated Go structs to a Neo4j graph. It wraps the official
// Neo4j Go driver and exposes sessions that hydrate query results into linked
// objects and save only what changed since they were read.
package ogm

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/nioertel/neo4j-ogm/cypher"
)

// DBRunner defines the interface for a generic query executor.
// It abstracts the execution of a Cypher query, allowing for different implementations
// or mocking in tests.
type DBRunner interface {
	// Run executes a given Cypher query with parameters and returns a fully-buffered result.
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
}

// BatchRunner is a DBRunner that can also execute a compiled statement batch.
type BatchRunner interface {
	DBRunner
	// RunBatch executes every statement of the batch, in order, in a single
	// write transaction and returns the ids assigned to created elements.
	RunBatch(ctx context.Context, batch *cypher.Batch) (map[cypher.Ref]int64, error)
}

//---

// Neo4jExecutor is a concrete implementation of the BatchRunner interface that uses the
// official Neo4j Go driver. It manages the driver instance and the target database name.
type Neo4jExecutor struct {
	Driver neo4j.DriverWithContext
	DBName string
	logger *zap.Logger
}

// ExecutorOption configures a Neo4jExecutor.
type ExecutorOption func(*Neo4jExecutor)

// WithExecutorLogger sets the logger of the executor.
func WithExecutorLogger(l *zap.Logger) ExecutorOption {
	return func(e *Neo4jExecutor) { e.logger = l }
}

// NewNeo4jExecutor creates and initializes a new Neo4jExecutor.
// It establishes a connection driver with the provided credentials.
//
// Parameters:
//   - uri: The connection URI for the Neo4j instance (e.g., "neo4j://localhost:7687").
//   - username: The username for authentication.
//   - password: The password for authentication.
//   - dbName: The name of the database to connect to (e.g., "neo4j").
//
// Returns:
//
//	A pointer to the newly created Neo4jExecutor or an error if the driver creation fails.
func NewNeo4jExecutor(uri, username, password, dbName string, opts ...ExecutorOption) (*Neo4jExecutor, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	e := &Neo4jExecutor{Driver: driver, DBName: dbName, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Verify checks the connectivity to the Neo4j database.
func (e *Neo4jExecutor) Verify(ctx context.Context) error {
	return e.Driver.VerifyConnectivity(ctx)
}

// Close releases the driver.
func (e *Neo4jExecutor) Close(ctx context.Context) error {
	return e.Driver.Close(ctx)
}

// Run executes a Cypher query using the modern ExecuteQuery function, which handles
// session and transaction management automatically for robust and simple execution.
// This function is suitable for both read and write operations.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - query: The Cypher query string to execute.
//   - params: A map of parameters to be used in the query.
//
// Returns:
//
//	An EagerResult containing all buffered records from the query, or an error if
//	the execution fails.
func (e *Neo4jExecutor) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		e.Driver,
		query,
		params,
		neo4j.EagerResultTransformer, // Buffers all results in memory before returning.
		neo4j.ExecuteQueryWithDatabase(e.DBName),
	)

	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}

	return result, nil
}

// RunBatch executes the batch in one managed write transaction. Either every
// statement is committed or none is.
func (e *Neo4jExecutor) RunBatch(ctx context.Context, batch *cypher.Batch) (map[cypher.Ref]int64, error) {
	session := e.Driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: e.DBName,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return executeBatch(ctx, batch, func(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
			res, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			return res.Collect(ctx)
		})
	})
	if err != nil {
		e.logger.Debug("batch rolled back", zap.Int("statements", batch.Len()), zap.Error(err))
		return nil, err
	}
	return out.(map[cypher.Ref]int64), nil
}

type statementFunc func(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error)

// executeBatch runs statements in order, binding refs to the ids returned by
// earlier create statements.
func executeBatch(ctx context.Context, batch *cypher.Batch, run statementFunc) (map[cypher.Ref]int64, error) {
	created := make(map[cypher.Ref]int64)
	for i, st := range batch.Statements {
		params, err := st.Bind(created)
		if err != nil {
			return nil, fmt.Errorf("statement %d (%s): %w", i, st.Kind, err)
		}
		records, err := run(ctx, st.Query, params)
		if err != nil {
			return nil, fmt.Errorf("statement %d (%s): %w", i, st.Kind, err)
		}
		if st.ExpectRows && len(records) == 0 {
			return nil, &ConflictError{Statement: st.Kind.String(), ID: params["id"]}
		}
		if st.Ref == 0 {
			continue
		}
		if len(records) == 0 {
			if st.Kind == cypher.CreateRelationship {
				// an endpoint was deleted concurrently
				return nil, &ConflictError{Statement: st.Kind.String(), ID: []any{params["start"], params["end"]}}
			}
			return nil, fmt.Errorf("statement %d (%s) returned no id", i, st.Kind)
		}
		raw, _ := records[0].Get("id")
		id, ok := raw.(int64)
		if !ok {
			return nil, fmt.Errorf("statement %d (%s) returned id of type %T", i, st.Kind, raw)
		}
		created[st.Ref] = id
	}
	return created, nil
}
