package ogm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("neo4j_ogm.session")

var (
	// hydratedRoots counts root objects returned by Session.Load.
	hydratedRoots = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neo4j_ogm",
		Subsystem: "session",
		Name:      "hydrated_roots_total",
		Help:      "Total root objects hydrated from query results",
	})

	// statementsSent counts statements sent to the store.
	// Labels: kind (create_node, update_node, ...)
	statementsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "neo4j_ogm",
		Subsystem: "session",
		Name:      "statements_total",
		Help:      "Total statements sent to the store by kind",
	}, []string{"kind"})

	// conflicts counts batches rejected because an element changed since it was read.
	conflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neo4j_ogm",
		Subsystem: "session",
		Name:      "conflicts_total",
		Help:      "Total batches rejected by optimistic locking",
	})
)
