package ogm

// GraphNode represents a generic node from a Neo4j graph.
// It is a domain-agnostic representation, capturing the essential components of any node:
// its unique internal ID, its labels, and its properties. This struct is designed to be
// easily serialized to JSON.
type GraphNode struct {
	// ID is the unique internal identifier assigned by Neo4j to the node (ElementId).
	ID string `json:"id"`

	// Labels is a slice of strings containing all the labels attached to the node (e.g., ["Human", "Person"]).
	Labels []string `json:"labels"`

	// Properties is a map containing the key-value properties of the node.
	Properties map[string]any `json:"properties"`
}

// Edge represents a generic relationship between two nodes.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	// Type is the relationship's type (e.g., "PARENT_OF", "READ_BY").
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// GraphResult is a de-duplicated set of nodes and edges.
type GraphResult struct {
	Nodes []*GraphNode `json:"nodes"`
	Edges []*Edge      `json:"edges"`
}
