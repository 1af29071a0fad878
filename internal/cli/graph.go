package cli

import (
	"encoding/json"

	"github.com/saulfrancisco-ruizacevedo/gocypher"
	"github.com/spf13/cobra"

	ogm "github.com/nioertel/neo4j-ogm"
	"github.com/nioertel/neo4j-ogm/examples/models"
)

var (
	graphLabelFlag        string
	graphRelationshipFlag string
)

// NewGraphCommand creates the graph command
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Dump the nodes of a label, optionally with their relationships, as JSON",
		Example: `  # Every Human node
  neo4j-ogm graph --label Human

  # Humans and their children
  neo4j-ogm graph --label Human --relationship PARENT_OF`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			executor, err := ogm.NewNeo4jExecutor(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
			if err != nil {
				return err
			}
			defer executor.Close(cmd.Context())

			manager, err := ogm.Open(executor, models.All())
			if err != nil {
				return err
			}
			result, err := manager.FindGraph(cmd.Context(), graphQuery(graphLabelFlag, graphRelationshipFlag))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&graphLabelFlag, "label", "", "label of the nodes to dump")
	cmd.Flags().StringVar(&graphRelationshipFlag, "relationship", "", "outgoing relationship type to follow")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func graphQuery(label, relType string) *gocypher.QueryBuilder {
	qb := gocypher.NewQueryBuilder().Match(gocypher.N("n", label))
	if relType == "" {
		return qb.Return("n")
	}
	return qb.
		Match(gocypher.NRef("n"), gocypher.R("r", relType).To(), gocypher.N("m", "")).
		Return("n", "r", "m")
}
