// Package cli holds the neo4j-ogm command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/nioertel/neo4j-ogm/config"
)

var (
	// Version information - set at build time
	Version = "dev"

	configDir string
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "neo4j-ogm",
		Short: "Object-graph mapping tooling for Neo4j",
		Long: `neo4j-ogm maps annotated Go structs to a Neo4j graph.

The commands below check connectivity, dump subgraphs as JSON and print the
mapping model of the bundled example domain.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding neo4j_ogm.yaml")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewVerifyCommand())
	rootCmd.AddCommand(NewGraphCommand())
	rootCmd.AddCommand(NewSchemaCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("neo4j-ogm " + Version)
		},
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configDir)
}
