package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	ogm "github.com/nioertel/neo4j-ogm"
)

// NewVerifyCommand creates the verify command
func NewVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check connectivity to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := cfg.Logger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			executor, err := ogm.NewNeo4jExecutor(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database,
				ogm.WithExecutorLogger(logger))
			if err != nil {
				return err
			}
			defer executor.Close(cmd.Context())

			if err := executor.Verify(cmd.Context()); err != nil {
				logger.Error("connectivity check failed", zap.String("uri", cfg.Neo4j.URI), zap.Error(err))
				return fmt.Errorf("could not connect to %s: %w", cfg.Neo4j.URI, err)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ connected to %s (database %s)\n", cfg.Neo4j.URI, cfg.Neo4j.Database)
			return nil
		},
	}
}
