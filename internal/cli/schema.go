package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nioertel/neo4j-ogm/examples/models"
	"github.com/nioertel/neo4j-ogm/metadata"
)

// NewSchemaCommand creates the schema command
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the mapping model of the example domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := metadata.BuildFrom(models.All())
			if err != nil {
				return err
			}
			printSchema(cmd.OutOrStdout(), model)
			return nil
		},
	}
}

func printSchema(w io.Writer, model *metadata.Model) {
	title := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	for _, class := range model.Classes() {
		if class.IsRelationshipEntity() {
			title.Fprintf(w, "%s", class.Name)
			fmt.Fprintf(w, " -[:%s]->\n", class.RelationshipType)
		} else {
			title.Fprintf(w, "%s", class.Name)
			fmt.Fprintf(w, " :%s\n", strings.Join(class.Labels, ":"))
		}
		for _, f := range class.Fields {
			switch {
			case f == class.Identity:
				fmt.Fprintf(w, "  %-14s id\n", f.Name)
			case f.IsProperty():
				fmt.Fprintf(w, "  %-14s %s", f.Name, f.Property)
				if f.ConverterName != "" {
					dim.Fprintf(w, " (%s)", f.ConverterName)
				}
				if f == class.Version {
					dim.Fprint(w, " (version)")
				}
				fmt.Fprintln(w)
			case f.IsEndpoint():
				end := "start"
				if f == class.EndNode {
					end = "end"
				}
				fmt.Fprintf(w, "  %-14s %s %s\n", f.Name, end, f.Relationship.Target)
			case f.Relationship != nil:
				fmt.Fprintf(w, "  %-14s %s %s %s\n", f.Name, f.Relationship.Type, f.Relationship.Direction, f.Relationship.Target)
			}
		}
	}
}
