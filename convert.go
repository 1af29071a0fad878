package ogm

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/nioertel/neo4j-ogm/mapping"
)

// RowsFromResult converts driver records into mapping rows. Nodes,
// relationships and paths become mapping records; lists are converted
// element-wise; everything else is passed through.
func RowsFromResult(res *neo4j.EagerResult) []mapping.Row {
	if res == nil {
		return nil
	}
	rows := make([]mapping.Row, 0, len(res.Records))
	for _, rec := range res.Records {
		rows = append(rows, rowFromRecord(rec))
	}
	return rows
}

func rowFromRecord(rec *neo4j.Record) mapping.Row {
	row := mapping.Row{
		Keys:   append([]string(nil), rec.Keys...),
		Values: make([]any, len(rec.Values)),
	}
	for i, v := range rec.Values {
		row.Values[i] = convertValue(v)
	}
	return row
}

func convertValue(v any) any {
	switch x := v.(type) {
	case neo4j.Node:
		return nodeRecord(x)
	case neo4j.Relationship:
		return relationshipRecord(x)
	case neo4j.Path:
		out := make([]any, 0, len(x.Nodes)+len(x.Relationships))
		for _, n := range x.Nodes {
			out = append(out, nodeRecord(n))
		}
		for _, r := range x.Relationships {
			out = append(out, relationshipRecord(r))
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = convertValue(x[i])
		}
		return out
	default:
		return v
	}
}

func nodeRecord(n neo4j.Node) mapping.NodeRecord {
	return mapping.NodeRecord{ID: n.Id, Labels: n.Labels, Props: n.Props}
}

func relationshipRecord(r neo4j.Relationship) mapping.RelationshipRecord {
	return mapping.RelationshipRecord{ID: r.Id, Type: r.Type, StartID: r.StartId, EndID: r.EndId, Props: r.Props}
}
