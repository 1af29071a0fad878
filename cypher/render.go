package cypher

import (
	"strings"
)

// Statements address elements by native id, which the query builder used for
// repository lookups cannot express, so the text is assembled here.

func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func labelList(labels []string) string {
	var b strings.Builder
	for _, l := range labels {
		b.WriteByte(':')
		b.WriteString(quote(l))
	}
	return b.String()
}

func createNodeQuery(labels []string) string {
	return "CREATE (n" + labelList(labels) + ") SET n = $props RETURN id(n) AS id"
}

func updateNodeQuery(versionProp string) string {
	var b strings.Builder
	b.WriteString("MATCH (n) WHERE id(n) = $id")
	if versionProp != "" {
		b.WriteString(" AND n." + quote(versionProp) + " = $version")
	}
	b.WriteString(" SET n += $props RETURN id(n) AS id")
	return b.String()
}

func deleteNodeQuery() string {
	return "MATCH (n) WHERE id(n) = $id WITH n, id(n) AS id DETACH DELETE n RETURN id"
}

func createRelationshipQuery(relType string) string {
	return "MATCH (a) WHERE id(a) = $start MATCH (b) WHERE id(b) = $end " +
		"CREATE (a)-[r:" + quote(relType) + "]->(b) SET r = $props RETURN id(r) AS id"
}

func updateRelationshipQuery(versionProp string) string {
	var b strings.Builder
	b.WriteString("MATCH ()-[r]->() WHERE id(r) = $id")
	if versionProp != "" {
		b.WriteString(" AND r." + quote(versionProp) + " = $version")
	}
	b.WriteString(" SET r += $props RETURN id(r) AS id")
	return b.String()
}

func deleteRelationshipQuery() string {
	return "MATCH ()-[r]->() WHERE id(r) = $id WITH r, id(r) AS id DELETE r RETURN id"
}
