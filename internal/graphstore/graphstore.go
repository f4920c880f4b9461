// Package graphstore persists enriched domain records into a Neo4j property
// graph. Vertex collections and edge types mirror the original ArangoDB
// named-collection model (domain, country, link, subdomain, url, ipv4,
// ipv6, traffic, analyst-qas vertices; ranked, related, contribute,
// links_into, ipv4_resolves, ipv6_resolves, visit, marked edges), expressed
// here as Neo4j labels and relationship types.
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// VertexLabels are the named vertex collections of the domain-intel graph.
var VertexLabels = []string{
	"UrlInfo", "GeoDNS", "Domain", "Country", "Link",
	"Subdomain", "Url", "Ipv4", "Ipv6", "Traffic", "AnalystQas",
}

// edgeDef names an edge type and the vertex labels it connects.
type edgeDef struct{ name, from, to string }

// EdgeDefs are the named edge collections of the domain-intel graph.
var EdgeDefs = []edgeDef{
	{"RANKED", "Domain", "Country"},
	{"RELATED", "Domain", "Link"},
	{"CONTRIBUTE", "Subdomain", "Domain"},
	{"LINKS_INTO", "Url", "Domain"},
	{"IPV4_RESOLVES", "Domain", "Ipv4"},
	{"IPV6_RESOLVES", "Domain", "Ipv6"},
	{"VISIT", "Traffic", "Domain"},
	{"MARKED", "Domain", "AnalystQas"},
}

// ErrTraverseFailed is returned when the seed vertex for a traversal does
// not exist in the graph.
var ErrTraverseFailed = errors.New("graphstore: traverse failed, seed vertex not found")

// Vertex is one node read back from a traversal.
type Vertex struct {
	Label string
	ID    string
	Props map[string]any
}

// Edge is one relationship read back from a traversal.
type Edge struct {
	Type  string
	From  string
	To    string
	Props map[string]any
}

// Traversal is the one-hop, any-direction neighborhood of a seed vertex.
type Traversal struct {
	Seed     Vertex
	Vertices []Vertex
	Edges    []Edge
}

// Store wraps a Neo4j driver with the domain-intel graph's insert/traverse
// semantics.
type Store struct {
	driver neo4j.DriverWithContext
	log    *slog.Logger
}

// New creates a Store over an already-connected driver.
func New(driver neo4j.DriverWithContext, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{driver: driver, log: log}
}

// Initialise verifies connectivity to the graph database. It is idempotent
// and safe to call on every process start.
func (s *Store) Initialise(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// BuildGraph creates the uniqueness constraints standing in for named vertex
// collections (one on n.id per vertex label) and one relationship uniqueness
// constraint on r.id per edge type. Returns the names of the constraints
// created or already present. Idempotent: an existing constraint is not an
// error.
func (s *Store) BuildGraph(ctx context.Context) ([]string, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	var created []string
	for _, label := range VertexLabels {
		name := fmt.Sprintf("%s_id_unique", strings.ToLower(label))
		cypher := fmt.Sprintf(
			"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
			name, label,
		)
		if _, err := sess.Run(ctx, cypher, nil); err != nil {
			return created, fmt.Errorf("creating constraint for %s: %w", label, err)
		}
		created = append(created, name)
	}
	for _, def := range EdgeDefs {
		name := fmt.Sprintf("%s_id_unique", strings.ToLower(def.name))
		cypher := fmt.Sprintf(
			"CREATE CONSTRAINT %s IF NOT EXISTS FOR ()-[r:%s]-() REQUIRE r.id IS UNIQUE",
			name, def.name,
		)
		if _, err := sess.Run(ctx, cypher, nil); err != nil {
			return created, fmt.Errorf("creating constraint for edge %s: %w", def.name, err)
		}
		created = append(created, name)
	}
	return created, nil
}

// DropDatabase removes every node and relationship. Test/dev use only.
func (s *Store) DropDatabase(ctx context.Context) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)
	_, err := sess.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
	return err
}

// InsertVertex creates a vertex with the given id if one does not already
// exist. Returns true iff a new vertex was created — a duplicate key is not
// an error, matching the original's DocumentInsertError swallow.
func (s *Store) InsertVertex(ctx context.Context, label, id string, props map[string]any, dry bool) (bool, error) {
	if dry {
		s.log.Info("dry-run vertex insert", "label", label, "id", id)
		return true, nil
	}

	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	merged := map[string]any{"id": id}
	for k, v := range props {
		merged[k] = v
	}

	cypher := fmt.Sprintf("CREATE (n:%s $props) RETURN n", label)
	_, err := sess.Run(ctx, cypher, map[string]any{"props": merged})
	if err != nil {
		if isConstraintViolation(err) {
			s.log.Warn("vertex already exists", "label", label, "id", id)
			return false, nil
		}
		return false, fmt.Errorf("inserting vertex %s/%s: %w", label, id, err)
	}
	return true, nil
}

// InsertEdge creates an edge with the given id between two existing
// vertices if one does not already exist. Returns true iff a new edge was
// created.
func (s *Store) InsertEdge(ctx context.Context, edgeType, id, fromLabel, fromID, toLabel, toID string, props map[string]any, dry bool) (bool, error) {
	if dry {
		s.log.Info("dry-run edge insert", "type", edgeType, "id", id, "from", fromID, "to", toID)
		return true, nil
	}

	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	merged := map[string]any{"id": id}
	for k, v := range props {
		merged[k] = v
	}

	cypher := fmt.Sprintf(
		`MATCH (a:%s {id: $from}), (b:%s {id: $to})
		 CREATE (a)-[r:%s $props]->(b)`,
		fromLabel, toLabel, edgeType,
	)
	_, err := sess.Run(ctx, cypher, map[string]any{"from": fromID, "to": toID, "props": merged})
	if err != nil {
		if isConstraintViolation(err) {
			s.log.Warn("edge already exists", "type", edgeType, "id", id)
			return false, nil
		}
		return false, fmt.Errorf("inserting edge %s/%s: %w", edgeType, id, err)
	}
	return true, nil
}

// GetCount returns the number of vertices in a collection.
func (s *Store) GetCount(ctx context.Context, label string) (int64, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS c", label)
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return 0, err
	}
	if !result.Next(ctx) {
		return 0, nil
	}
	c, _, err := neo4j.GetRecordValue[int64](result.Record(), "c")
	return c, err
}

// Traverse returns the one-hop, any-direction neighborhood of the vertex
// identified by seedID. Returns ErrTraverseFailed if no such vertex exists.
func (s *Store) Traverse(ctx context.Context, seedID string) (*Traversal, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	seedCypher := "MATCH (n {id: $id}) RETURN n, labels(n) AS labels"
	seedRes, err := sess.Run(ctx, seedCypher, map[string]any{"id": seedID})
	if err != nil {
		return nil, err
	}
	if !seedRes.Next(ctx) {
		return nil, ErrTraverseFailed
	}
	seedNode, _, err := neo4j.GetRecordValue[dbtype.Node](seedRes.Record(), "n")
	if err != nil {
		return nil, err
	}
	seedLabels, _, _ := neo4j.GetRecordValue[[]any](seedRes.Record(), "labels")
	seed := Vertex{Label: firstLabel(seedLabels), ID: seedID, Props: seedNode.Props}

	cypher := `MATCH (s {id: $id})-[r]-(n)
			   RETURN DISTINCT n, labels(n) AS labels, r, type(r) AS reltype,
			          startNode(r).id AS fromID, endNode(r).id AS toID`
	result, err := sess.Run(ctx, cypher, map[string]any{"id": seedID})
	if err != nil {
		return nil, err
	}

	trav := &Traversal{Seed: seed}
	seen := map[string]bool{}
	for result.Next(ctx) {
		rec := result.Record()
		node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
		if err != nil {
			return nil, err
		}
		labels, _, _ := neo4j.GetRecordValue[[]any](rec, "labels")
		nodeID, _ := node.Props["id"].(string)
		if !seen[nodeID] {
			seen[nodeID] = true
			trav.Vertices = append(trav.Vertices, Vertex{Label: firstLabel(labels), ID: nodeID, Props: node.Props})
		}

		rel, _, err := neo4j.GetRecordValue[dbtype.Relationship](rec, "r")
		if err != nil {
			return nil, err
		}
		relType, _, _ := neo4j.GetRecordValue[string](rec, "reltype")
		fromID, _, _ := neo4j.GetRecordValue[string](rec, "fromID")
		toID, _, _ := neo4j.GetRecordValue[string](rec, "toID")
		trav.Edges = append(trav.Edges, Edge{Type: relType, From: fromID, To: toID, Props: rel.Props})
	}
	return trav, nil
}

func firstLabel(labels []any) string {
	if len(labels) == 0 {
		return ""
	}
	s, _ := labels[0].(string)
	return s
}

// isConstraintViolation reports whether err is a Neo4j uniqueness
// constraint violation, which this store treats as "already exists" rather
// than a failure — the Go-native equivalent of catching
// arango.exceptions.DocumentInsertError in the original.
func isConstraintViolation(err error) bool {
	return strings.Contains(err.Error(), "ConstraintValidationFailed") ||
		strings.Contains(err.Error(), "already exists")
}
