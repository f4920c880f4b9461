// Package persist implements the terminal stage of the pipeline: decoding a
// flat record, projecting it to vertex and edge payloads, and driving graph
// store inserts.
package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/loum/domain-intel/internal/graphstore"
	"github.com/loum/domain-intel/internal/parser"
)

// Projector is implemented by every parser's flat-record type.
type Projector interface {
	VertexPayloads() []parser.Vertex
	EdgePayloads() []parser.Edge
}

// Inserter is the graph store's write-side dependency.
type Inserter interface {
	InsertVertex(ctx context.Context, collection, key string, props map[string]any, dry bool) (bool, error)
	InsertEdge(ctx context.Context, edgeType, key, fromColl, fromKey, toColl, toKey string, props map[string]any, dry bool) (bool, error)
}

var _ Inserter = (*graphstore.Store)(nil)
var _ Inserter = (*graphstore.FakeStore)(nil)

// Decode turns one topic's raw message bytes into the flat record type that
// topic's payloads carry, selecting the parser family by topic the same way
// the persist worker itself does.
type Decode func(data []byte) (Projector, error)

// Worker is the persist stage's terminal worker: it decodes by topic,
// projects to vertices/edges, and inserts every projection into the store.
// Metrics.EdgeCount only counts edges that were newly created; duplicate
// keys do not count. A store failure on any single insert aborts the whole
// message (no partial commit), so the stage will not ack it and the broker
// redelivers on the next run.
type Worker struct {
	Store   Inserter
	Decoder map[string]Decode
	Dry     bool
}

// Metrics summarizes one message's persist outcome.
type Metrics struct {
	VertexCount int
	EdgeCount   int
}

// HandleMessage is the persist stage's per-message entry point, given the
// topic the message arrived on and its raw bytes.
func (w *Worker) HandleMessage(ctx context.Context, topic string, data []byte) (Metrics, error) {
	decode, ok := w.Decoder[topic]
	if !ok {
		return Metrics{}, fmt.Errorf("persist: no decoder registered for topic %q", topic)
	}
	record, err := decode(data)
	if err != nil {
		return Metrics{}, fmt.Errorf("persist: decode %s: %w", topic, err)
	}

	var metrics Metrics
	for _, v := range record.VertexPayloads() {
		label := vertexLabel(v.Collection)
		if _, err := w.Store.InsertVertex(ctx, label, v.Key, v.Props, w.Dry); err != nil {
			return metrics, fmt.Errorf("persist: insert vertex %s/%s: %w", label, v.Key, err)
		}
		metrics.VertexCount++
	}
	for _, e := range record.EdgePayloads() {
		fromColl, fromKey := splitRef(e.From)
		toColl, toKey := splitRef(e.To)
		edgeType := edgeLabel(e.Name)
		created, err := w.Store.InsertEdge(ctx, edgeType, e.Key, vertexLabel(fromColl), fromKey, vertexLabel(toColl), toKey, e.Props, w.Dry)
		if err != nil {
			return metrics, fmt.Errorf("persist: insert edge %s/%s: %w", edgeType, e.Key, err)
		}
		if created {
			metrics.EdgeCount++
		}
	}
	return metrics, nil
}

func splitRef(ref string) (collection, key string) {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '/' {
			return ref[:i], ref[i+1:]
		}
	}
	return "", ref
}

// vertexCollectionLabels maps a parser's lowercase/snake-case vertex
// collection name onto the exact Neo4j label graphstore.VertexLabels
// declares, so the constraint BuildGraph creates at the label actually
// matches what persist writes.
var vertexCollectionLabels = map[string]string{
	"domain":      "Domain",
	"country":     "Country",
	"link":        "Link",
	"subdomain":   "Subdomain",
	"url":         "Url",
	"ipv4":        "Ipv4",
	"ipv6":        "Ipv6",
	"traffic":     "Traffic",
	"analyst_qas": "AnalystQas",
	"geodns":      "GeoDNS",
}

// edgeNameTypes maps a parser's lowercase edge name onto the exact Neo4j
// relationship type graphstore.EdgeDefs declares.
var edgeNameTypes = map[string]string{
	"ranked":        "RANKED",
	"related":       "RELATED",
	"contribute":    "CONTRIBUTE",
	"links_into":    "LINKS_INTO",
	"ipv4_resolves": "IPV4_RESOLVES",
	"ipv6_resolves": "IPV6_RESOLVES",
	"visit":         "VISIT",
	"marked":        "MARKED",
}

func vertexLabel(collection string) string {
	if label, ok := vertexCollectionLabels[collection]; ok {
		return label
	}
	return collection
}

func edgeLabel(name string) string {
	if t, ok := edgeNameTypes[name]; ok {
		return t
	}
	return name
}

// DecodeJSON builds a Decode for a flat record type that is transmitted as
// plain JSON (no further parsing beyond unmarshalling) — used for topics
// whose upstream stage already emitted the projector-ready shape, such as
// analyst-qas rows split out of the QAS workbook.
func DecodeJSON[T any, PT interface {
	*T
	Projector
}]() Decode {
	return func(data []byte) (Projector, error) {
		v := new(T)
		if err := json.Unmarshal(data, v); err != nil {
			return nil, err
		}
		return PT(v), nil
	}
}
