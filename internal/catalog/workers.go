package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/loum/domain-intel/internal/graphstore"
	"github.com/loum/domain-intel/internal/parser"
	"github.com/loum/domain-intel/internal/persist"
	"github.com/loum/domain-intel/internal/reporter"
	"github.com/loum/domain-intel/internal/stage"
)

// EmitAnalystQAS parses an analyst-QAS workbook and publishes one message
// per domain row onto TopicAnalystQas. Unlike every other stage, it has no
// input topic — the workbook arrives as a one-shot operator-supplied file,
// not a streamed message — so it is a plain function the bootstrap CLI
// calls directly rather than a Stage the generic poll loop drives.
func EmitAnalystQAS(ctx context.Context, producer stage.Sender, workbook []byte, date string, dry bool) (int, error) {
	records, err := parser.ParseAnalystQAS(workbook, date)
	if err != nil {
		return 0, err
	}
	if dry {
		return len(records), nil
	}
	return publishRecords(ctx, producer, records)
}

func publishRecords(ctx context.Context, producer stage.Sender, records []*parser.AnalystQAS) (int, error) {
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return 0, err
		}
		if err := producer.SendRaw(ctx, TopicAnalystQas, payload); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}

// flattenRank parses a raw rank response into its flat JSON projection.
func flattenRank(_ context.Context, data []byte) ([]byte, error) {
	info, err := parser.ParseRankInfo(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(info)
}

// flattenTraffic parses a raw traffic-history response into its flat JSON
// projection. The domain the series belongs to travels alongside the raw
// payload as an envelope, since the upstream response itself carries no
// domain field.
type domainEnvelope struct {
	Domain  string          `json:"domain"`
	Payload json.RawMessage `json:"payload"`
}

func flattenTraffic(_ context.Context, data []byte) ([]byte, error) {
	var env domainEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	th, err := parser.ParseTrafficHistory(env.Domain, env.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(th)
}

// geoDNSWorker merges a parsed per-country DNS record with a fresh
// per-IP geolocation lookup performed through resolveGeo, the black-box
// boundary to the IP-geolocation collaborator.
func geoDNSWorker(resolveGeo ResolverFunc) func(context.Context, []byte) ([]byte, error) {
	return func(ctx context.Context, data []byte) ([]byte, error) {
		var env domainEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		geoData, err := resolveGeo(ctx, env.Payload)
		if err != nil {
			return nil, err
		}
		gd, err := parser.ParseGeoDNS(env.Domain, env.Payload, geoData)
		if err != nil {
			return nil, err
		}
		return json.Marshal(gd)
	}
}

// decodeSliEnvelope decodes a domainEnvelope-wrapped raw SitesLinkingIn
// response, parsing it inline: the pipeline has no separate flatten-sli
// stage, so the persist worker parses the upstream shape itself rather than
// consuming an already-flattened record.
func decodeSliEnvelope(data []byte) (persist.Projector, error) {
	var env domainEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return parser.ParseSitesLinkingIn(env.Domain, env.Payload)
}

// PersistDecoders builds the topic->Decode table the persist worker uses to
// turn each of the five flat-record source topics' raw bytes into their
// Projector. Topics fed by a flatten-* stage decode as already-flat JSON;
// alexa-sli-results has no flatten stage and is parsed here instead.
func PersistDecoders() map[string]persist.Decode {
	return map[string]persist.Decode{
		TopicAlexaFlattened:        persist.DecodeJSON[parser.RankInfo, *parser.RankInfo](),
		TopicAlexaSliResults:       decodeSliEnvelope,
		TopicAlexaTrafficFlattened: persist.DecodeJSON[parser.TrafficHistory, *parser.TrafficHistory](),
		TopicDnsGeoDNSParsed:       persist.DecodeJSON[parser.GeoDNS, *parser.GeoDNS](),
		TopicAnalystQas:            persist.DecodeJSON[parser.AnalystQAS, *parser.AnalystQAS](),
	}
}

// persistWorker adapts persist.Worker.HandleMessage, which needs the
// originating topic, to the single-input-type shape Stage's Worker expects.
// The returned bytes are the marshalled Metrics; persist stages have no
// output topics, so nothing ever publishes them — they exist only so the
// generic marshal step in Stage.Run has something to encode.
func persistWorker(w *persist.Worker, topic string) func(context.Context, []byte) ([]byte, error) {
	return func(ctx context.Context, data []byte) ([]byte, error) {
		m, err := w.HandleMessage(ctx, topic, data)
		if err != nil {
			return nil, err
		}
		return json.Marshal(m)
	}
}

// Traverser is the catalog's dependency on the graph store's read side.
type Traverser interface {
	Traverse(ctx context.Context, seedID string) (*graphstore.Traversal, error)
}

// traverseWorker decodes a domain-labels message (just the domain name as a
// JSON string) and runs a graph traversal rooted at it. A missing seed
// vertex (graphstore.ErrTraverseFailed) halts the stage like any other
// worker-fatal error — the message is left uncommitted for the operator to
// investigate, since a domain-labels entry naming a domain the graph has
// never seen indicates the persist stage hasn't caught up yet, not a
// permanent condition to silently discard.
func traverseWorker(trav Traverser) func(context.Context, []byte) ([]byte, error) {
	return func(ctx context.Context, data []byte) ([]byte, error) {
		var domain string
		if err := json.Unmarshal(data, &domain); err != nil {
			return nil, err
		}
		result, err := trav.Traverse(ctx, domain)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	}
}

// reportWorker decodes a domain-traversals message and renders it to CSV
// lines via the reporter package, joining them into one wide-column-csv
// payload (one line per ancillary record, since reporter.DumpWideColumnCSV
// concatenates the ancillary dimensions' rows rather than zipping them).
func reportWorker(now func() time.Time) func(context.Context, []byte) ([]byte, error) {
	return func(_ context.Context, data []byte) ([]byte, error) {
		var trav graphstore.Traversal
		if err := json.Unmarshal(data, &trav); err != nil {
			return nil, err
		}
		r := reporter.New(&trav)
		rows := r.DumpWideColumnCSV(now())
		return []byte(reporter.RenderCSV(rows)), nil
	}
}
