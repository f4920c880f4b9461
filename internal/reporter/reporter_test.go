package reporter

import (
	"strings"
	"testing"
	"time"

	"github.com/loum/domain-intel/internal/graphstore"
)

func TestDomainQuotesTitleAndDescription(t *testing.T) {
	r := New(&graphstore.Traversal{
		Seed: graphstore.Vertex{ID: "example.com", Props: map[string]any{
			"title":       `Say "hi"`,
			"description": "plain",
			"rank":        int64(42),
		}},
	})
	d := r.Domain()
	if d["TITLE"] != `"Say ""hi"""` {
		t.Errorf("TITLE = %q, want doubled-quote-escaped", d["TITLE"])
	}
	if d["RANK"] != "42" {
		t.Errorf("RANK = %q, want 42", d["RANK"])
	}
}

func TestCountryRanksExtractedFromRankedEdges(t *testing.T) {
	r := New(&graphstore.Traversal{
		Seed: graphstore.Vertex{ID: "example.com"},
		Vertices: []graphstore.Vertex{
			{Label: "Country", ID: "US", Props: map[string]any{"name": "United States"}},
		},
		Edges: []graphstore.Edge{
			{Type: "RANKED", From: "example.com", To: "US", Props: map[string]any{"rank": int64(10)}},
		},
	})
	ranks := r.CountryRanks()
	if len(ranks) != 1 || ranks[0].Code != "US" || ranks[0].Name != "United States" || ranks[0].Rank != "10" {
		t.Fatalf("CountryRanks = %+v, unexpected", ranks)
	}
}

func TestAnalystQASNormalizesYNToBool(t *testing.T) {
	r := New(&graphstore.Traversal{
		Seed: graphstore.Vertex{ID: "example.com"},
		Vertices: []graphstore.Vertex{
			{Label: "AnalystQas", ID: "example.com", Props: map[string]any{"has_rss_feed": "Y", "requires_login": "N"}},
		},
		Edges: []graphstore.Edge{
			{Type: "MARKED", From: "example.com", To: "example.com"},
		},
	})
	qas := r.AnalystQAS()
	if qas["has_rss_feed"] != "true" || qas["requires_login"] != "false" {
		t.Fatalf("AnalystQAS = %+v, want Y/N normalized to true/false", qas)
	}
}

func TestDumpWideColumnCSVSimpleDomainYieldsOneRowWithZeroTrends(t *testing.T) {
	r := New(&graphstore.Traversal{
		Seed: graphstore.Vertex{ID: "simple.example", Props: map[string]any{}},
	})
	now := time.Date(2017, 8, 4, 0, 0, 0, 0, time.UTC)
	rows := r.DumpWideColumnCSV(now)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want exactly 1 for a domain with no ancillary data", len(rows))
	}
	row := rows[0]
	if row[ColDomain] != "simple.example" {
		t.Errorf("DOMAIN column = %q, want simple.example", row[ColDomain])
	}
	trendCols := []Column{
		ColMonth1VisitsDowntrend, ColMonth1VisitsUptrend,
		ColMonth3VisitsDowntrend, ColMonth3VisitsUptrend,
		ColMonth1RankDowntrend, ColMonth1RankUptrend,
		ColMonth3RankDowntrend, ColMonth3RankUptrend,
	}
	for _, c := range trendCols {
		if row[c] != "0.00" {
			t.Errorf("trend column %s = %q, want 0.00", Names[c], row[c])
		}
	}
}

func TestDumpWideColumnCSVConcatenatesAncillaryDimensionsRatherThanZipping(t *testing.T) {
	r := New(&graphstore.Traversal{
		Seed: graphstore.Vertex{ID: "busy.example", Props: map[string]any{}},
		Vertices: []graphstore.Vertex{
			{Label: "Country", ID: "US", Props: map[string]any{"name": "United States"}},
			{Label: "Country", ID: "AU", Props: map[string]any{"name": "Australia"}},
			{Label: "Traffic", ID: "busy.example-traffic", Props: map[string]any{
				"days": []any{
					map[string]any{"Date": "20170101", "Rank": "100"},
					map[string]any{"Date": "20170201", "Rank": "90"},
					map[string]any{"Date": "20170301", "Rank": "80"},
				},
			}},
		},
		Edges: []graphstore.Edge{
			{Type: "RANKED", From: "busy.example", To: "US", Props: map[string]any{"rank": int64(1)}},
			{Type: "RANKED", From: "busy.example", To: "AU", Props: map[string]any{"rank": int64(2)}},
			{Type: "VISIT", From: "busy.example-traffic", To: "busy.example"},
		},
	})
	now := time.Date(2017, 8, 4, 0, 0, 0, 0, time.UTC)
	rows := r.DumpWideColumnCSV(now)

	// 2 country-rank rows + 3 traffic-snapshot rows; no zipping/truncation
	// to max(2,3)=3 rows with dimensions interleaved by index.
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5 (2 country ranks + 3 traffic snapshots)", len(rows))
	}

	var rankRows, trafficRows int
	var ranksSeen, traffSeen []string
	for _, row := range rows {
		if row[ColCountryCode] != "" {
			rankRows++
			ranksSeen = append(ranksSeen, row[ColCountryCode])
		}
		if row[ColTrafficRank] != "" {
			trafficRows++
			traffSeen = append(traffSeen, row[ColTrafficRank])
		}
	}
	if rankRows != 2 {
		t.Fatalf("got %d country-rank rows, want 2, codes seen: %v", rankRows, ranksSeen)
	}
	if trafficRows != 3 {
		t.Fatalf("got %d traffic rows, want 3 (one per historical snapshot), ranks seen: %v", trafficRows, traffSeen)
	}
}

func TestRenderCSVJoinsRowsWithNewlines(t *testing.T) {
	out := RenderCSV([][]string{{"a", "b"}, {"c", "d"}})
	if !strings.Contains(out, "a,b") || !strings.Contains(out, "c,d") {
		t.Fatalf("RenderCSV output = %q, missing expected rows", out)
	}
}
