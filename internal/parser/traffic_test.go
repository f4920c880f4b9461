package parser

import "testing"

const trafficFixture = `{
  "TrafficHistoryResult": {
    "Alexa": {
      "TrafficHistory": {
        "Start": "2024-01-01",
        "HistoricalData": {
          "Data": [
            {"Date": "20240101", "Rank": "1000",
             "PageViews": {"PerMillion": "12.3", "PerUser": "1.1"},
             "Reach": {"PerMillion": "45.6"}}
          ]
        }
      }
    }
  }
}`

func TestParseTrafficHistory(t *testing.T) {
	th, err := ParseTrafficHistory("example.com", []byte(trafficFixture))
	if err != nil {
		t.Fatalf("ParseTrafficHistory: %v", err)
	}
	if th.Start != "2024-01-01" {
		t.Errorf("Start = %q, want 2024-01-01", th.Start)
	}
	if len(th.Days) != 1 {
		t.Fatalf("got %d days, want 1", len(th.Days))
	}
	day := th.Days[0]
	if day.Rank != "1000" || day.PageViewsPerMillion != "12.3" || day.ReachPerMillion != "45.6" {
		t.Errorf("day = %+v, unexpected field values", day)
	}
}

func TestParseTrafficHistoryMissingRootFails(t *testing.T) {
	_, err := ParseTrafficHistory("example.com", []byte(`{}`))
	if err == nil {
		t.Fatal("expected error for missing TrafficHistoryResult/Alexa/TrafficHistory")
	}
}

func TestTrafficHistoryVertexAndEdgePayloads(t *testing.T) {
	th, err := ParseTrafficHistory("example.com", []byte(trafficFixture))
	if err != nil {
		t.Fatalf("ParseTrafficHistory: %v", err)
	}
	verts := th.VertexPayloads()
	if len(verts) != 1 || verts[0].Key != "example.com:2024-01-01" {
		t.Fatalf("VertexPayloads = %+v, want single vertex keyed domain:start", verts)
	}
	edges := th.EdgePayloads()
	if len(edges) != 1 || edges[0].To != "domain/example.com" {
		t.Fatalf("EdgePayloads = %+v, want single visit edge into the domain", edges)
	}
}
