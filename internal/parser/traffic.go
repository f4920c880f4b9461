package parser

import "encoding/json"

// TrafficDay is one daily entry of a monthly traffic-history series.
// Numeric fields are kept as the upstream's raw string representation;
// a missing field is the empty string, never "0" — callers that need a
// number parse it themselves and treat "" as absent.
type TrafficDay struct {
	Date                string
	PageViewsPerMillion string
	PageViewsPerUser    string
	Rank                string
	ReachPerMillion     string
}

// TrafficHistory is the flat record produced by parsing one monthly
// traffic-history response for a domain.
type TrafficHistory struct {
	Domain string
	Start  string
	Days   []TrafficDay
}

// ParseTrafficHistory parses a raw TrafficHistoryResult/Alexa document.
func ParseTrafficHistory(domain string, data []byte) (*TrafficHistory, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, parseErr("traffic", "decoding json: %w", err)
	}

	root, _ := path(doc, "TrafficHistoryResult", "Alexa", "TrafficHistory").(map[string]any)
	if root == nil {
		return nil, parseErr("traffic", "missing TrafficHistoryResult/Alexa/TrafficHistory")
	}

	th := &TrafficHistory{Domain: domain, Start: str(root["Start"])}
	historical, _ := root["HistoricalData"].(map[string]any)
	for _, raw := range asList(historical["Data"]) {
		d, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		pageViews, _ := d["PageViews"].(map[string]any)
		reach, _ := d["Reach"].(map[string]any)
		th.Days = append(th.Days, TrafficDay{
			Date:                str(d["Date"]),
			PageViewsPerMillion: str(pageViews["PerMillion"]),
			PageViewsPerUser:    str(pageViews["PerUser"]),
			Rank:                str(d["Rank"]),
			ReachPerMillion:     str(reach["PerMillion"]),
		})
	}
	return th, nil
}

// VertexPayloads projects the record onto its single traffic vertex, keyed
// by domain:start, carrying the full daily series as an opaque payload.
func (t *TrafficHistory) VertexPayloads() []Vertex {
	return []Vertex{{
		Collection: "traffic",
		Key:        t.Domain + ":" + t.Start,
		Props:      map[string]any{"days": t.Days},
	}}
}

// EdgePayloads projects the record onto its single visit edge from the
// traffic snapshot into the domain it describes.
func (t *TrafficHistory) EdgePayloads() []Edge {
	key := t.Domain + ":" + t.Start
	return []Edge{{
		Name: "visit",
		Key:  key,
		From: ref("traffic", key),
		To:   ref("domain", t.Domain),
	}}
}
