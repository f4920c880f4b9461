// Package reporter walks a one-hop graph traversal around a seed domain and
// emits a fixed-schema wide CSV with derived traffic trend statistics.
package reporter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/loum/domain-intel/internal/graphstore"
)

// CountryRank is one ranked edge's projection.
type CountryRank struct {
	Code string
	Name string
	Rank string
}

// InboundURL is one links_into edge's projection.
type InboundURL struct {
	URL             string
	DomainLinkingIn string
}

// IPv4Geo is one ipv4_resolves edge's projection.
type IPv4Geo struct {
	Addr          string
	Org           string
	Isp           string
	Latitude      string
	Longitude     string
	CountryCode   string
	Country       string
	ContinentCode string
	Continent     string
}

// TrafficDay is one flattened day of a traffic snapshot's monthly series.
type TrafficDay struct {
	TS              int64 // POSIX seconds, UTC, parsed from the day's Date
	PageViewsPerM   string
	PageViewsPerUsr string
	Rank            string
	ReachPerM       string
}

// Reporter walks one traversal result for a seed domain.
type Reporter struct {
	trav *graphstore.Traversal
}

// New wraps a traversal result for reporting.
func New(trav *graphstore.Traversal) *Reporter {
	return &Reporter{trav: trav}
}

func (r *Reporter) vertexByID(id string) *graphstore.Vertex {
	if r.trav.Seed.ID == id {
		return &r.trav.Seed
	}
	for _, v := range r.trav.Vertices {
		if v.ID == id {
			return &v
		}
	}
	return nil
}

// Domain returns the seed vertex's own attributes, quoting title and
// description for CSV embedding (doubled internal quotes, wrapped in
// quotes); a missing attribute becomes the empty string.
func (r *Reporter) Domain() map[string]string {
	p := r.trav.Seed.Props
	return map[string]string{
		"DOMAIN":           r.trav.Seed.ID,
		"TITLE":            csvQuote(str(p["title"])),
		"DESCRIPTION":      csvQuote(str(p["description"])),
		"ONLINE_SINCE":     str(p["online_since"]),
		"MEDIAN_LOAD_TIME": numStr(p["median_load_time"]),
		"SPEED_PERCENTILE": numStr(p["speed_percentile"]),
		"ADULT_CONTENT":    boolStr(p["adult_content"]),
		"LINKS_IN_COUNT":   numStr(p["links_in_count"]),
		"LOCALE":           str(p["locale"]),
		"ENCODING":         str(p["encoding"]),
		"RANK":             numStr(p["rank"]),
	}
}

// CountryRanks extracts a CountryRank per ranked edge out of the seed.
func (r *Reporter) CountryRanks() []CountryRank {
	var out []CountryRank
	for _, e := range r.trav.Edges {
		if e.Type != "RANKED" || e.From != r.trav.Seed.ID {
			continue
		}
		country := r.vertexByID(e.To)
		name := ""
		if country != nil {
			name = str(country.Props["name"])
		}
		out = append(out, CountryRank{Code: e.To, Name: name, Rank: numStr(e.Props["rank"])})
	}
	return out
}

// SitesLinkingIn extracts an InboundURL per links_into edge pointing at the
// seed: the linked URL from the edge's label and the linking domain from the
// source-side vertex attribute domain_linkingin.
func (r *Reporter) SitesLinkingIn() []InboundURL {
	var out []InboundURL
	for _, e := range r.trav.Edges {
		if e.Type != "LINKS_INTO" || e.To != r.trav.Seed.ID {
			continue
		}
		urlVertex := r.vertexByID(e.From)
		domainLinkingIn := ""
		if urlVertex != nil {
			domainLinkingIn = str(urlVertex.Props["domain_linkingin"])
		}
		out = append(out, InboundURL{URL: str(e.Props["url"]), DomainLinkingIn: domainLinkingIn})
	}
	return out
}

// GeoDNS extracts an IPv4Geo per ipv4_resolves edge out of the seed.
func (r *Reporter) GeoDNS() []IPv4Geo {
	var out []IPv4Geo
	for _, e := range r.trav.Edges {
		if e.Type != "IPV4_RESOLVES" || e.From != r.trav.Seed.ID {
			continue
		}
		ip := r.vertexByID(e.To)
		if ip == nil {
			continue
		}
		p := ip.Props
		out = append(out, IPv4Geo{
			Addr:          e.To,
			Org:           str(p["organisation"]),
			Isp:           str(p["isp"]),
			Latitude:      numStr(p["latitude"]),
			Longitude:     numStr(p["longitude"]),
			CountryCode:   str(p["country_code"]),
			Country:       str(p["country_name"]),
			ContinentCode: str(p["continent_code"]),
			Continent:     str(p["continent_name"]),
		})
	}
	return out
}

// TrafficHistory extracts, for each visit edge walking into the seed, the
// traffic vertex's nested monthly series flattened to a list of TrafficDay
// rows. Missing numeric cells become empty strings; timestamps are POSIX
// seconds parsed from the day's "Date" string (YYYYMMDD) in UTC.
func (r *Reporter) TrafficHistory() []TrafficDay {
	var out []TrafficDay
	for _, e := range r.trav.Edges {
		if e.Type != "VISIT" || e.To != r.trav.Seed.ID {
			continue
		}
		traffic := r.vertexByID(e.From)
		if traffic == nil {
			continue
		}
		daysRaw, _ := traffic.Props["days"].([]any)
		for _, raw := range daysRaw {
			d, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, TrafficDay{
				TS:              parseDateUTC(str(d["Date"])),
				PageViewsPerM:   str(d["PageViewsPerMillion"]),
				PageViewsPerUsr: str(d["PageViewsPerUser"]),
				Rank:            str(d["Rank"]),
				ReachPerM:       str(d["ReachPerMillion"]),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS < out[j].TS })
	return out
}

// AnalystQAS extracts the marked edge's analyst_qas vertex, normalizing
// each "Y"/"N" flag to lowercase "true"/"false" at report time.
func (r *Reporter) AnalystQAS() map[string]string {
	out := make(map[string]string)
	for _, e := range r.trav.Edges {
		if e.Type != "MARKED" || e.From != r.trav.Seed.ID {
			continue
		}
		qas := r.vertexByID(e.To)
		if qas == nil {
			continue
		}
		for k, v := range qas.Props {
			out[k] = yesNoToBool(str(v))
		}
	}
	return out
}

func yesNoToBool(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "Y":
		return "true"
	case "N":
		return "false"
	default:
		return v
	}
}

func parseDateUTC(s string) int64 {
	if s == "" {
		return 0
	}
	layouts := []string{"20060102", "2006-01-02"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Unix()
		}
	}
	return 0
}

func csvQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func numStr(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func boolStr(v any) string {
	if b, ok := v.(bool); ok {
		if b {
			return "true"
		}
		return "false"
	}
	return str(v)
}
