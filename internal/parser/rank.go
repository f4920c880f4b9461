package parser

import (
	"encoding/json"
	"strconv"
)

// CountryRank is one domain-specific rank entry for a country.
type CountryRank struct {
	Code string
	Rank int
}

// RelatedLink is one outbound link related to a domain.
type RelatedLink struct {
	URL   string
	Title string
}

// ContributingSubdomain is one sub-host contributing traffic to a domain.
type ContributingSubdomain struct {
	Name             string
	MonthCount       int
	ReachPct         float64
	PageViewsPct     float64
	PageViewsPerUser float64
}

// RankInfo is the flat record produced by parsing an AWIS UrlInfo response.
type RankInfo struct {
	Domain          string
	Title           string
	Description     string
	OnlineSince     string
	AdultContent    bool
	LinksInCount    int
	Locale          string
	Encoding        string
	MedianLoadTime  float64
	SpeedPercentile float64
	GlobalRank      int64

	CountryRanks []CountryRank
	Related      []RelatedLink
	Subdomains   []ContributingSubdomain
}

// ParseRankInfo parses a raw AWIS UrlInfoResult/Alexa document. Related
// links live under Alexa.Related.RelatedLinks.RelatedLink, and each
// contributing subdomain's Months/Reach/PageViews figures live under their
// own TimeRange/Reach/PageViews sub-objects rather than as flat scalars —
// both nestings come from the upstream AWIS response shape, not a
// simplification. Country-rank entries whose code is "O" (a catch-all
// "other" bucket the upstream API emits) are dropped, as are contributing
// subdomains whose DataUrl is "OTHER". Missing optional fields are simply
// absent, never an error.
func ParseRankInfo(data []byte) (*RankInfo, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, parseErr("rank", "decoding json: %w", err)
	}

	alexa, _ := path(doc, "UrlInfoResult", "Alexa").(map[string]any)
	if alexa == nil {
		return nil, parseErr("rank", "missing UrlInfoResult/Alexa")
	}

	contentData, _ := alexa["ContentData"].(map[string]any)
	domain := str(path(contentData, "DataUrl"))
	if domain == "" {
		return nil, parseErr("rank", "missing ContentData/DataUrl")
	}

	siteData, _ := contentData["SiteData"].(map[string]any)
	loadTime, _ := siteData["LoadTime"].(map[string]any)
	medianLoadTime, _ := strconv.ParseFloat(str(loadTime["MedianLoadTime"]), 64)
	speedPercentile, _ := strconv.ParseFloat(str(loadTime["SpeedPercentile"]), 64)
	lang, _ := siteData["Lang"].(map[string]any)

	info := &RankInfo{
		Domain:          domain,
		Title:           str(siteData["Title"]),
		Description:     str(siteData["Description"]),
		OnlineSince:     str(siteData["OnlineSince"]),
		AdultContent:    str(siteData["AdultContent"]) == "yes",
		Locale:          str(lang["Locale"]),
		Encoding:        str(lang["Encoding"]),
		MedianLoadTime:  medianLoadTime,
		SpeedPercentile: speedPercentile,
	}
	if n, err := strconv.Atoi(str(siteData["LinksInCount"])); err == nil {
		info.LinksInCount = n
	}

	trafficData, _ := alexa["TrafficData"].(map[string]any)
	if r, err := strconv.ParseInt(str(trafficData["Rank"]), 10, 64); err == nil {
		info.GlobalRank = r
	}

	rankByCountry, _ := trafficData["RankByCountry"].(map[string]any)
	for _, raw := range asList(rankByCountry["Country"]) {
		c, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		code := attr(c, "Code")
		if code == "" {
			code = str(c["Code"])
		}
		if code == "O" {
			continue
		}
		rank, _ := strconv.Atoi(str(c["Rank"]))
		info.CountryRanks = append(info.CountryRanks, CountryRank{Code: code, Rank: rank})
	}

	relatedLinks, _ := path(alexa, "Related", "RelatedLinks").(map[string]any)
	for _, raw := range asList(relatedLinks["RelatedLink"]) {
		l, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		info.Related = append(info.Related, RelatedLink{URL: str(l["Url"]), Title: str(l["Title"])})
	}

	for _, raw := range asList(trafficData["ContributingSubdomains"]) {
		subdomains, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for _, sraw := range asList(subdomains["ContributingSubdomain"]) {
			s, ok := sraw.(map[string]any)
			if !ok {
				continue
			}
			if str(s["DataUrl"]) == "OTHER" {
				continue
			}
			months, _ := strconv.Atoi(str(path(s, "TimeRange", "Months")))
			info.Subdomains = append(info.Subdomains, ContributingSubdomain{
				Name:             str(s["DataUrl"]),
				MonthCount:       months,
				ReachPct:         pctToFloat(str(path(s, "Reach", "Percentage"))),
				PageViewsPct:     pctToFloat(str(path(s, "PageViews", "Percentage"))),
				PageViewsPerUser: pctToFloat(str(path(s, "PageViews", "PerUser"))),
			})
		}
	}

	return info, nil
}

// VertexPayloads projects the record onto its vertex inserts: the domain
// itself, one link vertex per related link, and one subdomain vertex per
// contributing subdomain.
func (r *RankInfo) VertexPayloads() []Vertex {
	out := []Vertex{{
		Collection: "domain",
		Key:        r.Domain,
		Props: map[string]any{
			"title":            r.Title,
			"description":      r.Description,
			"online_since":     r.OnlineSince,
			"median_load_time": r.MedianLoadTime,
			"speed_percentile": r.SpeedPercentile,
			"adult_content":    r.AdultContent,
			"links_in_count":   r.LinksInCount,
			"locale":           r.Locale,
			"encoding":         r.Encoding,
			"rank":             r.GlobalRank,
		},
	}}
	for _, l := range r.Related {
		out = append(out, Vertex{
			Collection: "link",
			Key:        linkKey16(l.URL),
			Props:      map[string]any{"url": l.URL, "title": l.Title},
		})
	}
	for _, s := range r.Subdomains {
		out = append(out, Vertex{
			Collection: "subdomain",
			Key:        s.Name,
			Props: map[string]any{
				"month_count":         s.MonthCount,
				"reach_pct":           s.ReachPct,
				"page_views_pct":      s.PageViewsPct,
				"page_views_per_user": s.PageViewsPerUser,
			},
		})
	}
	return out
}

// EdgePayloads projects the record onto its edge inserts: ranked edges to
// each ranked country, related edges to each outbound link, and contribute
// edges from each subdomain back to the domain.
func (r *RankInfo) EdgePayloads() []Edge {
	var out []Edge
	for _, c := range r.CountryRanks {
		out = append(out, Edge{
			Name:  "ranked",
			Key:   r.Domain + ":" + c.Code,
			From:  ref("domain", r.Domain),
			To:    ref("country", c.Code),
			Props: map[string]any{"rank": c.Rank},
		})
	}
	for _, l := range r.Related {
		key := linkKey16(l.URL)
		out = append(out, Edge{
			Name:  "related",
			Key:   r.Domain + ":" + key,
			From:  ref("domain", r.Domain),
			To:    ref("link", key),
			Props: map[string]any{"url": l.URL},
		})
	}
	for _, s := range r.Subdomains {
		out = append(out, Edge{
			Name: "contribute",
			Key:  s.Name + ":" + r.Domain,
			From: ref("subdomain", s.Name),
			To:   ref("domain", r.Domain),
		})
	}
	return out
}
