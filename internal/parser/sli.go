package parser

import "encoding/json"

// Site is one inbound-linking page as reported by the SitesLinkingIn
// upstream API.
type Site struct {
	Title string
	URL   string
}

// SitesLinkingIn is the flat record produced by parsing a SitesLinkingIn
// response for one domain.
type SitesLinkingIn struct {
	Domain string
	Sites  []Site
}

// ParseSitesLinkingIn parses a raw SitesLinkingInResult/Alexa document. A
// single-site response that isn't wrapped in an array is accepted the same
// as a multi-site one. An empty or structurally absent site list is not an
// error — it simply yields zero sites, matching the original's tolerance
// for upstream responses that legitimately have nothing to report.
func ParseSitesLinkingIn(domain string, data []byte) (*SitesLinkingIn, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, parseErr("sli", "decoding json: %w", err)
	}

	sli := &SitesLinkingIn{Domain: domain}
	sites := path(doc, "SitesLinkingInResult", "Alexa", "SitesLinkingIn", "Site")
	for _, raw := range asList(sites) {
		s, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		sli.Sites = append(sli.Sites, Site{Title: str(s["Title"]), URL: str(s["Url"])})
	}
	return sli, nil
}

// UniqueTitles dedups sites by title, preserving first-seen order. This is
// a by-title dedup, not by URL: two sites sharing a title but differing
// URLs collapse into the first one seen.
func UniqueTitles(sites []Site) []Site {
	seen := make(map[string]bool, len(sites))
	out := make([]Site, 0, len(sites))
	for _, s := range sites {
		if seen[s.Title] {
			continue
		}
		seen[s.Title] = true
		out = append(out, s)
	}
	return out
}

// VertexPayloads projects the record onto its vertex inserts: one url
// vertex per distinct-by-title inbound-linking page.
func (s *SitesLinkingIn) VertexPayloads() []Vertex {
	var out []Vertex
	for _, site := range UniqueTitles(s.Sites) {
		out = append(out, Vertex{
			Collection: "url",
			Key:        urlKey32(site.URL),
			Props:      map[string]any{"domain_linkingin": s.Domain},
		})
	}
	return out
}

// EdgePayloads projects the record onto its edge inserts: one links_into
// edge per distinct-by-title inbound-linking page, from the url to the
// domain it links into.
func (s *SitesLinkingIn) EdgePayloads() []Edge {
	var out []Edge
	for _, site := range UniqueTitles(s.Sites) {
		key := urlKey32(site.URL)
		out = append(out, Edge{
			Name:  "links_into",
			Key:   s.Domain + ":" + key,
			From:  ref("url", key),
			To:    ref("domain", s.Domain),
			Props: map[string]any{"url": site.URL},
		})
	}
	return out
}
