package parser

import (
	"encoding/json"
	"log/slog"
)

// CountryDNS is one country's DNS resolution result for a domain.
type CountryDNS struct {
	Domain string
	A      []string
	AAAA   []string
}

// GeoIPInfo is the geolocation data attached to one resolved IP address.
type GeoIPInfo struct {
	OrgName       string
	IspName       string
	Latitude      float64
	Longitude     float64
	CountryCode   string
	CountryName   string
	ContinentCode string
	ContinentName string
}

// GeoDNS is the flat record produced by merging a per-country DNS lookup
// with a per-IP geolocation lookup for one domain.
type GeoDNS struct {
	Domain    string
	ByCountry map[string]CountryDNS
	IPv4Geo   map[string]GeoIPInfo
	IPv6Geo   map[string]GeoIPInfo
}

// ParseGeoDNS merges dnsData (a per-country map of A/AAAA record lists) with
// geoData (a per-IP geolocation map) for domain. The merge tolerates:
//   - a per-country node missing entirely (absent from the map),
//   - A or AAAA absent on a node (empty list substituted, warning logged),
//   - a node result that is explicitly JSON null (treated as empty, not an
//     error — the same CompassServerEmptyResponse fallback the upstream
//     collaborator's "no routes" response triggers).
func ParseGeoDNS(domain string, dnsData, geoData []byte) (*GeoDNS, error) {
	var dnsDoc map[string]any
	if err := json.Unmarshal(dnsData, &dnsDoc); err != nil {
		return nil, parseErr("geodns", "decoding dns json: %w", err)
	}

	gd := &GeoDNS{
		Domain:    domain,
		ByCountry: make(map[string]CountryDNS),
		IPv4Geo:   make(map[string]GeoIPInfo),
		IPv6Geo:   make(map[string]GeoIPInfo),
	}

	for code, raw := range dnsDoc {
		if raw == nil {
			slog.Warn("geodns: null node result", "domain", domain, "country", code)
			gd.ByCountry[code] = CountryDNS{Domain: domain}
			continue
		}
		node, ok := raw.(map[string]any)
		if !ok {
			slog.Warn("geodns: unexpected node shape", "domain", domain, "country", code)
			continue
		}
		rec := CountryDNS{Domain: domain}
		if a, ok := node["A"]; ok {
			rec.A = toStrings(asList(a))
		} else {
			slog.Warn("geodns: missing A records", "domain", domain, "country", code)
		}
		if aaaa, ok := node["AAAA"]; ok {
			rec.AAAA = toStrings(asList(aaaa))
		} else {
			slog.Warn("geodns: missing AAAA records", "domain", domain, "country", code)
		}
		gd.ByCountry[code] = rec
	}

	if len(geoData) == 0 {
		return gd, nil
	}

	var geoDoc map[string]any
	if err := json.Unmarshal(geoData, &geoDoc); err != nil {
		return nil, parseErr("geodns", "decoding geo json: %w", err)
	}
	// An explicit {"Error":"no routes"} response from the geolocation
	// collaborator means the lookup legitimately found nothing; this is
	// not a parse failure, it yields empty geo maps.
	if errVal, _ := geoDoc["Error"].(string); errVal == "no routes" {
		return gd, nil
	}

	for ip, raw := range geoDoc {
		node, ok := raw.(map[string]any)
		if !ok || node == nil {
			continue
		}
		info := geoIPInfoFrom(node)
		if isIPv6(ip) {
			gd.IPv6Geo[ip] = info
		} else {
			gd.IPv4Geo[ip] = info
		}
	}

	return gd, nil
}

func toStrings(vals []any) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		out = append(out, str(v))
	}
	return out
}

func isIPv6(ip string) bool {
	for _, c := range ip {
		if c == ':' {
			return true
		}
	}
	return false
}

func geoIPInfoFrom(node map[string]any) GeoIPInfo {
	org, _ := node["Organisation"].(map[string]any)
	isp, _ := node["Isp"].(map[string]any)
	geo, _ := node["Geospatial"].(map[string]any)
	country, _ := node["Country"].(map[string]any)
	continent, _ := node["Continent"].(map[string]any)

	info := GeoIPInfo{
		OrgName:       str(org["Name"]),
		IspName:       str(isp["Name"]),
		CountryCode:   str(country["Iso3166Code2"]),
		CountryName:   str(country["Name"]),
		ContinentCode: str(continent["Code"]),
		ContinentName: str(continent["Name"]),
	}
	if lat, ok := geo["Latitude"].(float64); ok {
		info.Latitude = lat
	}
	if lon, ok := geo["Longitude"].(float64); ok {
		info.Longitude = lon
	}
	return info
}

// VertexPayloads projects the record onto its vertex inserts: a geodns
// vertex holding the opaque per-country payload, and one ipv4/ipv6 vertex
// per resolved address carrying its geolocation attributes.
func (g *GeoDNS) VertexPayloads() []Vertex {
	out := []Vertex{{
		Collection: "geodns",
		Key:        g.Domain,
		Props:      map[string]any{"by_country": g.ByCountry},
	}}
	for ip, info := range g.IPv4Geo {
		out = append(out, Vertex{Collection: "ipv4", Key: ip, Props: geoIPProps(info)})
	}
	for ip, info := range g.IPv6Geo {
		out = append(out, Vertex{Collection: "ipv6", Key: ip, Props: geoIPProps(info)})
	}
	return out
}

func geoIPProps(info GeoIPInfo) map[string]any {
	return map[string]any{
		"organisation":   info.OrgName,
		"isp":            info.IspName,
		"latitude":       info.Latitude,
		"longitude":      info.Longitude,
		"country_code":   info.CountryCode,
		"country_name":   info.CountryName,
		"continent_code": info.ContinentCode,
		"continent_name": info.ContinentName,
	}
}

// EdgePayloads projects the record onto its edge inserts: one
// ipv4_resolves/ipv6_resolves edge per resolved address.
func (g *GeoDNS) EdgePayloads() []Edge {
	var out []Edge
	for ip := range g.IPv4Geo {
		out = append(out, Edge{
			Name: "ipv4_resolves",
			Key:  g.Domain + ":" + ip,
			From: ref("domain", g.Domain),
			To:   ref("ipv4", ip),
		})
	}
	for ip := range g.IPv6Geo {
		out = append(out, Edge{
			Name: "ipv6_resolves",
			Key:  g.Domain + ":" + ip,
			From: ref("domain", g.Domain),
			To:   ref("ipv6", ip),
		})
	}
	return out
}
