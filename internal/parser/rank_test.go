package parser

import "testing"

const rankFixture = `{
  "UrlInfoResult": {
    "Alexa": {
      "ContentData": {
        "DataUrl": "example.com",
        "SiteData": {
          "Title": "Example",
          "Description": "An example site",
          "OnlineSince": "1 Jan 1999",
          "AdultContent": "no",
          "LinksInCount": "42",
          "LoadTime": {"MedianLoadTime": "1.5", "SpeedPercentile": "87"},
          "Lang": {"Locale": "en", "Encoding": "UTF-8"}
        }
      },
      "TrafficData": {
        "Rank": "1234",
        "RankByCountry": {
          "Country": [
            {"@Code": "US", "Rank": "10"},
            {"@Code": "O", "Rank": "99999"}
          ]
        },
        "ContributingSubdomains": {
          "ContributingSubdomain": [
            {"DataUrl": "www.example.com", "TimeRange": {"Months": "3"}, "Reach": {"Percentage": "50.1%"}, "PageViews": {"Percentage": "60.2%", "PerUser": "1.2%"}},
            {"DataUrl": "OTHER", "TimeRange": {"Months": "1"}, "Reach": {"Percentage": "0.1%"}, "PageViews": {"Percentage": "0.1%", "PerUser": "0.1%"}}
          ]
        }
      },
      "Related": {
        "RelatedLinks": {
          "RelatedLink": {"Url": "http://related.example.com", "Title": "Related"}
        }
      }
    }
  }
}`

func TestParseRankInfo(t *testing.T) {
	info, err := ParseRankInfo([]byte(rankFixture))
	if err != nil {
		t.Fatalf("ParseRankInfo: %v", err)
	}
	if info.Domain != "example.com" {
		t.Errorf("Domain = %q, want example.com", info.Domain)
	}
	if info.GlobalRank != 1234 {
		t.Errorf("GlobalRank = %d, want 1234", info.GlobalRank)
	}
	if info.LinksInCount != 42 {
		t.Errorf("LinksInCount = %d, want 42", info.LinksInCount)
	}
	if info.AdultContent {
		t.Errorf("AdultContent = true, want false")
	}
	if len(info.CountryRanks) != 1 || info.CountryRanks[0].Code != "US" {
		t.Fatalf("CountryRanks = %+v, want single US entry (O code dropped)", info.CountryRanks)
	}
	if len(info.Subdomains) != 1 || info.Subdomains[0].Name != "www.example.com" {
		t.Fatalf("Subdomains = %+v, want single www entry (OTHER dropped)", info.Subdomains)
	}
	if info.Subdomains[0].ReachPct != 50.1 {
		t.Errorf("ReachPct = %v, want 50.1", info.Subdomains[0].ReachPct)
	}
	if info.Subdomains[0].PageViewsPct != 60.2 {
		t.Errorf("PageViewsPct = %v, want 60.2", info.Subdomains[0].PageViewsPct)
	}
	if info.Subdomains[0].PageViewsPerUser != 1.2 {
		t.Errorf("PageViewsPerUser = %v, want 1.2", info.Subdomains[0].PageViewsPerUser)
	}
	if info.Subdomains[0].MonthCount != 3 {
		t.Errorf("MonthCount = %d, want 3", info.Subdomains[0].MonthCount)
	}
	if len(info.Related) != 1 || info.Related[0].URL != "http://related.example.com" {
		t.Fatalf("Related = %+v, want single related link", info.Related)
	}
}

func TestParseRankInfoMissingDomainFails(t *testing.T) {
	_, err := ParseRankInfo([]byte(`{"UrlInfoResult":{"Alexa":{"ContentData":{}}}}`))
	if err == nil {
		t.Fatal("expected error for missing ContentData/DataUrl")
	}
}

func TestRankInfoVertexAndEdgePayloads(t *testing.T) {
	info, err := ParseRankInfo([]byte(rankFixture))
	if err != nil {
		t.Fatalf("ParseRankInfo: %v", err)
	}
	verts := info.VertexPayloads()
	if len(verts) != 3 {
		t.Fatalf("VertexPayloads returned %d vertices, want 3 (domain, link, subdomain)", len(verts))
	}
	edges := info.EdgePayloads()
	if len(edges) != 3 {
		t.Fatalf("EdgePayloads returned %d edges, want 3 (ranked, related, contribute)", len(edges))
	}
}
