package reporter

import (
	"strconv"
	"strings"
	"time"
)

func pageViewsMetric(d TrafficDay) string { return d.PageViewsPerM }
func rankMetric(d TrafficDay) string      { return d.Rank }

// trends computes the eight frozen trend columns for the given traffic
// history, relative to now.
func (r *Reporter) trends(days []TrafficDay, now time.Time) map[string]string {
	fmtDelta := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return map[string]string{
		"MNTH_1_VISITS_DT": fmtDelta(TrendDelta(days, now, 1, pageViewsMetric, true)),
		"MNTH_1_VISITS_UT": fmtDelta(TrendDelta(days, now, 1, pageViewsMetric, false)),
		"MNTH_3_VISITS_DT": fmtDelta(TrendDelta(days, now, 3, pageViewsMetric, true)),
		"MNTH_3_VISITS_UT": fmtDelta(TrendDelta(days, now, 3, pageViewsMetric, false)),
		"MNTH_1_RANK_DT":   fmtDelta(TrendDelta(days, now, 1, rankMetric, false)),
		"MNTH_1_RANK_UT":   fmtDelta(TrendDelta(days, now, 1, rankMetric, true)),
		"MNTH_3_RANK_DT":   fmtDelta(TrendDelta(days, now, 3, rankMetric, false)),
		"MNTH_3_RANK_UT":   fmtDelta(TrendDelta(days, now, 3, rankMetric, true)),
	}
}

// DumpWideColumnCSV renders this traversal as zero or more CSV lines (no
// header) following the frozen Column order. Every line shares the same
// base domain/trend/QAS columns; the ancillary dimensions (country ranks,
// inbound URLs, geo-resolved IPv4 addresses, traffic-history snapshots)
// are concatenated rather than cross-joined or zipped by index, one line
// per ancillary record across all four dimensions — a domain with N
// country ranks, M inbound URLs, K geo addresses, and P traffic
// snapshots yields N+M+K+P lines, each carrying only its own dimension's
// fields alongside the shared base columns. A domain with no ancillary
// data in any dimension yields exactly one line of base columns alone.
func (r *Reporter) DumpWideColumnCSV(now time.Time) [][]string {
	domain := r.Domain()
	ranks := r.CountryRanks()
	urls := r.SitesLinkingIn()
	ips := r.GeoDNS()
	days := r.TrafficHistory()
	qas := r.AnalystQAS()
	trend := r.trends(days, now)

	base := func() []string {
		row := make([]string, numColumns)
		row[ColDomain] = domain["DOMAIN"]
		row[ColTitle] = domain["TITLE"]
		row[ColDescription] = domain["DESCRIPTION"]
		row[ColOnlineSince] = domain["ONLINE_SINCE"]
		row[ColMedianLoadTime] = domain["MEDIAN_LOAD_TIME"]
		row[ColSpeedPercentile] = domain["SPEED_PERCENTILE"]
		row[ColAdultContent] = domain["ADULT_CONTENT"]
		row[ColLinksInCount] = domain["LINKS_IN_COUNT"]
		row[ColLocale] = domain["LOCALE"]
		row[ColEncoding] = domain["ENCODING"]
		row[ColRank] = domain["RANK"]

		row[ColMonth1VisitsDowntrend] = trend["MNTH_1_VISITS_DT"]
		row[ColMonth1VisitsUptrend] = trend["MNTH_1_VISITS_UT"]
		row[ColMonth3VisitsDowntrend] = trend["MNTH_3_VISITS_DT"]
		row[ColMonth3VisitsUptrend] = trend["MNTH_3_VISITS_UT"]
		row[ColMonth1RankDowntrend] = trend["MNTH_1_RANK_DT"]
		row[ColMonth1RankUptrend] = trend["MNTH_1_RANK_UT"]
		row[ColMonth3RankDowntrend] = trend["MNTH_3_RANK_DT"]
		row[ColMonth3RankUptrend] = trend["MNTH_3_RANK_UT"]

		row[ColP2PMagnetLinks] = qas["p2p_magnet_links"]
		row[ColLinksToTorrents] = qas["links_to_torrents"]
		row[ColLinksToOSP] = qas["links_to_osp"]
		row[ColSearchFeature] = qas["search_feature"]
		row[ColDomainDownOrParked] = qas["domain_down_or_parked"]
		row[ColHasRssFeed] = qas["has_rss_feed"]
		row[ColRequiresLogin] = qas["requires_login"]
		row[ColHasForumOrComments] = qas["has_forum_or_comments"]
		row[ColAnalystQasDate] = qas["qas_date"]
		return row
	}

	var rows [][]string

	for _, rank := range ranks {
		row := base()
		row[ColCountryCode] = rank.Code
		row[ColCountryName] = rank.Name
		row[ColCountryRank] = rank.Rank
		rows = append(rows, row)
	}

	for _, u := range urls {
		row := base()
		row[ColURLLinkingIn] = u.URL
		row[ColDomainLinkingIn] = u.DomainLinkingIn
		rows = append(rows, row)
	}

	for _, ip := range ips {
		row := base()
		row[ColIPv4Addr] = ip.Addr
		row[ColIPv4Org] = ip.Org
		row[ColIPv4Isp] = ip.Isp
		row[ColIPv4Latitude] = ip.Latitude
		row[ColIPv4Longitude] = ip.Longitude
		row[ColIPv4CountryCode] = ip.CountryCode
		row[ColIPv4Country] = ip.Country
		row[ColIPv4ContinentCode] = ip.ContinentCode
		row[ColIPv4Continent] = ip.Continent
		rows = append(rows, row)
	}

	for _, day := range days {
		row := base()
		row[ColTrafficTS] = strconv.FormatInt(day.TS, 10)
		row[ColTrafficPageViewsPM] = day.PageViewsPerM
		row[ColTrafficPageViewsUser] = day.PageViewsPerUsr
		row[ColTrafficRank] = day.Rank
		row[ColTrafficReach] = day.ReachPerM
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		rows = append(rows, base())
	}

	return rows
}

// RenderCSV joins rows (as produced by DumpWideColumnCSV) into lines,
// without a header. Fields are comma-joined directly rather than through a
// general CSV writer: title and description are the only fields that can
// contain commas, and DumpWideColumnCSV already quotes them per spec.
func RenderCSV(rows [][]string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = strings.Join(row, ",")
	}
	return strings.Join(lines, "\n")
}
