package reporter

// Column is one position in the frozen wide-CSV column enumeration. Column
// order is part of the contract with downstream ingest: additions must be
// appended as a suffix, never inserted or reordered.
type Column int

const (
	ColDomain Column = iota
	ColTitle
	ColDescription
	ColOnlineSince
	ColMedianLoadTime
	ColSpeedPercentile
	ColAdultContent
	ColLinksInCount
	ColLocale
	ColEncoding
	ColRank
	ColCountryCode
	ColCountryName
	ColCountryRank
	ColURLLinkingIn
	ColDomainLinkingIn
	ColIPv4Addr
	ColIPv4Org
	ColIPv4Isp
	ColIPv4Latitude
	ColIPv4Longitude
	ColIPv4CountryCode
	ColIPv4Country
	ColIPv4ContinentCode
	ColIPv4Continent
	ColTrafficTS
	ColTrafficPageViewsPM
	ColTrafficPageViewsUser
	ColTrafficRank
	ColTrafficReach
	ColMonth1VisitsDowntrend
	ColMonth1VisitsUptrend
	ColMonth3VisitsDowntrend
	ColMonth3VisitsUptrend
	ColMonth1RankDowntrend
	ColMonth1RankUptrend
	ColMonth3RankDowntrend
	ColMonth3RankUptrend
	ColP2PMagnetLinks
	ColLinksToTorrents
	ColLinksToOSP
	ColSearchFeature
	ColDomainDownOrParked
	ColHasRssFeed
	ColRequiresLogin
	ColHasForumOrComments
	ColAnalystQasDate

	numColumns
)

// Names is the frozen header row, in Column order.
var Names = [numColumns]string{
	ColDomain:                "DOMAIN",
	ColTitle:                 "TITLE",
	ColDescription:           "DESCRIPTION",
	ColOnlineSince:           "ONLINE_SINCE",
	ColMedianLoadTime:        "MEDIAN_LOAD_TIME",
	ColSpeedPercentile:       "SPEED_PERCENTILE",
	ColAdultContent:          "ADULT_CONTENT",
	ColLinksInCount:          "LINKS_IN_COUNT",
	ColLocale:                "LOCALE",
	ColEncoding:              "ENCODING",
	ColRank:                  "RANK",
	ColCountryCode:           "COUNTRY_CODE",
	ColCountryName:           "COUNTRY_NAME",
	ColCountryRank:           "COUNTRY_RANK",
	ColURLLinkingIn:          "URL_LINKINGIN",
	ColDomainLinkingIn:       "DOMAIN_LINKINGIN",
	ColIPv4Addr:              "IPV4_ADDR",
	ColIPv4Org:               "IPV4_ORG",
	ColIPv4Isp:               "IPV4_ISP",
	ColIPv4Latitude:          "IPV4_LATITUDE",
	ColIPv4Longitude:         "IPV4_LONGITUDE",
	ColIPv4CountryCode:       "IPV4_COUNTRY_CODE",
	ColIPv4Country:           "IPV4_COUNTRY",
	ColIPv4ContinentCode:     "IPV4_CONTINENT_CODE",
	ColIPv4Continent:         "IPV4_CONTINENT",
	ColTrafficTS:             "TRAFFIC_TS",
	ColTrafficPageViewsPM:    "TRAFFIC_PAGE_VIEWS_PM",
	ColTrafficPageViewsUser:  "TRAFFIC_PAGE_VIEWS_USER",
	ColTrafficRank:           "TRAFFIC_RANK",
	ColTrafficReach:          "TRAFFIC_REACH",
	ColMonth1VisitsDowntrend: "MNTH_1_VISITS_DT",
	ColMonth1VisitsUptrend:   "MNTH_1_VISITS_UT",
	ColMonth3VisitsDowntrend: "MNTH_3_VISITS_DT",
	ColMonth3VisitsUptrend:   "MNTH_3_VISITS_UT",
	ColMonth1RankDowntrend:   "MNTH_1_RANK_DT",
	ColMonth1RankUptrend:     "MNTH_1_RANK_UT",
	ColMonth3RankDowntrend:   "MNTH_3_RANK_DT",
	ColMonth3RankUptrend:     "MNTH_3_RANK_UT",
	ColP2PMagnetLinks:        "P2P_MAGNET_LINKS",
	ColLinksToTorrents:       "LINKS_TO_TORRENTS",
	ColLinksToOSP:            "LINKS_TO_OSP",
	ColSearchFeature:         "SEARCH_FEATURE",
	ColDomainDownOrParked:    "DOMAIN_DOWN_OR_PARKED",
	ColHasRssFeed:            "HAS_RSS_FEED",
	ColRequiresLogin:         "REQUIRES_LOGIN",
	ColHasForumOrComments:    "HAS_FORUM_OR_COMMENTS",
	ColAnalystQasDate:        "ANALYST_QAS_DATE",
}

// Header returns a copy of the frozen header row's column names, in column
// order.
func Header() []string {
	out := make([]string, numColumns)
	copy(out, Names[:])
	return out
}
