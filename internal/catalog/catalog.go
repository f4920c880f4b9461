// Package catalog declaratively wires the pipeline's stages to their input
// and output topics. It is the only place topic names are hard-coded;
// every other component receives topics via configuration.
package catalog

import (
	"context"
	"time"

	"github.com/loum/domain-intel/internal/persist"
	"github.com/loum/domain-intel/internal/stage"
	"github.com/loum/domain-intel/pkg/metrics"
)

// Now is overridable in tests; the report stage calls it to anchor trend
// windows to the current month.
var Now = time.Now

// Topic names are the stable wire contract (spec §6); nothing outside this
// file should spell one out literally.
const (
	TopicGtrDomains     = "gtr-domains"
	TopicSliDomains     = "sli-domains"
	TopicTrafficDomains = "traffic-domains"
	TopicDnsDomains     = "dns-domains"
	TopicAnalystQas     = "analyst-qas"

	TopicAlexaResults          = "alexa-results"
	TopicAlexaFlattened        = "alexa-flattened"
	TopicAlexaSliResults       = "alexa-sli-results"
	TopicAlexaTrafficResults   = "alexa-traffic-results"
	TopicAlexaTrafficFlattened = "alexa-traffic-flattened"
	TopicDnsRaw                = "dns-raw"
	TopicDnsParsed             = "dns-parsed"
	TopicDnsGeoDNSParsed       = "dns-geodns-parsed"
	TopicDomainLabels          = "domain-labels"
	TopicDomainTraversals      = "domain-traversals"
	TopicWideColumnCSV         = "wide-column-csv"
)

// ResolverFunc is the black-box boundary to an out-of-scope external
// collaborator (the rank/SLI/traffic upstream API, the DNS checker, or the
// IP-geolocation service): given a domain-bearing payload it returns the
// raw upstream response bytes, or an error on transport failure.
type ResolverFunc func(ctx context.Context, data []byte) ([]byte, error)

// Deps are every external collaborator and infrastructure dependency the
// catalog's stages need to build their Worker functions.
type Deps struct {
	ResolveRank    ResolverFunc
	ResolveSli     ResolverFunc
	ResolveTraffic ResolverFunc
	ResolveDns     ResolverFunc
	ResolveGeo     ResolverFunc

	Consumer func(topic, group string) stage.Fetcher
	Producer stage.Sender

	Persist   *persist.Worker
	Traverser Traverser

	Timeout      time.Duration
	RetryCount   int
	MaxReadCount int
	Dump         string
	Dry          bool

	// Metrics is optional; when set, every built stage reports its
	// message/retry counters and worker latency through it under the
	// "domain_intel_stage_*" name prefix, labelled by stage name.
	Metrics *metrics.Registry
}

// identity decodes raw bytes as-is; every catalog stage operates on
// []byte in and out, leaving the worker responsible for any structural
// transform.
func identity(data []byte) ([]byte, error) { return data, nil }

// alwaysRetryable treats every worker error as retryable, matching the
// original's transport-failure-focused retry classes for resolver-calling
// stages — the failure domain at these stages is exclusively upstream I/O.
func alwaysRetryable(error) bool { return true }

// neverRetryable is used for stages whose only failure mode is a
// structural parse error, which is always worker-fatal.
func neverRetryable(error) bool { return false }

// persistTopics are the five flat-record topics the persist stage fans in
// from, each run as its own stage instance (own consumer group, own
// Decoder entry) sharing one underlying persist.Worker/graph store.
var persistTopics = []string{
	TopicAlexaFlattened,
	TopicAlexaSliResults,
	TopicAlexaTrafficFlattened,
	TopicDnsGeoDNSParsed,
	TopicAnalystQas,
}

// Build constructs every runnable stage named in spec.md §2's pipeline
// diagram, wired against deps. Stage keys matching persistTopics are
// instances of the terminal persist stage, one per source topic; "traverse"
// and "report" are the read-side stages that turn a persisted domain into
// CSV output.
func Build(deps Deps) map[string]*stage.Stage[[]byte, []byte] {
	common := func(name string, in, out []string, group string, worker func(context.Context, []byte) ([]byte, error), retryable func(error) bool) *stage.Stage[[]byte, []byte] {
		return &stage.Stage[[]byte, []byte]{
			Name:         name,
			InputTopics:  in,
			OutputTopics: out,
			GroupID:      group,
			Decode:       identity,
			Worker:       worker,
			Timeout:      deps.Timeout,
			Retryable:    retryable,
			RetryCount:   deps.RetryCount,
			MaxReadCount: deps.MaxReadCount,
			Dump:         deps.Dump,
			Dry:          deps.Dry,
			Metrics:      deps.Metrics,
			Consumer:     deps.Consumer(in[0], group),
			Producer:     deps.Producer,
		}
	}

	stages := map[string]*stage.Stage[[]byte, []byte]{
		"resolve-rank": common("resolve-rank",
			[]string{TopicGtrDomains}, []string{TopicAlexaResults}, "resolve-rank",
			deps.ResolveRank, alwaysRetryable),

		"flatten-rank": common("flatten-rank",
			[]string{TopicAlexaResults}, []string{TopicAlexaFlattened}, "flatten-rank",
			flattenRank, neverRetryable),

		"resolve-sli": common("resolve-sli",
			[]string{TopicSliDomains}, []string{TopicAlexaSliResults}, "resolve-sli",
			deps.ResolveSli, alwaysRetryable),

		"resolve-traf": common("resolve-traf",
			[]string{TopicTrafficDomains}, []string{TopicAlexaTrafficResults}, "resolve-traf",
			deps.ResolveTraffic, alwaysRetryable),

		"flatten-traf": common("flatten-traf",
			[]string{TopicAlexaTrafficResults}, []string{TopicAlexaTrafficFlattened}, "flatten-traf",
			flattenTraffic, neverRetryable),

		"resolve-dns": common("resolve-dns",
			[]string{TopicDnsDomains}, []string{TopicDnsRaw}, "resolve-dns",
			deps.ResolveDns, alwaysRetryable),

		"parse-dns": common("parse-dns",
			[]string{TopicDnsRaw}, []string{TopicDnsParsed}, "parse-dns",
			identity, neverRetryable),

		"geo-dns": common("geo-dns",
			[]string{TopicDnsParsed}, []string{TopicDnsGeoDNSParsed}, "geo-dns",
			geoDNSWorker(deps.ResolveGeo), alwaysRetryable),

		"traverse": common("traverse",
			[]string{TopicDomainLabels}, []string{TopicDomainTraversals}, "traverse",
			traverseWorker(deps.Traverser), neverRetryable),

		"report": common("report",
			[]string{TopicDomainTraversals}, []string{TopicWideColumnCSV}, "report",
			reportWorker(Now), neverRetryable),
	}

	for _, topic := range persistTopics {
		name := "persist-" + topic
		stages[name] = &stage.Stage[[]byte, []byte]{
			Name:         name,
			InputTopics:  []string{topic},
			OutputTopics: nil,
			GroupID:      "persist",
			Decode:       identity,
			Worker:       persistWorker(deps.Persist, topic),
			Timeout:      deps.Timeout,
			Retryable:    neverRetryable,
			RetryCount:   deps.RetryCount,
			MaxReadCount: deps.MaxReadCount,
			Dump:         deps.Dump,
			Dry:          deps.Dry,
			Metrics:      deps.Metrics,
			IsPersist:    true,
			Consumer:     deps.Consumer(topic, "persist"),
			Producer:     deps.Producer,
		}
	}

	return stages
}
