package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/loum/domain-intel/internal/broker"
	"github.com/loum/domain-intel/internal/catalog"
	"github.com/loum/domain-intel/internal/config"
	"github.com/loum/domain-intel/internal/graphstore"
	"github.com/loum/domain-intel/internal/persist"
	"github.com/loum/domain-intel/internal/resolve"
	"github.com/loum/domain-intel/internal/stage"
	"github.com/loum/domain-intel/pkg/metrics"
)

// app bundles every live collaborator a subcommand needs, torn down in
// reverse dependency order by close().
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	met    *metrics.Registry
	nats   *broker.Broker
	driver neo4j.DriverWithContext
	store  *graphstore.Store
}

// dial connects to NATS and Neo4j per cfg and wraps them in the adapters
// every subcommand shares. Callers must defer app.close().
func dial(ctx context.Context, cfg *config.Config, log *slog.Logger, met *metrics.Registry) (*app, error) {
	nb, err := broker.Connect(ctx, cfg.BootstrapServers)
	if err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}

	target := fmt.Sprintf("neo4j://%s:%d", cfg.Graph.Host, cfg.Graph.Port)
	driver, err := neo4j.NewDriverWithContext(target, neo4j.BasicAuth(cfg.Graph.Username, cfg.Graph.Password, ""))
	if err != nil {
		nb.Close()
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	store := graphstore.New(driver, log)
	if err := store.Initialise(ctx); err != nil {
		driver.Close(ctx)
		nb.Close()
		return nil, fmt.Errorf("verifying neo4j connectivity: %w", err)
	}

	return &app{cfg: cfg, log: log, met: met, nats: nb, driver: driver, store: store}, nil
}

func (a *app) close(ctx context.Context) {
	if a.driver != nil {
		a.driver.Close(ctx)
	}
	if a.nats != nil {
		a.nats.Close()
	}
}

// topicSpecs parses the config's "name:partitions:replication,..." value
// into the broker's bootstrap-readiness contract.
func topicSpecs(topics string) ([]broker.TopicSpec, error) {
	var specs []broker.TopicSpec
	for _, entry := range strings.Split(topics, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed topic spec %q, want name:partitions:replication", entry)
		}
		partitions, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("topic %q: %w", parts[0], err)
		}
		replication, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("topic %q: %w", parts[0], err)
		}
		specs = append(specs, broker.TopicSpec{Name: parts[0], Partitions: partitions, Replication: replication})
	}
	return specs, nil
}

// consumerFactory adapts the broker to catalog.Deps.Consumer's
// (topic, group) -> stage.Fetcher shape. Every call opens (binding or
// creating) the durable pull consumer for that (topic, group) pair;
// nothing is cached between calls.
func (a *app) consumerFactory(timeout time.Duration) func(topic, group string) stage.Fetcher {
	return func(topic, group string) stage.Fetcher {
		cons, err := a.nats.OpenConsumer(context.Background(), topic, group, timeout)
		if err != nil {
			a.log.Error("opening consumer failed", "topic", topic, "group", group, "error", err)
			return nil
		}
		return cons
	}
}

// resolvers builds the five black-box resolver functions catalog.Deps
// needs, each a thin HTTP client hitting the endpoint named by flags.
func resolvers(cfg *config.Config, endpoints resolverEndpoints) catalog.Deps {
	client := &http.Client{Timeout: 30 * time.Second}

	rank := resolve.New(client, endpoints.Rank)
	sli := resolve.New(client, endpoints.Sli)
	traffic := resolve.New(client, endpoints.Traffic)
	dns := resolve.New(client, endpoints.Dns)
	geo := resolve.New(client, endpoints.Geo, geoOpts(cfg)...)

	return catalog.Deps{
		ResolveRank:    rank.Resolve,
		ResolveSli:     sli.Resolve,
		ResolveTraffic: traffic.Resolve,
		ResolveDns:     dns.Resolve,
		ResolveGeo:     geo.Resolve,
	}
}

func geoOpts(cfg *config.Config) []resolve.Option {
	if cfg.GeoDNS.Compass.Username == "" {
		return nil
	}
	return []resolve.Option{resolve.WithBasicAuth(cfg.GeoDNS.Compass.Username, cfg.GeoDNS.Compass.Password)}
}

// resolverEndpoints names the upstream URL for each black-box resolver.
// spec.md §1 places the wire format of these calls out of scope; only the
// endpoint to POST a domain-bearing payload to is configurable here.
type resolverEndpoints struct {
	Rank    string
	Sli     string
	Traffic string
	Dns     string
	Geo     string
}

func persistWorker(store *graphstore.Store, decoders map[string]persist.Decode, dry bool) *persist.Worker {
	return &persist.Worker{Store: store, Decoder: decoders, Dry: dry}
}
