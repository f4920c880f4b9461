package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/loum/domain-intel/internal/broker"
	"github.com/loum/domain-intel/internal/graphstore"
	"github.com/loum/domain-intel/internal/parser"
	"github.com/loum/domain-intel/internal/persist"
	"github.com/loum/domain-intel/internal/stage"
)

func identityResolver(_ context.Context, data []byte) ([]byte, error) { return data, nil }

func testDeps(fb *broker.FakeBroker, store *graphstore.FakeStore) Deps {
	return Deps{
		ResolveRank:    identityResolver,
		ResolveSli:     identityResolver,
		ResolveTraffic: identityResolver,
		ResolveDns:     identityResolver,
		ResolveGeo:     identityResolver,
		Consumer: func(topic, _ string) stage.Fetcher { return fb.Consumer(topic) },
		Producer: fb.Producer(),
		Persist: &persist.Worker{
			Store:   store,
			Decoder: PersistDecoders(),
		},
		Traverser:    store,
		MaxReadCount: 1,
	}
}

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
        "Rank": "1234"
      }
    }
  }
}`

func TestBuildWiresResolveRankThroughFlattenToPersist(t *testing.T) {
	fb := broker.NewFake()
	store := graphstore.NewFakeStore()
	deps := testDeps(fb, store)
	stages := Build(deps)

	fb.Seed(TopicGtrDomains, []byte(rankFixture))
	if _, err := stages["resolve-rank"].Run(context.Background()); err != nil {
		t.Fatalf("resolve-rank: %v", err)
	}
	if _, err := stages["flatten-rank"].Run(context.Background()); err != nil {
		t.Fatalf("flatten-rank: %v", err)
	}
	flattened := fb.Messages(TopicAlexaFlattened)
	if len(flattened) != 1 {
		t.Fatalf("got %d flattened messages, want 1", len(flattened))
	}

	persistStage := stages["persist-"+TopicAlexaFlattened]
	if !persistStage.IsPersist {
		t.Fatalf("persist stage IsPersist = false, want true")
	}
	if len(persistStage.OutputTopics) != 0 {
		t.Fatalf("persist stage OutputTopics = %v, want none", persistStage.OutputTopics)
	}
	if _, err := persistStage.Run(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if store.VertexCount("Domain") != 1 {
		t.Errorf("VertexCount(Domain) = %d, want 1", store.VertexCount("Domain"))
	}
}

func TestBuildTraverseAndReportProduceCSV(t *testing.T) {
	fb := broker.NewFake()
	store := graphstore.NewFakeStore()
	ctx := context.Background()

	// seed a domain vertex directly, as if an earlier persist stage had run
	if _, err := store.InsertVertex(ctx, "Domain", "example.com", map[string]any{"rank": int64(5)}, false); err != nil {
		t.Fatalf("seeding vertex: %v", err)
	}

	deps := testDeps(fb, store)
	stages := Build(deps)

	domainMsg, _ := json.Marshal("example.com")
	fb.Seed(TopicDomainLabels, domainMsg)
	if _, err := stages["traverse"].Run(ctx); err != nil {
		t.Fatalf("traverse: %v", err)
	}
	travMsgs := fb.Messages(TopicDomainTraversals)
	if len(travMsgs) != 1 {
		t.Fatalf("got %d traversal messages, want 1", len(travMsgs))
	}

	if _, err := stages["report"].Run(ctx); err != nil {
		t.Fatalf("report: %v", err)
	}
	csvMsgs := fb.Messages(TopicWideColumnCSV)
	if len(csvMsgs) != 1 {
		t.Fatalf("got %d csv messages, want 1", len(csvMsgs))
	}
	if len(csvMsgs[0]) == 0 {
		t.Fatalf("csv payload is empty")
	}
}

func TestEmitAnalystQASPublishesOneMessagePerRow(t *testing.T) {
	fb := broker.NewFake()
	rec := &parser.AnalystQAS{Domain: "example.com", Date: "2017-08-01", Flags: map[string]string{"has_rss_feed": "Y"}}
	data, _ := json.Marshal(rec)
	// ParseAnalystQAS needs a real workbook; exercise EmitAnalystQAS's publish
	// path directly against a pre-built record set instead of a workbook
	// fixture, since the parsing itself is already covered by qas_test.go.
	n, err := publishRecords(context.Background(), fb.Producer(), []*parser.AnalystQAS{rec})
	if err != nil {
		t.Fatalf("publishRecords: %v", err)
	}
	if n != 1 {
		t.Fatalf("published %d records, want 1", n)
	}
	msgs := fb.Messages(TopicAnalystQas)
	if len(msgs) != 1 || string(msgs[0]) != string(data) {
		t.Fatalf("messages = %v, want one matching marshalled record", msgs)
	}
}
