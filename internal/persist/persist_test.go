package persist

import (
	"context"
	"errors"
	"testing"

	"github.com/loum/domain-intel/internal/graphstore"
	"github.com/loum/domain-intel/internal/parser"
)

func rankDecode(data []byte) (Projector, error) {
	info, err := parser.ParseRankInfo(data)
	if err != nil {
		return nil, err
	}
	return info, nil
}

const rankFixture = `{
  "UrlInfoResult": {
    "Alexa": {
      "ContentData": {
        "DataUrl": "example.com",
        "SiteData": {"Title": "Example"}
      },
      "TrafficData": {
        "Rank": "1234",
        "RankByCountry": {"Country": [{"@Code": "US", "Rank": "10"}]}
      }
    }
  }
}`

func TestHandleMessageInsertsVertexAndEdgeProjections(t *testing.T) {
	store := graphstore.NewFakeStore()
	w := &Worker{
		Store:   store,
		Decoder: map[string]Decode{"alexa-flattened": rankDecode},
	}

	metrics, err := w.HandleMessage(context.Background(), "alexa-flattened", []byte(rankFixture))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if metrics.VertexCount != 1 {
		t.Errorf("VertexCount = %d, want 1 (domain only)", metrics.VertexCount)
	}
	if metrics.EdgeCount != 1 {
		t.Errorf("EdgeCount = %d, want 1 (ranked)", metrics.EdgeCount)
	}
	if store.VertexCount("Domain") != 1 {
		t.Errorf("store domain vertex count = %d, want 1", store.VertexCount("Domain"))
	}
	if store.EdgeCount("RANKED") != 1 {
		t.Errorf("store ranked edge count = %d, want 1", store.EdgeCount("RANKED"))
	}
}

func TestHandleMessageDuplicateInsertDoesNotDoubleCount(t *testing.T) {
	store := graphstore.NewFakeStore()
	w := &Worker{
		Store:   store,
		Decoder: map[string]Decode{"alexa-flattened": rankDecode},
	}

	if _, err := w.HandleMessage(context.Background(), "alexa-flattened", []byte(rankFixture)); err != nil {
		t.Fatalf("first HandleMessage: %v", err)
	}
	metrics, err := w.HandleMessage(context.Background(), "alexa-flattened", []byte(rankFixture))
	if err != nil {
		t.Fatalf("second HandleMessage: %v", err)
	}
	if metrics.EdgeCount != 0 {
		t.Errorf("re-running on the same input must not recount the edge, got EdgeCount=%d", metrics.EdgeCount)
	}
}

type failingStore struct{ *graphstore.FakeStore }

func (f *failingStore) InsertEdge(ctx context.Context, edgeType, key, fromColl, fromKey, toColl, toKey string, props map[string]any, dry bool) (bool, error) {
	return false, errors.New("store unavailable")
}

func TestHandleMessageAbortsOnStoreFailure(t *testing.T) {
	store := &failingStore{FakeStore: graphstore.NewFakeStore()}
	w := &Worker{
		Store:   store,
		Decoder: map[string]Decode{"alexa-flattened": rankDecode},
	}

	_, err := w.HandleMessage(context.Background(), "alexa-flattened", []byte(rankFixture))
	if err == nil {
		t.Fatal("expected HandleMessage to propagate the store failure")
	}
}

func TestHandleMessageUnknownTopicErrors(t *testing.T) {
	w := &Worker{Store: graphstore.NewFakeStore(), Decoder: map[string]Decode{}}
	if _, err := w.HandleMessage(context.Background(), "unregistered", nil); err == nil {
		t.Fatal("expected error for a topic with no registered decoder")
	}
}
