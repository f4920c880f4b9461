package graphstore

import (
	"context"
	"errors"
	"testing"
)

func TestIsConstraintViolation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("Neo.ClientError.Schema.ConstraintValidationFailed: node already exists"), true},
		{errors.New("node with label Domain and id x already exists"), true},
		{errors.New("connection refused"), false},
	}
	for _, c := range cases {
		if got := isConstraintViolation(c.err); got != c.want {
			t.Errorf("isConstraintViolation(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestFirstLabel(t *testing.T) {
	if got := firstLabel(nil); got != "" {
		t.Fatalf("expected empty string for nil labels, got %q", got)
	}
	if got := firstLabel([]any{"Domain", "Other"}); got != "Domain" {
		t.Fatalf("expected Domain, got %q", got)
	}
}

func TestFakeStoreInsertVertexIdempotent(t *testing.T) {
	fs := NewFakeStore()
	ctx := context.Background()

	created, err := fs.InsertVertex(ctx, "Domain", "example.com", map[string]any{"title": "Example"}, false)
	if err != nil || !created {
		t.Fatalf("expected first insert to create: created=%v err=%v", created, err)
	}

	created, err = fs.InsertVertex(ctx, "Domain", "example.com", map[string]any{"title": "Example"}, false)
	if err != nil || created {
		t.Fatalf("expected duplicate insert to be a no-op: created=%v err=%v", created, err)
	}

	if fs.VertexCount("Domain") != 1 {
		t.Fatalf("expected 1 vertex, got %d", fs.VertexCount("Domain"))
	}
}

func TestFakeStoreTraverseMissingSeed(t *testing.T) {
	fs := NewFakeStore()
	_, err := fs.Traverse(context.Background(), "missing.com")
	if !errors.Is(err, ErrTraverseFailed) {
		t.Fatalf("expected ErrTraverseFailed, got %v", err)
	}
}

func TestFakeStoreTraverseOneHop(t *testing.T) {
	fs := NewFakeStore()
	ctx := context.Background()

	fs.InsertVertex(ctx, "Domain", "example.com", nil, false)
	fs.InsertVertex(ctx, "Country", "US", nil, false)
	fs.InsertEdge(ctx, "RANKED", "example.com:US", "Domain", "example.com", "Country", "US", map[string]any{"rank": 5}, false)

	trav, err := fs.Traverse(ctx, "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if trav.Seed.ID != "example.com" {
		t.Fatalf("unexpected seed: %+v", trav.Seed)
	}
	if len(trav.Edges) != 1 || trav.Edges[0].Type != "RANKED" {
		t.Fatalf("expected 1 RANKED edge, got %+v", trav.Edges)
	}
	if len(trav.Vertices) != 1 || trav.Vertices[0].ID != "US" {
		t.Fatalf("expected neighbor US, got %+v", trav.Vertices)
	}
}
