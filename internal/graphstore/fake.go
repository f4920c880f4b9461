package graphstore

import (
	"context"
	"sync"
)

// Inserter is the persist worker's dependency on the graph store. *Store and
// *FakeStore both satisfy it.
type Inserter interface {
	InsertVertex(ctx context.Context, label, id string, props map[string]any, dry bool) (bool, error)
	InsertEdge(ctx context.Context, edgeType, id, fromLabel, fromID, toLabel, toID string, props map[string]any, dry bool) (bool, error)
}

// FakeStore is an in-memory Inserter + Traverse implementation for tests.
type FakeStore struct {
	mu       sync.Mutex
	vertices map[string]Vertex // keyed by label+"/"+id
	edges    map[string]Edge   // keyed by type+"/"+id
}

// NewFakeStore creates an empty fake graph store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		vertices: make(map[string]Vertex),
		edges:    make(map[string]Edge),
	}
}

func vertexKey(label, id string) string { return label + "/" + id }
func edgeKey(typ, id string) string     { return typ + "/" + id }

func (f *FakeStore) InsertVertex(_ context.Context, label, id string, props map[string]any, dry bool) (bool, error) {
	if dry {
		return true, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := vertexKey(label, id)
	if _, exists := f.vertices[key]; exists {
		return false, nil
	}
	f.vertices[key] = Vertex{Label: label, ID: id, Props: props}
	return true, nil
}

func (f *FakeStore) InsertEdge(_ context.Context, edgeType, id, fromLabel, fromID, toLabel, toID string, props map[string]any, dry bool) (bool, error) {
	if dry {
		return true, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := edgeKey(edgeType, id)
	if _, exists := f.edges[key]; exists {
		return false, nil
	}
	f.edges[key] = Edge{Type: edgeType, From: fromID, To: toID, Props: props}
	return true, nil
}

// VertexCount returns how many vertices exist under label, for assertions.
func (f *FakeStore) VertexCount(label string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.vertices {
		if v.Label == label {
			n++
		}
	}
	return n
}

// EdgeCount returns how many edges exist of the given type, for assertions.
func (f *FakeStore) EdgeCount(edgeType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.edges {
		if e.Type == edgeType {
			n++
		}
	}
	return n
}

// Traverse returns the one-hop neighborhood of seedID across all stored
// vertices/edges, emulating the any-direction Cypher traversal.
func (f *FakeStore) Traverse(_ context.Context, seedID string) (*Traversal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var seed Vertex
	found := false
	for _, v := range f.vertices {
		if v.ID == seedID {
			seed = v
			found = true
			break
		}
	}
	if !found {
		return nil, ErrTraverseFailed
	}

	trav := &Traversal{Seed: seed}
	for _, e := range f.edges {
		if e.From != seedID && e.To != seedID {
			continue
		}
		trav.Edges = append(trav.Edges, e)
		otherID := e.To
		if e.To == seedID {
			otherID = e.From
		}
		for _, v := range f.vertices {
			if v.ID == otherID {
				trav.Vertices = append(trav.Vertices, v)
				break
			}
		}
	}
	return trav, nil
}
