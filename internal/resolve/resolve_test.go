package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loum/domain-intel/pkg/fn"
	"github.com/loum/domain-intel/pkg/resilience"
)

func TestHTTPResolveReturnsUpstreamBodyVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rank":"1234"}`))
	}))
	defer srv.Close()

	r := New(nil, srv.URL, WithRateLimit(resilience.LimiterOpts{Rate: 100, Burst: 100}))
	out, err := r.Resolve(context.Background(), []byte(`{"domain":"example.com"}`))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if string(out) != `{"rank":"1234"}` {
		t.Errorf("body = %q", out)
	}
}

func TestHTTPResolveSendsBasicAuth(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	r := New(nil, srv.URL,
		WithBasicAuth("alice", "secret"),
		WithRateLimit(resilience.LimiterOpts{Rate: 100, Burst: 100}))
	if _, err := r.Resolve(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if gotUser != "alice" || gotPass != "secret" {
		t.Errorf("basic auth = %q/%q, want alice/secret", gotUser, gotPass)
	}
}

func TestHTTPResolveOpensBreakerAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := New(nil, srv.URL,
		WithRateLimit(resilience.LimiterOpts{Rate: 100, Burst: 100}),
		WithBreaker(resilience.BreakerOpts{FailThreshold: 1, Timeout: 0, HalfOpenMax: 1}))
	r.retry = fn.RetryOpts{MaxAttempts: 1}

	if _, err := r.Resolve(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected error from failing upstream")
	}
	if r.breaker.State() != resilience.StateOpen {
		t.Errorf("breaker state = %v, want open", r.breaker.State())
	}
}
