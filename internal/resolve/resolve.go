// Package resolve implements the HTTP boundary to the external
// collaborators spec.md §1 treats as black-box resolvers: the two upstream
// Alexa-style intelligence APIs, the DNS-check service, and the
// IP-geolocation service. This package owns no parsing logic — it returns
// whatever bytes the upstream responds with, for internal/parser to
// interpret.
package resolve

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/loum/domain-intel/internal/catalog"
	"github.com/loum/domain-intel/pkg/fn"
	"github.com/loum/domain-intel/pkg/resilience"
)

// HTTP is a resolver bound to one upstream endpoint, guarded by a circuit
// breaker (so a sustained upstream outage fails fast instead of piling up
// blocked workers) and a token-bucket rate limiter (so a burst of
// domain-labels doesn't trip the upstream's own throttling).
type HTTP struct {
	client  *http.Client
	baseURL string
	auth    func(*http.Request)

	breaker *resilience.Breaker
	limiter *resilience.Limiter
	retry   fn.RetryOpts
}

// Option configures an HTTP resolver.
type Option func(*HTTP)

// WithBasicAuth attaches HTTP basic auth to every outbound request, for
// upstreams like the GeoDNS compass service that gate on it.
func WithBasicAuth(username, password string) Option {
	return func(r *HTTP) {
		r.auth = func(req *http.Request) { req.SetBasicAuth(username, password) }
	}
}

// WithRateLimit overrides the default token bucket.
func WithRateLimit(opts resilience.LimiterOpts) Option {
	return func(r *HTTP) { r.limiter = resilience.NewLimiter(opts) }
}

// WithBreaker overrides the default circuit breaker.
func WithBreaker(opts resilience.BreakerOpts) Option {
	return func(r *HTTP) { r.breaker = resilience.NewBreaker(opts) }
}

// New builds an HTTP resolver that POSTs the domain-bearing payload it is
// given to baseURL and returns the upstream response body verbatim.
func New(client *http.Client, baseURL string, opts ...Option) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	r := &HTTP{
		client:  client,
		baseURL: baseURL,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		limiter: resilience.NewLimiter(resilience.LimiterOpts{Rate: 5, Burst: 10}),
		retry:   fn.DefaultRetry,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve satisfies catalog.ResolverFunc: it is the injected worker for
// every resolve-* stage.
func (r *HTTP) Resolve(ctx context.Context, data []byte) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", r.baseURL, err)
	}

	result := fn.Retry(ctx, r.retry, func(ctx context.Context) fn.Result[[]byte] {
		var body []byte
		err := r.breaker.Call(ctx, func(ctx context.Context) error {
			b, callErr := r.do(ctx, data)
			if callErr != nil {
				return callErr
			}
			body = b
			return nil
		})
		if err != nil {
			return fn.Err[[]byte](err)
		}
		return fn.Ok(body)
	})
	return result.Unwrap()
}

func (r *HTTP) do(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.auth != nil {
		r.auth(req)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", r.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", r.baseURL, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s responded %d: %s", r.baseURL, resp.StatusCode, body)
	}
	return body, nil
}

// compile-time check that *HTTP satisfies the catalog's resolver shape.
var _ catalog.ResolverFunc = (*HTTP)(nil).Resolve
