// Package broker adapts NATS JetStream into the durable,
// consumer-group-partitioned log abstraction the stage engine depends on:
// topics back onto streams, group ids back onto durable pull consumers, and
// offset commit back onto explicit message ack.
package broker

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loum/domain-intel/pkg/fn"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
)

// connectRetry governs connection and bootstrap retries: up to 20 attempts
// with exponential backoff, matching domain_intel.utils's
// @backoff.on_exception(backoff.expo, ..., max_tries=20) decorator.
var connectRetry = fn.RetryOpts{
	MaxAttempts: 20,
	InitialWait: 250 * time.Millisecond,
	MaxWait:     30 * time.Second,
	Jitter:      true,
}

// msgHeaderCarrier adapts jetstream message headers for OTel TextMapCarrier
// propagation, the same pattern as the conventional NATS publish/subscribe
// helper this package supersedes.
type msgHeaderCarrier nats.Header

func (c msgHeaderCarrier) Get(key string) string {
	if c == nil {
		return ""
	}
	return nats.Header(c).Get(key)
}

func (c msgHeaderCarrier) Set(key, val string) {
	nats.Header(c).Set(key, val)
}

func (c msgHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// Message is one unit of work read from a topic.
type Message struct {
	Topic string
	Data  []byte
	Ctx   context.Context // trace context extracted from message headers

	ack func() error
}

// Ack commits the message's offset. Must be called after the message and
// everything it produced has been durably handled; never before.
func (m *Message) Ack(ctx context.Context) error {
	return m.ack()
}

// Broker wraps a JetStream context bound to one NATS connection.
type Broker struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect dials bootstrapServers and wraps it with JetStream, retrying with
// exponential backoff up to 20 attempts on transport failure.
func Connect(ctx context.Context, bootstrapServers string) (*Broker, error) {
	result := fn.Retry(ctx, connectRetry, func(ctx context.Context) fn.Result[*Broker] {
		nc, err := nats.Connect(bootstrapServers)
		if err != nil {
			return fn.Err[*Broker](fmt.Errorf("connecting to broker: %w", err))
		}
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return fn.Err[*Broker](fmt.Errorf("opening jetstream context: %w", err))
		}
		return fn.Ok(&Broker{nc: nc, js: js})
	})
	return result.Unwrap()
}

// Close drains and closes the underlying connection.
func (b *Broker) Close() {
	b.nc.Drain()
}

// TopicSpec describes one entry of the "topics" config value:
// name:partitions:replication.
type TopicSpec struct {
	Name        string
	Partitions  int
	Replication int
}

// EnsureStream creates the stream backing a topic if it does not already
// exist. Idempotent: an existing stream with the same name is left alone.
func (b *Broker) EnsureStream(ctx context.Context, spec TopicSpec) error {
	replicas := spec.Replication
	if replicas <= 0 {
		replicas = 1
	}
	_, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName(spec.Name),
		Subjects: []string{spec.Name},
		Replicas: replicas,
	})
	if err != nil {
		return fmt.Errorf("ensuring stream %s: %w", spec.Name, err)
	}
	return nil
}

func streamName(topic string) string {
	return "DI_" + sanitize(topic)
}

func sanitize(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			out[i] = c
		} else {
			out[i] = '_'
		}
	}
	return string(out)
}

// fibonacciWait returns the nth Fibonacci number in seconds, capped at max,
// reproducing domain_intel.utils.info's
// @backoff.on_predicate(backoff.fibo, ..., max_value=13) bootstrap wait.
func fibonacciWait(n int, max time.Duration) time.Duration {
	a, b := 1, 1
	for i := 0; i < n; i++ {
		a, b = b, a+b
	}
	d := time.Duration(a) * time.Second
	if d > max {
		return max
	}
	return d
}

// BootstrapWait blocks until every topic in specs has a backing stream
// visible, retrying with Fibonacci backoff (capped at 13s per step) rather
// than the connection-retry exponential schedule — this is a readiness
// poll, not a transient-failure retry.
func (b *Broker) BootstrapWait(ctx context.Context, specs []TopicSpec) error {
	want := make(map[string]bool, len(specs))
	for _, s := range specs {
		want[streamName(s.Name)] = true
	}

	for attempt := 0; ; attempt++ {
		ready := 0
		for name := range want {
			if _, err := b.js.Stream(ctx, name); err == nil {
				ready++
			}
		}
		if ready == len(want) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(fibonacciWait(attempt, 13*time.Second)):
		}
	}
}

// Sender is the stage engine's outbound dependency. *Producer and the
// in-memory fake producer both satisfy it.
type Sender interface {
	Send(ctx context.Context, topic string, v any) error
	SendRaw(ctx context.Context, topic string, data []byte) error
}

// Fetcher is the stage engine's inbound dependency. *Consumer and the
// in-memory fake consumer both satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context, max int, maxWait time.Duration) ([]*Message, error)
}

// Producer publishes messages to topics with deduplication keyed by content
// hash, so at-least-once redelivery of an already-sent payload is a no-op on
// the broker side.
type Producer struct {
	js jetstream.JetStream
}

// OpenProducer returns a producer bound to this broker's JetStream context.
func (b *Broker) OpenProducer(ctx context.Context) (*Producer, error) {
	return &Producer{js: b.js}, nil
}

// Send publishes v, JSON-encoded, to topic. Trace context from ctx is
// injected into the message headers for downstream extraction.
func (p *Producer) Send(ctx context.Context, topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling payload for %s: %w", topic, err)
	}
	return p.SendRaw(ctx, topic, data)
}

// SendRaw publishes a raw payload to topic, deduplicated by its content hash.
func (p *Producer) SendRaw(ctx context.Context, topic string, data []byte) error {
	msg := &nats.Msg{Subject: topic, Data: data, Header: nats.Header{}}
	otel.GetTextMapPropagator().Inject(ctx, msgHeaderCarrier(msg.Header))
	msg.Header.Set(jetstream.MsgIDHeader, contentHash(data))

	_, err := p.js.PublishMsg(ctx, msg)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func contentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Consumer is a durable, explicit-ack pull consumer backing one group_id
// on a single topic. Multiple Consumer instances sharing the same
// group id load-balance message delivery the way a Kafka consumer group
// partitions a topic across its members.
type Consumer struct {
	topic string
	cons  jetstream.Consumer
}

// OpenConsumer binds (creating if necessary) a durable pull consumer named
// group on topic, with an ack-wait window sized to timeout.
func (b *Broker) OpenConsumer(ctx context.Context, topic, group string, timeout time.Duration) (*Consumer, error) {
	result := fn.Retry(ctx, connectRetry, func(ctx context.Context) fn.Result[jetstream.Consumer] {
		cons, err := b.js.CreateOrUpdateConsumer(ctx, streamName(topic), jetstream.ConsumerConfig{
			Durable:       group,
			AckPolicy:     jetstream.AckExplicitPolicy,
			DeliverPolicy: jetstream.DeliverAllPolicy,
			AckWait:       timeout,
			FilterSubject: topic,
		})
		if err != nil {
			return fn.Err[jetstream.Consumer](fmt.Errorf("binding consumer %s/%s: %w", topic, group, err))
		}
		return fn.Ok(cons)
	})
	cons, err := result.Unwrap()
	if err != nil {
		return nil, err
	}
	return &Consumer{topic: topic, cons: cons}, nil
}

// Fetch polls for up to max messages, waiting at most maxWait for the first
// one. Returns an empty slice, not an error, on a timeout with no messages —
// that is the normal "nothing to do" case for a poll loop.
func (c *Consumer) Fetch(ctx context.Context, max int, maxWait time.Duration) ([]*Message, error) {
	batch, err := c.cons.Fetch(max, jetstream.FetchMaxWait(maxWait))
	if err != nil {
		return nil, fmt.Errorf("fetching from %s: %w", c.topic, err)
	}

	var out []*Message
	for m := range batch.Messages() {
		hdr := msgHeaderCarrier(m.Headers())
		mctx := otel.GetTextMapPropagator().Extract(ctx, hdr)
		out = append(out, &Message{Topic: c.topic, Data: m.Data(), Ctx: mctx, ack: m.Ack})
	}
	if err := batch.Error(); err != nil && len(out) == 0 {
		return nil, fmt.Errorf("draining batch from %s: %w", c.topic, err)
	}
	return out, nil
}
