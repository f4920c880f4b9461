package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// FakeBroker is an in-memory stand-in for Broker used in tests that exercise
// the stage engine and persist worker without a live NATS server. Topics are
// plain FIFO queues; acked messages are removed, unacked ones stay at the
// head so a crash-and-restart redelivers them — the same at-least-once
// contract the real broker provides.
type FakeBroker struct {
	mu     sync.Mutex
	topics map[string][][]byte
}

// NewFake creates an empty fake broker.
func NewFake() *FakeBroker {
	return &FakeBroker{topics: make(map[string][][]byte)}
}

// Seed injects a raw payload directly onto topic, as if produced externally.
func (f *FakeBroker) Seed(topic string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics[topic] = append(f.topics[topic], data)
}

// Messages returns a copy of everything currently queued on topic, for test
// assertions.
func (f *FakeBroker) Messages(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.topics[topic]))
	copy(out, f.topics[topic])
	return out
}

// FakeProducer implements Sender against a FakeBroker.
type FakeProducer struct{ b *FakeBroker }

// Producer returns a Sender bound to this fake broker.
func (f *FakeBroker) Producer() *FakeProducer { return &FakeProducer{b: f} }

func (p *FakeProducer) Send(_ context.Context, topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.b.Seed(topic, data)
	return nil
}

// SendRaw enqueues an already-marshalled payload verbatim.
func (p *FakeProducer) SendRaw(_ context.Context, topic string, data []byte) error {
	p.b.Seed(topic, data)
	return nil
}

// FakeConsumer implements Fetcher against one topic of a FakeBroker. Messages
// are only removed from the queue on Ack, so an unacked Fetch redelivers on
// the next Fetch call.
type FakeConsumer struct {
	b     *FakeBroker
	topic string
}

// Consumer returns a Fetcher bound to topic on this fake broker.
func (f *FakeBroker) Consumer(topic string) *FakeConsumer {
	return &FakeConsumer{b: f, topic: topic}
}

func (c *FakeConsumer) Fetch(ctx context.Context, max int, _ time.Duration) ([]*Message, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()

	queue := c.b.topics[c.topic]
	n := max
	if n > len(queue) {
		n = len(queue)
	}

	out := make([]*Message, n)
	for i := 0; i < n; i++ {
		data := queue[i]
		out[i] = &Message{
			Topic: c.topic,
			Data:  data,
			Ctx:   ctx,
			ack: func() error {
				c.b.mu.Lock()
				defer c.b.mu.Unlock()
				q := c.b.topics[c.topic]
				for j, d := range q {
					if string(d) == string(data) {
						c.b.topics[c.topic] = append(q[:j:j], q[j+1:]...)
						break
					}
				}
				return nil
			},
		}
	}
	return out, nil
}
