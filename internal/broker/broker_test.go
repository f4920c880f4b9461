package broker

import (
	"context"
	"testing"
	"time"
)

func TestFibonacciWaitSequence(t *testing.T) {
	cases := []struct {
		n    int
		want time.Duration
	}{
		{0, 1 * time.Second},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 3 * time.Second},
		{4, 5 * time.Second},
		{5, 8 * time.Second},
	}
	for _, c := range cases {
		got := fibonacciWait(c.n, 13*time.Second)
		if got != c.want {
			t.Errorf("fibonacciWait(%d) = %v, want %v", c.n, got, c.want)
		}
	}
}

func TestFibonacciWaitCapsAtMax(t *testing.T) {
	got := fibonacciWait(10, 13*time.Second)
	if got != 13*time.Second {
		t.Fatalf("expected cap of 13s, got %v", got)
	}
}

func TestSanitizeReplacesUnsafeChars(t *testing.T) {
	got := sanitize("gtr-domains.v1")
	if got != "gtr_domains_v1" {
		t.Fatalf("unexpected sanitize result: %s", got)
	}
}

func TestFakeBrokerAckRemovesMessage(t *testing.T) {
	fb := NewFake()
	fb.Seed("topic", []byte(`{"a":1}`))
	fb.Seed("topic", []byte(`{"a":2}`))

	cons := fb.Consumer("topic")
	msgs, err := cons.Fetch(context.Background(), 10, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}

	if err := msgs[0].Ack(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(fb.Messages("topic")) != 1 {
		t.Fatalf("expected 1 remaining message after ack, got %d", len(fb.Messages("topic")))
	}
}

func TestFakeBrokerUnackedMessageRedelivers(t *testing.T) {
	fb := NewFake()
	fb.Seed("topic", []byte(`{"a":1}`))

	cons := fb.Consumer("topic")
	first, _ := cons.Fetch(context.Background(), 10, time.Second)
	if len(first) != 1 {
		t.Fatal("expected 1 message")
	}

	second, _ := cons.Fetch(context.Background(), 10, time.Second)
	if len(second) != 1 {
		t.Fatal("unacked message should redeliver on next fetch")
	}
}

func TestFakeProducerSendEnqueues(t *testing.T) {
	fb := NewFake()
	p := fb.Producer()
	if err := p.Send(context.Background(), "out", map[string]int{"x": 1}); err != nil {
		t.Fatal(err)
	}
	if len(fb.Messages("out")) != 1 {
		t.Fatal("expected 1 message queued")
	}
}
