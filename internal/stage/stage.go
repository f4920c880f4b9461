// Package stage implements the generic poll -> worker(timeout, retry) ->
// publish -> commit loop every pipeline hop is built from.
package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loum/domain-intel/internal/broker"
	"github.com/loum/domain-intel/pkg/metrics"
)

func jsonMarshal(v any) ([]byte, error) { return json.Marshal(v) }

// ErrWorkerTimedOut is returned when a worker does not complete within the
// stage's configured per-message timeout.
var ErrWorkerTimedOut = errors.New("stage: worker timed out")

// Fetcher is the consumer side of a stage's broker dependency.
type Fetcher interface {
	Fetch(ctx context.Context, max int, maxWait time.Duration) ([]*broker.Message, error)
}

// Sender is the producer side of a stage's broker dependency. A worker
// result is already marshalled to bytes before Send is called, so Sender
// transmits the payload verbatim rather than re-encoding it.
type Sender interface {
	SendRaw(ctx context.Context, topic string, data []byte) error
}

// Marshaler is implemented by worker results that need custom encoding
// before publish; results that don't implement it (and are not already
// []byte) are JSON-encoded by the stage before being handed to SendRaw.
type Marshaler interface {
	Marshal() ([]byte, error)
}

// Metrics accumulates the counters a stage instance reports on exit.
type Metrics struct {
	MessagesReceived     int64
	MessagesProcessed    int64
	MessagesSent         int64
	ResponsesMarshalled  int64
	RetryableExceptions  int64
	PerTopicSent         map[string]int64
}

// Add sums another Metrics' counters into m, merging per-topic counts.
func (m *Metrics) Add(o Metrics) {
	m.MessagesReceived += o.MessagesReceived
	m.MessagesProcessed += o.MessagesProcessed
	m.MessagesSent += o.MessagesSent
	m.ResponsesMarshalled += o.ResponsesMarshalled
	m.RetryableExceptions += o.RetryableExceptions
	if len(o.PerTopicSent) == 0 {
		return
	}
	if m.PerTopicSent == nil {
		m.PerTopicSent = make(map[string]int64)
	}
	for k, v := range o.PerTopicSent {
		m.PerTopicSent[k] += v
	}
}

func (m *Metrics) incTopic(topic string) {
	if m.PerTopicSent == nil {
		m.PerTopicSent = make(map[string]int64)
	}
	m.PerTopicSent[topic]++
}

// Stage is one hop in the pipeline: it consumes from zero-or-more input
// topics, runs Worker on each message, and publishes the result to
// zero-or-more output topics.
type Stage[In, Out any] struct {
	Name         string
	InputTopics  []string
	OutputTopics []string
	GroupID      string

	Decode func([]byte) (In, error)
	Worker func(context.Context, In) (Out, error)

	Timeout      time.Duration // 0 = disabled
	Retryable    func(error) bool
	RetryCount   int // default 10
	MaxReadCount int // 0 = unbounded
	PollMax      int // messages per Fetch call, default 10
	PollWait     time.Duration // default 5s

	Dump string // dump directory, "" = disabled
	Dry  bool

	// IsPersist marks a terminal, pure-consumer stage (inputs with no
	// outputs) as intentional rather than a wiring mistake.
	IsPersist bool

	Consumer Fetcher
	Producer Sender

	// Metrics is optional; nil disables instrumentation (every unit test
	// builds stages without it).
	Metrics *metrics.Registry

	log  *slog.Logger
	reg  *stageMetrics
}

// stageMetrics are the Prometheus vectors one Stage instance reports
// through, all labelled by stage name so a single /metrics scrape covers
// every stage in the catalog.
type stageMetrics struct {
	received  *metrics.Counter
	processed *metrics.Counter
	sent      *metrics.Counter
	retries   *metrics.Counter
	active    *metrics.Gauge
	workerDur *metrics.Histogram
}

func newStageMetrics(reg *metrics.Registry, stageName string) *stageMetrics {
	if reg == nil {
		return nil
	}
	return &stageMetrics{
		received:  reg.Counter(metrics.WithLabels("domain_intel_stage_messages_received_total", "stage", stageName), "Messages fetched by this stage"),
		processed: reg.Counter(metrics.WithLabels("domain_intel_stage_messages_processed_total", "stage", stageName), "Messages whose worker completed without error"),
		sent:      reg.Counter(metrics.WithLabels("domain_intel_stage_messages_sent_total", "stage", stageName), "Messages published to an output topic"),
		retries:   reg.Counter(metrics.WithLabels("domain_intel_stage_retryable_errors_total", "stage", stageName), "Retryable worker errors encountered"),
		active:    reg.Gauge(metrics.WithLabels("domain_intel_stage_active_workers", "stage", stageName), "Messages currently inside the worker call"),
		workerDur: reg.Histogram(metrics.WithLabels("domain_intel_stage_worker_duration_seconds", "stage", stageName), "Per-message worker duration", nil),
	}
}

// Validate enforces the stage's structural preconditions. Inputs require a
// group id and a worker. Outputs-only stages are source stages and are
// exempt from needing a group id. A pure-consumer stage (inputs without
// outputs) is rejected unless isPersist is true, since a non-persist stage
// with nowhere to send its results is almost certainly a wiring mistake.
func (s *Stage[In, Out]) Validate(isPersist bool) error {
	if len(s.InputTopics) > 0 {
		if s.GroupID == "" {
			return fmt.Errorf("stage %s: input topics require a group id", s.Name)
		}
		if s.Worker == nil {
			return fmt.Errorf("stage %s: input topics require a worker", s.Name)
		}
	}
	if len(s.InputTopics) > 0 && len(s.OutputTopics) == 0 && !isPersist {
		return fmt.Errorf("stage %s: pure-consumer stage must be a persist stage", s.Name)
	}
	if s.RetryCount == 0 {
		s.RetryCount = 10
	}
	if s.PollMax == 0 {
		s.PollMax = 10
	}
	if s.PollWait == 0 {
		s.PollWait = 5 * time.Second
	}
	return nil
}

// isRetryable reports whether err should trigger a retry: either the
// caller's declared retryable predicate, or ErrWorkerTimedOut, which is
// always implicitly retryable.
func (s *Stage[In, Out]) isRetryable(err error) bool {
	if errors.Is(err, ErrWorkerTimedOut) {
		return true
	}
	return s.Retryable != nil && s.Retryable(err)
}

// runWorkerWithTimeout executes the worker with a bounded wall-clock
// timeout, the Go equivalent of the original's SIGALRM-based interrupt: a
// goroutine races the worker call against the context deadline.
func (s *Stage[In, Out]) runWorkerWithTimeout(ctx context.Context, in In) (Out, error) {
	if s.Timeout <= 0 {
		return s.Worker(ctx, in)
	}
	tctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	type result struct {
		out Out
		err error
	}
	ch := make(chan result, 1)
	go func() {
		out, err := s.Worker(tctx, in)
		ch <- result{out, err}
	}()

	select {
	case r := <-ch:
		return r.out, r.err
	case <-tctx.Done():
		var zero Out
		return zero, ErrWorkerTimedOut
	}
}

// Run drives the poll -> worker(timeout, retry) -> publish -> commit loop
// until MaxReadCount is reached or ctx is cancelled; an empty poll is simply
// retried. It returns the accumulated Metrics and the first error
// encountered, if any — a worker-fatal error halts the stage without
// committing the offending message's offset.
func (s *Stage[In, Out]) Run(ctx context.Context) (Metrics, error) {
	if err := s.Validate(s.IsPersist); err != nil {
		return Metrics{}, err
	}
	log := s.log
	if log == nil {
		log = slog.Default()
	}

	groupID := s.GroupID
	if s.Dry {
		groupID = uuid.NewString()
	}
	log = log.With("stage", s.Name, "group_id", groupID)
	s.reg = newStageMetrics(s.Metrics, s.Name)

	var metrics Metrics
	var dumpN int

	for {
		if s.MaxReadCount > 0 && metrics.MessagesReceived >= int64(s.MaxReadCount) {
			return metrics, nil
		}

		msgs, err := s.Consumer.Fetch(ctx, s.PollMax, s.PollWait)
		if err != nil {
			return metrics, fmt.Errorf("stage %s: fetch: %w", s.Name, err)
		}
		if len(msgs) == 0 {
			if ctx.Err() != nil {
				return metrics, nil
			}
			// nothing ready this poll; try again until MaxReadCount or
			// cancellation, matching a long-running consumer's behavior.
			continue
		}

		for _, msg := range msgs {
			metrics.MessagesReceived++
			if s.reg != nil {
				s.reg.received.Inc()
			}

			if s.Dump != "" {
				dumpN++
				if err := dumpPayload(filepath.Join(s.Dump, "consume"), dumpN, msg.Data); err != nil {
					log.Warn("dump consume payload failed", "err", err)
				}
			}

			in, err := s.Decode(msg.Data)
			if err != nil {
				return metrics, fmt.Errorf("stage %s: decode: %w", s.Name, err)
			}

			workerStart := time.Now()
			if s.reg != nil {
				s.reg.active.Inc()
			}
			out, err := s.runWithRetry(ctx, in, &metrics, log)
			if s.reg != nil {
				s.reg.active.Dec()
				s.reg.workerDur.Since(workerStart)
			}
			if err != nil {
				return metrics, fmt.Errorf("stage %s: worker: %w", s.Name, err)
			}
			metrics.MessagesProcessed++
			if s.reg != nil {
				s.reg.processed.Inc()
			}

			payload, err := marshalResult(out)
			if err != nil {
				return metrics, fmt.Errorf("stage %s: marshal: %w", s.Name, err)
			}
			metrics.ResponsesMarshalled++

			if s.Dry {
				if s.Dump != "" {
					if err := dumpPayload(filepath.Join(s.Dump, "publish"), dumpN, payload); err != nil {
						log.Warn("dump publish payload failed", "err", err)
					}
				}
			} else {
				for _, topic := range s.OutputTopics {
					if err := s.Producer.SendRaw(ctx, topic, payload); err != nil {
						return metrics, fmt.Errorf("stage %s: send %s: %w", s.Name, topic, err)
					}
					metrics.MessagesSent++
					metrics.incTopic(topic)
					if s.reg != nil {
						s.reg.sent.Inc()
					}
				}
			}

			if err := msg.Ack(ctx); err != nil {
				return metrics, fmt.Errorf("stage %s: commit: %w", s.Name, err)
			}
			if s.MaxReadCount > 0 && metrics.MessagesReceived >= int64(s.MaxReadCount) {
				return metrics, nil
			}
		}
	}
}

// runWithRetry executes the worker, retrying on a retryable error (or
// timeout) with linear backoff equal to the retry index (0, 1, 2, ...),
// matching the original's `time.sleep(retry)` where retry is the loop
// index rather than the attempt count.
func (s *Stage[In, Out]) runWithRetry(ctx context.Context, in In, metrics *Metrics, log *slog.Logger) (Out, error) {
	var lastErr error
	for retry := 0; retry <= s.RetryCount; retry++ {
		out, err := s.runWorkerWithTimeout(ctx, in)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !s.isRetryable(err) {
			var zero Out
			return zero, err
		}
		metrics.RetryableExceptions++
		if s.reg != nil {
			s.reg.retries.Inc()
		}
		log.Warn("retryable worker error", "retry", retry, "err", err)
		if retry == s.RetryCount {
			break
		}
		time.Sleep(time.Duration(retry) * time.Second)
	}
	var zero Out
	return zero, lastErr
}

func marshalResult[Out any](out Out) ([]byte, error) {
	// a worker that already produced wire-ready bytes (every catalog stage,
	// whose Out is []byte) passes through verbatim rather than being
	// re-encoded as a base64 JSON string.
	if b, ok := any(out).([]byte); ok {
		return b, nil
	}
	if m, ok := any(out).(Marshaler); ok {
		return m.Marshal()
	}
	return jsonMarshal(out)
}

func dumpPayload(dir string, n int, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d", n))
	return os.WriteFile(path, data, 0o644)
}

// Threader fans out n parallel stage instances (goroutines, not OS
// processes — the broker's consumer-group partitioning does the actual
// work distribution) and sums their metrics after all have finished.
func Threader(ctx context.Context, n int, run func(ctx context.Context) (Metrics, error)) (Metrics, error) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		total   Metrics
		firstEr error
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			m, err := run(ctx)
			mu.Lock()
			defer mu.Unlock()
			total.Add(m)
			if err != nil && firstEr == nil {
				firstEr = err
			}
		}()
	}
	wg.Wait()
	return total, firstEr
}
