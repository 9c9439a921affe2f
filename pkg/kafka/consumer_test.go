package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/AppStoreGo/pkg/logger"
)

// fakeReader serves queued messages, then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    int
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	if len(r.queue) == 0 {
		select {
		case <-r.drained:
		default:
			close(r.drained)
		}
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	r.closed++
	r.mu.Unlock()
	return nil
}

func eventMessage(t *testing.T, topic string, offset int64, eventType, appID string) kafka.Message {
	t.Helper()
	e, err := NewEvent(eventType, appID, "app", "test", map[string]string{"app_id": appID})
	require.NoError(t, err)
	raw, err := e.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: topic, Offset: offset, Value: raw}
}

func runUntilDrained(t *testing.T, c *Consumer, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-r.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain the queue")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	topic := Topic("app", "viewed")
	r := newFakeReader(
		eventMessage(t, topic, 1, "app.viewed", "a"),
		eventMessage(t, topic, 2, "app.viewed", "b"),
	)

	var seen []string
	c := newConsumer(r, "grp-ok", func(_ context.Context, e *Event) error {
		seen = append(seen, e.AggregateID)
		return nil
	}, logger.Discard())

	runUntilDrained(t, c, r)

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, []int64{1, 2}, r.committed)
	assert.Equal(t, 1, r.closed)
	assert.Equal(t, 2.0, testutil.ToFloat64(consumerProcessed.WithLabelValues(topic, "grp-ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(consumerReceived.WithLabelValues(topic, "grp-ok")))
}

func TestConsumer_RetriesThenSkipsPoisonMessage(t *testing.T) {
	topic := Topic("app", "downloaded")
	r := newFakeReader(eventMessage(t, topic, 9, "app.downloaded", "a"))

	attempts := 0
	c := newConsumer(r, "grp-poison", func(context.Context, *Event) error {
		attempts++
		return errors.New("store unavailable")
	}, logger.Discard())
	c.backoff = time.Millisecond

	runUntilDrained(t, c, r)

	assert.Equal(t, maxHandlerAttempts, attempts)
	assert.Equal(t, []int64{9}, r.committed)
	assert.Equal(t, 1.0, testutil.ToFloat64(consumerFailed.WithLabelValues(topic, "grp-poison")))
}

func TestConsumer_RecoversOnRetry(t *testing.T) {
	topic := Topic("app", "purchased")
	r := newFakeReader(eventMessage(t, topic, 3, "app.purchased", "a"))

	attempts := 0
	c := newConsumer(r, "grp-retry", func(context.Context, *Event) error {
		attempts++
		if attempts == 1 {
			return errors.New("transient")
		}
		return nil
	}, logger.Discard())
	c.backoff = time.Millisecond

	runUntilDrained(t, c, r)

	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1.0, testutil.ToFloat64(consumerProcessed.WithLabelValues(topic, "grp-retry")))
}

func TestConsumer_SkipsUndecodableMessage(t *testing.T) {
	topic := Topic("app", "updated")
	r := newFakeReader(kafka.Message{Topic: topic, Offset: 5, Value: []byte("{")})

	called := false
	c := newConsumer(r, "grp-bad", func(context.Context, *Event) error {
		called = true
		return nil
	}, logger.Discard())

	runUntilDrained(t, c, r)

	assert.False(t, called)
	assert.Equal(t, []int64{5}, r.committed)
}

func TestConsumer_CloseIsIdempotent(t *testing.T) {
	r := newFakeReader()
	c := newConsumer(r, "grp-close", nil, logger.Discard())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 1, r.closed)
}
