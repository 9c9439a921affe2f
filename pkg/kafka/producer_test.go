package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/AppStoreGo/pkg/logger"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, logger: logger.Discard()}

	e, err := NewEvent("review.added", "app-1", "app", "catalog-search", map[string]int{"rating": 5})
	require.NoError(t, err)

	topic := Topic("review", "added")
	require.NoError(t, p.Publish(context.Background(), topic, e))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, topic, msg.Topic)
	assert.Equal(t, []byte("app-1"), msg.Key)
	assert.Equal(t, "review.added", NewHeaderCarrier(&msg).Get("event_type"))

	decoded, err := UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, decoded.EventID)
	assert.Equal(t, 1.0, testutil.ToFloat64(producerPublished.WithLabelValues(topic)))
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("leader not available")}, logger: logger.Discard()}
	e, err := NewEvent("review.added", "app-1", "app", "catalog-search", nil)
	require.NoError(t, err)

	topic := Topic("review", "failed-test")
	err = p.Publish(context.Background(), topic, e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish to "+topic)
	assert.Equal(t, 1.0, testutil.ToFloat64(producerErrors.WithLabelValues(topic)))
}

func TestPingBrokers_NoneConfigured(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
	assert.Error(t, (&Producer{}).Ping(context.Background()))
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"localhost:9092"})
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, 100, cfg.BatchSize)
}
