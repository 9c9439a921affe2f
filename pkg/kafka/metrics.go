package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	consumerReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_messages_received_total",
			Help: "Messages fetched from the broker.",
		},
		[]string{"topic", "consumer_group"},
	)

	consumerProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_messages_processed_total",
			Help: "Messages handled successfully.",
		},
		[]string{"topic", "consumer_group"},
	)

	consumerFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_messages_failed_total",
			Help: "Messages skipped after exhausting handler retries or failing to decode.",
		},
		[]string{"topic", "consumer_group"},
	)

	consumerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_consumer_processing_duration_seconds",
			Help:    "Handler time per message, retries included.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic", "consumer_group"},
	)

	consumerDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_messages_duplicate_total",
			Help: "Events skipped by the idempotency guard.",
		},
		[]string{"event_type"},
	)

	producerPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_messages_published_total",
			Help: "Messages published.",
		},
		[]string{"topic"},
	)

	producerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_publish_errors_total",
			Help: "Publish failures.",
		},
		[]string{"topic"},
	)
)
