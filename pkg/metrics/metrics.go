package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ispeed"

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
		[]string{"service"},
	)

	HttpRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"service"},
	)

	// Trip session metrics
	ActiveTripsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_trips",
			Help:      "Current number of monitored trips",
		},
		[]string{"service"},
	)

	TripsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_total",
			Help:      "Trips by lifecycle transition",
		},
		[]string{"service", "status"},
	)

	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distraction_alerts_total",
			Help:      "Distraction alerts raised in finished trips",
		},
		[]string{"service"},
	)

	AlertResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distraction_alert_responses_total",
			Help:      "Distraction alerts the driver responded to in finished trips",
		},
		[]string{"service"},
	)

	TripEffectiveness = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trip_effectiveness_percent",
			Help:      "Effectiveness score of finished trips",
			Buckets:   []float64{50, 70, 85, 95, 100},
		},
		[]string{"service"},
	)

	TripDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trip_duration_seconds",
			Help:      "Monitored duration of finished trips",
			Buckets:   prometheus.ExponentialBuckets(60, 2, 10),
		},
		[]string{"service"},
	)

	WebSocketConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Current number of active WebSocket connections",
		},
		[]string{"service"},
	)

	RabbitMQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rabbitmq_messages_published_total",
			Help:      "Total number of messages published to RabbitMQ",
		},
		[]string{"service", "routing_key", "status"},
	)

	RabbitMQMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rabbitmq_messages_consumed_total",
			Help:      "Total number of messages consumed from RabbitMQ",
		},
		[]string{"service", "queue", "status"},
	)
)

// RecordHTTPMetrics records HTTP request metrics
func RecordHTTPMetrics(service, method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	HttpRequestsTotal.WithLabelValues(service, method, path, status).Inc()
	HttpRequestDuration.WithLabelValues(service, method, path, status).Observe(duration.Seconds())
}

// RecordTripFinished records the counters of a stopped trip session.
func RecordTripFinished(service string, elapsedSeconds, alerts, responses, effectiveness int) {
	TripsTotal.WithLabelValues(service, "finished").Inc()
	AlertsTotal.WithLabelValues(service).Add(float64(alerts))
	AlertResponsesTotal.WithLabelValues(service).Add(float64(responses))
	TripEffectiveness.WithLabelValues(service).Observe(float64(effectiveness))
	TripDuration.WithLabelValues(service).Observe(float64(elapsedSeconds))
}

func RecordPublish(service, routingKey string, err error) {
	RabbitMQMessagesPublished.WithLabelValues(service, routingKey, outcome(err)).Inc()
}

func RecordConsume(service, queue string, err error) {
	RabbitMQMessagesConsumed.WithLabelValues(service, queue, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
