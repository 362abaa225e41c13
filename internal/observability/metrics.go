package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	MockSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wa_mock_send_total", Help: "Mock transport send outcomes"},
		[]string{"result"},
	)
	DeliveryReports = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wa_mock_delivery_reports_total", Help: "Simulated delivery reports"},
		[]string{"status"},
	)
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wa_webhook_events_total", Help: "Processed webhook entries"},
		[]string{"kind"},
	)
	DispatchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "wa_dispatch_retries_total", Help: "Backoff retries after rate limiting"},
	)
	TestResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wa_test_results_total", Help: "Scenario test outcomes"},
		[]string{"suite", "result"},
	)
	SuiteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "wa_suite_duration_seconds", Help: "Suite wall time", Buckets: prometheus.ExponentialBuckets(0.5, 2, 8)},
		[]string{"suite"},
	)
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "wa_api_requests_total", Help: "Mock API HTTP requests"},
		[]string{"endpoint", "status"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(MockSends, DeliveryReports, WebhookEvents, DispatchRetries, TestResults, SuiteDuration, APIRequests)
}
