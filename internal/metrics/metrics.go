package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bookhub"

// Outcomes of a provider request.
const (
	OutcomeSuccess    = "success"
	OutcomeHTTPError  = "http_error"
	OutcomeTransport  = "transport_error"
	OutcomeDecode     = "decode_error"
	OutcomeBadFilters = "invalid_filters"
)

var (
	registerOnce sync.Once

	providerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Outbound provider requests by provider and outcome",
	}, []string{"provider", "outcome"})
	providerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Duration of outbound provider requests",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"provider"})
	listSources = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "list_results_total",
		Help:      "Pages returned by list, by source",
	}, []string{"source"})
	providerFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_fallbacks_total",
		Help:      "List calls that fell back to external providers",
	})
	booksSaved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "books_saved_total",
		Help:      "Books persisted in the internal store, by original source",
	}, []string{"source"})
)

// Register adds the collectors to the default registry. Safe to call twice.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(providerRequests, providerDuration, listSources, providerFallbacks, booksSaved)
	})
}

func ObserveProviderRequest(provider, outcome string, d time.Duration) {
	providerRequests.WithLabelValues(provider, outcome).Inc()
	providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func IncProviderOutcome(provider, outcome string) {
	providerRequests.WithLabelValues(provider, outcome).Inc()
}

func IncListSource(source string) { listSources.WithLabelValues(source).Inc() }
func IncProviderFallback()        { providerFallbacks.Inc() }
func IncBookSaved(source string)  { booksSaved.WithLabelValues(source).Inc() }
