// Package metrics holds the prometheus collectors for kubedash. They are
// registered on controller-runtime's registry, which the REST server exposes
// at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const namespace = "kubedash"

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultTimeout = "timeout"
)

var (
	// Provisioning metrics
	provisionStageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provision",
			Name:      "stage_total",
			Help:      "Total number of provisioning stages run by stage and result",
		},
		[]string{"stage", "result"},
	)

	provisionStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provision",
			Name:      "stage_duration_seconds",
			Help:      "Duration of provisioning stages in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"stage"},
	)

	// Validation metrics
	validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credential",
			Name:      "validations_total",
			Help:      "Total number of credential validations by result",
		},
		[]string{"result"},
	)

	storedClusters = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "credential",
			Name:      "stored_clusters",
			Help:      "Number of cluster descriptors in the credential store",
		},
	)

	// Rollout metrics
	rolloutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rollout",
			Name:      "total",
			Help:      "Total number of rollouts by workload kind and result",
		},
		[]string{"kind", "result"},
	)

	rolloutDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rollout",
			Name:      "duration_seconds",
			Help:      "Time from restart request to convergence or deadline in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 500ms to ~4min
		},
		[]string{"kind", "result"},
	)

	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		provisionStageTotal,
		provisionStageDuration,
		validationsTotal,
		storedClusters,
		rolloutsTotal,
		rolloutDuration,
		httpRequestsTotal,
		httpRequestDuration,
	)
}

// RecordProvisionStage records one provisioning stage.
func RecordProvisionStage(stage string, err error, duration time.Duration) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	provisionStageTotal.WithLabelValues(stage, result).Inc()
	provisionStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordValidation records a credential validation outcome.
func RecordValidation(valid bool) {
	if valid {
		validationsTotal.WithLabelValues("valid").Inc()
	} else {
		validationsTotal.WithLabelValues("invalid").Inc()
	}
}

// SetStoredClusters records the credential store size.
func SetStoredClusters(n int) {
	storedClusters.Set(float64(n))
}

// RecordRollout records a finished rollout.
func RecordRollout(kind, result string, elapsed time.Duration) {
	rolloutsTotal.WithLabelValues(kind, result).Inc()
	rolloutDuration.WithLabelValues(kind, result).Observe(elapsed.Seconds())
}

// RecordHTTPRequest records a served HTTP request. route is the matched
// route template, not the raw path.
func RecordHTTPRequest(route, method string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}
