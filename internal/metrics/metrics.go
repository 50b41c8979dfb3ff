package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for twcadmin
type Metrics struct {
	// Command execution metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec

	// Gateway metrics
	GatewayRequests *prometheus.CounterVec
	GatewayLatency  *prometheus.HistogramVec
	TokenRefreshes  *prometheus.CounterVec
	AuthExpirations prometheus.Counter

	// Access guard metrics
	GuardDecisions *prometheus.CounterVec

	// Ordered collection metrics
	ReorderCommits *prometheus.CounterVec
	ReorderShifted *prometheus.CounterVec

	// Health check results from doctor
	HealthChecks *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twcadmin_command_executions_total",
				Help: "Total number of command executions",
			},
			[]string{"command", "status"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "twcadmin_command_duration_seconds",
				Help:    "Command execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		GatewayRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twcadmin_gateway_requests_total",
				Help: "Outbound API requests by method and response status",
			},
			[]string{"method", "status"},
		),
		GatewayLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "twcadmin_gateway_request_duration_seconds",
				Help:    "Outbound API request latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		TokenRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twcadmin_token_refreshes_total",
				Help: "Bearer token refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		AuthExpirations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "twcadmin_auth_expirations_total",
				Help: "Sessions terminated after an unrecoverable 401",
			},
		),

		GuardDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twcadmin_guard_decisions_total",
				Help: "Access guard decisions by outcome",
			},
			[]string{"outcome"},
		),

		ReorderCommits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twcadmin_reorder_commits_total",
				Help: "Batch reorder commits by collection and outcome",
			},
			[]string{"collection", "outcome"},
		),
		ReorderShifted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twcadmin_reorder_shifted_items_total",
				Help: "Items whose sort key was bumped to make room for an insert",
			},
			[]string{"collection"},
		),

		HealthChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twcadmin_health_checks_total",
				Help: "Health check results by check and status",
			},
			[]string{"check", "status"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "twcadmin_errors_total",
				Help: "Errors by code",
			},
			[]string{"code"},
		),
	}
}

// ObserveRequest records one gateway round trip. A zero status means the
// request never produced a response.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.GatewayRequests.WithLabelValues(method, label).Inc()
	m.GatewayLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRefresh records a token refresh attempt.
func (m *Metrics) ObserveRefresh(ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}

// ObserveAuthExpired records a forced sign-out.
func (m *Metrics) ObserveAuthExpired() {
	if m == nil {
		return
	}
	m.AuthExpirations.Inc()
}

// ObserveGuard records an access guard decision.
func (m *Metrics) ObserveGuard(outcome string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(outcome).Inc()
}

// ObserveReorder records a batch reorder commit.
func (m *Metrics) ObserveReorder(collection string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.ReorderCommits.WithLabelValues(collection, outcome).Inc()
}

// ObserveShift records the number of items bumped before an insert.
func (m *Metrics) ObserveShift(collection string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ReorderShifted.WithLabelValues(collection).Add(float64(n))
}

// ObserveCommand records a finished command.
func (m *Metrics) ObserveCommand(command string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.CommandExecutions.WithLabelValues(command, status).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// ObserveError records an error by code.
func (m *Metrics) ObserveError(code string) {
	if m == nil || code == "" {
		return
	}
	m.Errors.WithLabelValues(code).Inc()
}

// ObserveHealth records one health check result.
func (m *Metrics) ObserveHealth(check, status string) {
	if m == nil {
		return
	}
	m.HealthChecks.WithLabelValues(check, status).Inc()
}
