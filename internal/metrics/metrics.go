package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors shared by the auth flows
type Metrics struct {
	FlowOutcomes         *prometheus.CounterVec
	RateLimitRejections  *prometheus.CounterVec
	NotificationFailures prometheus.Counter
	AccountsPurged       *prometheus.CounterVec
	RefreshTokensIssued  prometheus.Counter
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		FlowOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountsvc_flow_outcomes_total",
				Help: "Auth flow completions by flow and outcome kind.",
			},
			[]string{"flow", "outcome"},
		),
		RateLimitRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountsvc_rate_limit_rejections_total",
				Help: "Requests rejected by the rate limiter.",
			},
			[]string{"operation"},
		),
		NotificationFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "accountsvc_verification_notification_failures_total",
				Help: "Verification codes that could not be issued or delivered.",
			},
		),
		AccountsPurged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountsvc_accounts_purged_total",
				Help: "Accounts removed by cleanup sweeps.",
			},
			[]string{"status"},
		),
		RefreshTokensIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "accountsvc_refresh_tokens_issued_total",
				Help: "Refresh tokens issued.",
			},
		),
	}

	registry.MustRegister(m.FlowOutcomes, m.RateLimitRejections, m.NotificationFailures, m.AccountsPurged, m.RefreshTokensIssued)
	return m
}

// RegisterRuntime adds the Go runtime and process collectors
func RegisterRuntime(registry *prometheus.Registry) {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
