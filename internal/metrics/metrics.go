// Package metrics — счётчики Prometheus бота: обработка апдейтов, операции
// ledger, сбои аудита и отправки в Telegram. Все методы безопасны для nil.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fair"

// Metrics хранит свой реестр, чтобы тесты не делили глобальный.
type Metrics struct {
	registry *prometheus.Registry

	updates        *prometheus.CounterVec
	updateDuration *prometheus.HistogramVec
	ledgerOps      *prometheus.CounterVec
	auditFailures  *prometheus.CounterVec
	sendErrors     *prometheus.CounterVec
	throttled      prometheus.Counter
	statesPurged   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Processed updates by shape and outcome (handled, ignored, failed).",
		}, []string{"shape", "outcome"}),
		updateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time spent dispatching one update, including storage and replies.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"shape"}),
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger operations by name and outcome (applied, rejected, fault).",
		}, []string{"op", "outcome"}),
		auditFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "History records that could not be written after a committed operation.",
		}, []string{"kind"}),
		sendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_send_errors_total",
			Help:      "Failed Telegram API calls by method.",
		}, []string{"method"}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_throttled_total",
			Help:      "Updates dropped by the per-user anti-flood limiter.",
		}),
		statesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialog_states_purged_total",
			Help:      "Stale dialog states removed by the cleanup job.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.updates,
		m.updateDuration,
		m.ledgerOps,
		m.auditFailures,
		m.sendErrors,
		m.throttled,
		m.statesPurged,
	)
	return m
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry — реестр метрик (для тестов и дополнительных коллекторов).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// UpdateHandled реализует dialog.Observer.
func (m *Metrics) UpdateHandled(shape, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(shape, outcome).Inc()
	m.updateDuration.WithLabelValues(shape).Observe(elapsed.Seconds())
}

// LedgerOp реализует ledger.Observer.
func (m *Metrics) LedgerOp(op, outcome string) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(op, outcome).Inc()
}

// AuditFailed реализует ledger.Observer.
func (m *Metrics) AuditFailed(kind string) {
	if m == nil {
		return
	}
	m.auditFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) SendFailed(method string) {
	if m == nil {
		return
	}
	m.sendErrors.WithLabelValues(method).Inc()
}

func (m *Metrics) Throttled() {
	if m == nil {
		return
	}
	m.throttled.Inc()
}

func (m *Metrics) StatesPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.statesPurged.Add(float64(n))
}
