// Package metrics exposes Prometheus instrumentation for the billing core.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	admissions        *prometheus.CounterVec
	admissionDuration *prometheus.HistogramVec
	ledgerMutations   *prometheus.CounterVec
	ledgerAmount      *prometheus.CounterVec
	auditRecords      *prometheus.CounterVec
	priceCache        *prometheus.CounterVec
}

// New registers collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compliance",
			Subsystem: "admission",
			Name:      "decisions_total",
			Help:      "Admission decisions by service code, result and reason code.",
		}, []string{"service_code", "result", "reason"}),
		admissionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "compliance",
			Subsystem: "admission",
			Name:      "duration_seconds",
			Help:      "Time spent deciding an admission, including the ledger write.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service_code"}),
		ledgerMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compliance",
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Committed wallet transactions by type.",
		}, []string{"type"}),
		ledgerAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compliance",
			Subsystem: "ledger",
			Name:      "amount_minor_total",
			Help:      "Sum of committed transaction amounts in minor units by type and currency.",
		}, []string{"type", "currency"}),
		auditRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compliance",
			Subsystem: "audit",
			Name:      "records_total",
			Help:      "Audit entries appended by category and result.",
		}, []string{"category", "result"}),
		priceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compliance",
			Subsystem: "pricing",
			Name:      "cache_lookups_total",
			Help:      "Price cache lookups by outcome (hit, miss, error).",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.admissions, m.admissionDuration, m.ledgerMutations, m.ledgerAmount, m.auditRecords, m.priceCache)
	}
	return m
}

func (m *Metrics) ObserveAdmission(serviceCode, result, reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(serviceCode, result, reason).Inc()
	m.admissionDuration.WithLabelValues(serviceCode).Observe(d.Seconds())
}

func (m *Metrics) ObserveLedger(txType, currency string, amountMinor int64) {
	if m == nil {
		return
	}
	m.ledgerMutations.WithLabelValues(txType).Inc()
	if amountMinor > 0 {
		m.ledgerAmount.WithLabelValues(txType, currency).Add(float64(amountMinor))
	}
}

func (m *Metrics) ObserveAudit(category, result string) {
	if m == nil {
		return
	}
	m.auditRecords.WithLabelValues(category, result).Inc()
}

func (m *Metrics) ObservePriceCache(outcome string) {
	if m == nil {
		return
	}
	m.priceCache.WithLabelValues(outcome).Inc()
}
