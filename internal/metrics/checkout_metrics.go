package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики checkout-потока.
type CheckoutMetrics struct {
	// Счётчики операций
	submitted          prometheus.Counter
	draftRejected      prometheus.Counter
	paid               prometheus.Counter
	failed             prometheus.Counter
	abandoned          prometheus.Counter
	duplicateCallbacks prometheus.Counter
	amountMismatches   prometheus.Counter

	// Гистограммы времени выполнения
	submitDuration    prometheus.Histogram
	reconcileDuration prometheus.Histogram

	// Gauge для сессий, ожидающих callback
	awaitingPayment prometheus.Gauge
}

// NewCheckoutMetrics создаёт новый экземпляр метрик checkout.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer создаёт метрики в заданном Registerer (для тестов).
func NewCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		submitted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_submitted_total",
			Help: "Total number of checkout submissions accepted",
		}),
		draftRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_draft_rejected_total",
			Help: "Total number of draft creations rejected by the backend",
		}),
		paid: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_paid_total",
			Help: "Total number of checkouts confirmed paid by the backend",
		}),
		failed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_failed_total",
			Help: "Total number of checkouts failed (declined or reconcile rejected)",
		}),
		abandoned: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_abandoned_total",
			Help: "Total number of checkouts abandoned by the user",
		}),
		duplicateCallbacks: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_duplicate_callbacks_total",
			Help: "Total number of duplicate payment callbacks ignored",
		}),
		amountMismatches: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_amount_mismatch_total",
			Help: "Total number of callbacks with paid amount not matching the draft",
		}),
		submitDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "checkout_submit_duration_seconds",
			Help:    "Duration of validate plus draft creation in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		reconcileDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "checkout_reconcile_duration_seconds",
			Help:    "Duration of callback handling plus reconcile in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		awaitingPayment: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "checkout_awaiting_payment",
			Help: "Number of sessions currently awaiting a payment callback",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordSubmitted увеличивает счётчик принятых отправок и активных ожиданий.
func (m *CheckoutMetrics) RecordSubmitted() {
	m.submitted.Inc()
	m.awaitingPayment.Inc()
}

// RecordDraftRejected увеличивает счётчик отклонённых черновиков.
func (m *CheckoutMetrics) RecordDraftRejected() {
	m.draftRejected.Inc()
}

// RecordPaid увеличивает счётчик подтверждённых оплат.
func (m *CheckoutMetrics) RecordPaid() {
	m.paid.Inc()
	m.awaitingPayment.Dec()
}

// RecordFailed увеличивает счётчик неуспешных checkout'ов.
func (m *CheckoutMetrics) RecordFailed() {
	m.failed.Inc()
	m.awaitingPayment.Dec()
}

// RecordAbandoned увеличивает счётчик брошенных checkout'ов.
func (m *CheckoutMetrics) RecordAbandoned() {
	m.abandoned.Inc()
	m.awaitingPayment.Dec()
}

// RecordDuplicateCallback увеличивает счётчик проигнорированных повторов.
func (m *CheckoutMetrics) RecordDuplicateCallback() {
	m.duplicateCallbacks.Inc()
}

// RecordAmountMismatch увеличивает счётчик расхождений суммы.
func (m *CheckoutMetrics) RecordAmountMismatch() {
	m.amountMismatches.Inc()
}

// RecordSubmitDuration записывает время обработки отправки.
func (m *CheckoutMetrics) RecordSubmitDuration(duration time.Duration) {
	m.submitDuration.Observe(duration.Seconds())
}

// RecordReconcileDuration записывает время обработки callback'а.
func (m *CheckoutMetrics) RecordReconcileDuration(duration time.Duration) {
	m.reconcileDuration.Observe(duration.Seconds())
}
