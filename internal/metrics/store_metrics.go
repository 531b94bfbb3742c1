package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics содержит метрики операций магазина.
type StoreMetrics struct {
	// Счётчики оформления заказов
	checkoutStarted    prometheus.Counter
	checkoutCompleted  prometheus.Counter
	checkoutRejected   *prometheus.CounterVec
	checkoutIdemReplay prometheus.Counter

	// Гистограммы времени выполнения
	checkoutDuration prometheus.Histogram
	repoDuration     *prometheus.HistogramVec

	// Счётчики отзывов и агрегата рейтинга
	reviewMutations *prometheus.CounterVec

	// Cчётчики событий timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для backlog outbox
	outboxPending prometheus.Gauge

	// Gauge для активных оформлений
	activeCheckouts prometheus.Gauge
}

// NewStoreMetrics создаёт новый экземпляр метрик магазина.
func NewStoreMetrics() *StoreMetrics {
	return newStoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newStoreMetricsWithRegisterer(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		checkoutStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "store_checkout_started_total",
			Help: "Total number of checkout attempts started",
		}),
		checkoutCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "store_checkout_completed_total",
			Help: "Total number of checkouts completed successfully",
		}),
		checkoutRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "store_checkout_rejected_total",
			Help: "Total number of checkouts rejected, by reason",
		}, []string{"reason"}),
		checkoutIdemReplay: registerCounter(registerer, prometheus.CounterOpts{
			Name: "store_checkout_idempotent_replays_total",
			Help: "Total number of checkout requests answered from the idempotency store",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "store_checkout_duration_seconds",
			Help:    "Duration of checkout operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		repoDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "store_repository_duration_seconds",
			Help:    "Duration of storage operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		reviewMutations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "store_review_mutations_total",
			Help: "Total number of review create/update/delete operations",
		}, []string{"action"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "store_timeline_events_total",
			Help: "Total number of order timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "store_outbox_events_total",
			Help: "Total number of outbox events published",
		}),
		outboxPending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "store_outbox_pending",
			Help: "Number of outbox messages waiting for publication",
		}),
		activeCheckouts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "store_active_checkouts",
			Help: "Number of currently running checkout operations",
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

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
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

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCheckoutStarted увеличивает счётчик начатых оформлений.
func (m *StoreMetrics) RecordCheckoutStarted() {
	m.checkoutStarted.Inc()
	m.activeCheckouts.Inc()
}

// RecordCheckoutCompleted увеличивает счётчик успешных оформлений.
func (m *StoreMetrics) RecordCheckoutCompleted() {
	m.checkoutCompleted.Inc()
}

// RecordCheckoutRejected увеличивает счётчик отклонённых оформлений.
func (m *StoreMetrics) RecordCheckoutRejected(reason string) {
	m.checkoutRejected.WithLabelValues(reason).Inc()
}

// RecordCheckoutReplay увеличивает счётчик ответов из idempotency-хранилища.
func (m *StoreMetrics) RecordCheckoutReplay() {
	m.checkoutIdemReplay.Inc()
}

// RecordCheckoutFinished уменьшает количество активных оформлений.
func (m *StoreMetrics) RecordCheckoutFinished() {
	m.activeCheckouts.Dec()
}

// RecordCheckoutDuration записывает время оформления заказа.
func (m *StoreMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordRepositoryDuration записывает время операции хранилища.
func (m *StoreMetrics) RecordRepositoryDuration(operation string, duration time.Duration) {
	m.repoDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordReviewMutation увеличивает счётчик операций с отзывами.
func (m *StoreMetrics) RecordReviewMutation(action string) {
	m.reviewMutations.WithLabelValues(action).Inc()
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *StoreMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *StoreMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// SetOutboxPending выставляет текущий размер backlog outbox.
func (m *StoreMetrics) SetOutboxPending(count int) {
	m.outboxPending.Set(float64(count))
}
