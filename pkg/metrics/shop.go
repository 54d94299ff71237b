package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "wacka"

// Outcome labels shared by the shop counters.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeExisting  = "existing"
	OutcomeDuplicate = "duplicate"
	OutcomeUnknown   = "unknown_payment"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
	OutcomeDropped   = "dropped"
)

// ShopMetrics counts order, payment and notification activity.
type ShopMetrics struct {
	ordersCreated      *prometheus.CounterVec
	orderTransitions   *prometheus.CounterVec
	paymentInitiations *prometheus.CounterVec
	paymentCallbacks   *prometheus.CounterVec
	notificationJobs   *prometheus.CounterVec
	queueDepth         prometheus.Gauge
}

// NewShopMetrics registers the shop metrics on reg. A nil registerer yields
// a no-op recorder.
func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	if reg == nil {
		return &ShopMetrics{}
	}
	m := &ShopMetrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created at checkout.",
		}, []string{"payment_method"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions.",
		}, []string{"from", "to"}),
		paymentInitiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_initiations_total",
			Help:      "STK push initiation attempts by outcome.",
		}, []string{"outcome"}),
		paymentCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callbacks_total",
			Help:      "Gateway callbacks received by outcome.",
		}, []string{"outcome"}),
		notificationJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_jobs_total",
			Help:      "Background notification jobs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notification_queue_depth",
			Help:      "Jobs waiting in the notification queue.",
		}),
	}
	reg.MustRegister(m.ordersCreated, m.orderTransitions, m.paymentInitiations, m.paymentCallbacks, m.notificationJobs, m.queueDepth)
	return m
}

func (m *ShopMetrics) OrderCreated(paymentMethod string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *ShopMetrics) OrderTransition(from, to string) {
	if m == nil || m.orderTransitions == nil {
		return
	}
	m.orderTransitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *ShopMetrics) PaymentInitiation(outcome string) {
	if m == nil || m.paymentInitiations == nil {
		return
	}
	m.paymentInitiations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *ShopMetrics) PaymentCallback(outcome string) {
	if m == nil || m.paymentCallbacks == nil {
		return
	}
	m.paymentCallbacks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *ShopMetrics) NotificationJob(kind, outcome string) {
	if m == nil || m.notificationJobs == nil {
		return
	}
	m.notificationJobs.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func (m *ShopMetrics) SetQueueDepth(n int) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
