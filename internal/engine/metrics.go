package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Saturation: сколько сессий сейчас стримит
	ActiveSessions *prometheus.GaugeVec

	// Latency: сколько жила сессия и чем закончилась
	SessionDuration *prometheus.HistogramVec

	// Traffic: отправленные события по потокам и типам
	EventsTotal *prometheus.CounterVec

	// Пропущенные записи (неизвестное устройство и т.п.)
	RecordsSkipped *prometheus.CounterVec

	// Errors: терминальные отказы сессий по классу
	SessionFailures *prometheus.CounterVec

	// Записи, для которых модель не дала оценку
	ScoringFailures prometheus.Counter

	// Размер набора временных допусков
	TemporaryAuthorized prometheus.Gauge

	// Состояние Circuit Breaker модели (0 - closed, 1 - half-open, 2 - open)
	CircuitBreakerState *prometheus.GaugeVec

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - если регистр не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		ActiveSessions: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "floorwatch_active_sessions",
			Help: "Number of streaming sessions in progress.",
		}, []string{"stream"}),

		SessionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "floorwatch_session_duration_seconds",
			Help:    "Histogram of streaming session lifetimes.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 300, 600},
		}, []string{"stream", "outcome"}),

		EventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "floorwatch_events_total",
			Help: "Total number of emitted stream events.",
		}, []string{"stream", "event"}),

		RecordsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "floorwatch_records_skipped_total",
			Help: "Total number of input records skipped without an event.",
		}, []string{"stream", "reason"}),

		SessionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "floorwatch_session_failures_total",
			Help: "Total number of sessions terminated by a fault, by class.",
		}, []string{"class"}),

		ScoringFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "floorwatch_scoring_failures_total",
			Help: "Total number of sensor records without a RUL estimate.",
		}),

		TemporaryAuthorized: f.NewGauge(prometheus.GaugeOpts{
			Name: "floorwatch_temporary_authorized",
			Help: "Current number of temporarily authorized devices.",
		}),

		CircuitBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "floorwatch_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"scorer"}),

		AuditBufferFill: f.NewGauge(prometheus.GaugeOpts{
			Name: "floorwatch_audit_buffer_utilization",
			Help: "Current number of events in audit buffer.",
		}),
	}
}
