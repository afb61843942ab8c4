package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PipelineDuration        prometheus.Histogram
	StageDuration           *prometheus.HistogramVec
	StageErrors             *prometheus.CounterVec
	FinalActions            *prometheus.CounterVec
	OptOutsDetected         prometheus.Counter
	RepairsTriggered        *prometheus.CounterVec
	MessagesBlocked         *prometheus.CounterVec
	PolicyEngineUnavailable prometheus.Counter
	SMSTruncations          prometheus.Counter
	RepliesDispatched       prometheus.Counter
}

// NewMetrics registers the pipeline instruments on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers on a caller-supplied registry; tests use
// this with a fresh registry to avoid duplicate-registration panics.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_duration_seconds",
			Help:    "Time taken to run the full post-processing pipeline",
			Buckets: prometheus.DefBuckets,
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Time taken by each pipeline stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		StageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_stage_errors_total",
			Help: "Total number of stage failures skipped by fail-open",
		}, []string{"stage"}),
		FinalActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_final_actions_total",
			Help: "Total number of pipeline runs by final action",
		}, []string{"action"}),
		OptOutsDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "opt_outs_detected_total",
			Help: "Total number of opt-out requests honored",
		}),
		RepairsTriggered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conversation_repairs_triggered_total",
			Help: "Total number of conversation repairs by trigger",
		}, []string{"trigger"}),
		MessagesBlocked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_blocked_total",
			Help: "Total number of replies blocked by the compliance enforcer",
		}, []string{"mode"}),
		PolicyEngineUnavailable: factory.NewCounter(prometheus.CounterOpts{
			Name: "policy_engine_unavailable_total",
			Help: "Total number of compliance passes degraded to a no-op",
		}),
		SMSTruncations: factory.NewCounter(prometheus.CounterOpts{
			Name: "sms_truncations_total",
			Help: "Total number of replies truncated for the SMS channel",
		}),
		RepliesDispatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "replies_dispatched_total",
			Help: "Total number of finalized replies published to the outbound stream",
		}),
	}
}
