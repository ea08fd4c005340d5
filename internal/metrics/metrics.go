package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	LLMRequests         prometheus.Counter
	LLMFailures         prometheus.Counter
	ExtractionFallbacks prometheus.Counter
	ExtractionFailures  prometheus.Counter
	EnqueuedJobs        prometheus.Counter
	ProcessedJobs       prometheus.Counter
	FailedJobs          prometheus.Counter
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			LLMRequests: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "quint",
				Name:      "llm_requests_total",
				Help:      "Total model invocations attempted",
			}),
			LLMFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "quint",
				Name:      "llm_failures_total",
				Help:      "Total model invocations that failed upstream",
			}),
			ExtractionFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "quint",
				Name:      "extraction_fallbacks_total",
				Help:      "Total replies recovered by the regex cascade after strict parse failed",
			}),
			ExtractionFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "quint",
				Name:      "extraction_failures_total",
				Help:      "Total replies with no recoverable structured result",
			}),
			EnqueuedJobs: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "quint",
				Name:      "queue_enqueued_total",
				Help:      "Total synthesis jobs enqueued to redis stream",
			}),
			ProcessedJobs: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "quint",
				Name:      "queue_processed_total",
				Help:      "Total synthesis jobs successfully processed",
			}),
			FailedJobs: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "quint",
				Name:      "queue_failed_total",
				Help:      "Total synthesis jobs failed during processing",
			}),
		}
		prometheus.MustRegister(
			global.LLMRequests,
			global.LLMFailures,
			global.ExtractionFallbacks,
			global.ExtractionFailures,
			global.EnqueuedJobs,
			global.ProcessedJobs,
			global.FailedJobs,
		)
	})
	return global
}
