package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_cycles_total", Help: "Monitoring cycles executed",
	})
	mCyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_cycles_skipped_total", Help: "Ticks skipped because a cycle was in flight",
	})
	mCycleDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "monitor_cycle_duration_seconds", Help: "Monitoring cycle duration",
		Buckets: prometheus.DefBuckets,
	})
	mProbes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_probes_total", Help: "Probes attempted",
	})
	mProbesUp = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_probes_up_total", Help: "Successful probe results",
	})
	mProbesDown = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_probes_down_total", Help: "Failed probe results",
	})
	mProbeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "monitor_probe_latency_seconds", Help: "Probe latency",
		Buckets: prometheus.DefBuckets,
	})
	mEvalErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_evaluation_errors_total", Help: "Endpoint evaluations aborted by persistence errors",
	})
	mAlertsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_alerts_opened_total", Help: "Alerts opened",
	}, []string{"kind"})
	mAlertsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_alerts_resolved_total", Help: "Alerts resolved",
	}, []string{"kind"})
	mNotifyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_notification_errors_total", Help: "Notification sink failures",
	})
)
