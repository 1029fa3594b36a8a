// Package metrics exposes Prometheus instrumentation for the registration engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	promptsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunch_prompts_sent_total",
			Help: "Registration prompts sent, labeled by delivery status",
		},
		[]string{"status"},
	)
	sessionResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunch_session_resolutions_total",
			Help: "Session resolutions labeled by trigger (answered or defaulted) and final choice",
		},
		[]string{"trigger", "attending"},
	)
	staleRepliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lunch_stale_replies_total",
			Help: "Replies that arrived after the session was already terminal",
		},
	)
	pendingSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lunch_pending_sessions",
			Help: "Registration sessions currently awaiting a reply or timeout",
		},
	)
	dispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunch_dispatches_total",
			Help: "Submission dispatch attempts labeled by result",
		},
		[]string{"result"},
	)
	dispatchDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lunch_dispatch_duration_seconds",
			Help:    "Duration of submission agent calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Bot updates handled, labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_command_duration_seconds",
			Help:    "Duration of bot update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Application errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
)

// RecordPrompt counts one prompt delivery attempt.
func RecordPrompt(status string) {
	if status == "" {
		status = "unknown"
	}
	promptsSentTotal.WithLabelValues(status).Inc()
}

// RecordResolution counts a session leaving the pending state.
func RecordResolution(trigger string, attending bool) {
	label := "false"
	if attending {
		label = "true"
	}
	sessionResolutionsTotal.WithLabelValues(trigger, label).Inc()
}

// RecordStaleReply counts a reply that lost the race against the timeout or a
// duplicate of an earlier reply.
func RecordStaleReply() {
	staleRepliesTotal.Inc()
}

// SetPendingSessions updates the pending-session gauge.
func SetPendingSessions(count int) {
	pendingSessions.Set(float64(count))
}

// RecordDispatch counts one submission dispatch attempt and its duration.
func RecordDispatch(result string, duration time.Duration) {
	if result == "" {
		result = "unknown"
	}
	dispatchesTotal.WithLabelValues(result).Inc()
	dispatchDurationSeconds.Observe(duration.Seconds())
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(code, severity).Inc()
}
