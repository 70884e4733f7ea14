package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(flowTransitions, flowCancelled, leadsSubmitted, leadSubmitSeconds, leadSubmitFailures)
}

var (
	flowTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbot_flow_transitions_total",
			Help: "Conversation state transitions.",
		},
		[]string{"from", "to"}, // idle is "none"
	)

	flowCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbot_flow_cancelled_total",
			Help: "Conversations cancelled by the user, by state.",
		},
		[]string{"state"},
	)

	leadsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbot_leads_submitted_total",
			Help: "Leads stored, by branch.",
		},
		[]string{"branch"},
	)

	leadSubmitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadbot_lead_submit_seconds",
			Help:    "Time from pressing send to a stored lead.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	leadSubmitFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbot_lead_submit_failures_total",
			Help: "Rejected or failed submissions, by reason.",
		},
		[]string{"reason"},
	)
)

// Flow records conversation metrics. The zero value is ready to use.
type Flow struct{}

// Transition counts a state change.
func (Flow) Transition(from, to string) {
	flowTransitions.WithLabelValues(norm(from), norm(to)).Inc()
}

// Cancelled counts a user cancel.
func (Flow) Cancelled(from string) {
	flowCancelled.WithLabelValues(norm(from)).Inc()
}

// Submitted counts a stored lead and its submit latency.
func (Flow) Submitted(branch string, took time.Duration) {
	leadsSubmitted.WithLabelValues(norm(branch)).Inc()
	leadSubmitSeconds.Observe(took.Seconds())
}

// SubmitFailed counts a failed submission.
func (Flow) SubmitFailed(reason string) {
	leadSubmitFailures.WithLabelValues(norm(reason)).Inc()
}
