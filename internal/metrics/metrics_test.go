package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/leadbot/core/telegram/sender"
)

func TestFlowRecorder(t *testing.T) {
	var f Flow
	before := testutil.ToFloat64(flowTransitions.WithLabelValues("none", "lead.choosing_service"))
	f.Transition("", "lead.choosing_service")
	assert.Equal(t, before+1, testutil.ToFloat64(flowTransitions.WithLabelValues("none", "lead.choosing_service")))

	before = testutil.ToFloat64(leadsSubmitted.WithLabelValues("neuro"))
	f.Submitted(" Neuro ", 120*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(leadsSubmitted.WithLabelValues("neuro")))

	before = testutil.ToFloat64(leadSubmitFailures.WithLabelValues("storage"))
	f.SubmitFailed("storage")
	assert.Equal(t, before+1, testutil.ToFloat64(leadSubmitFailures.WithLabelValues("storage")))

	before = testutil.ToFloat64(flowCancelled.WithLabelValues("lead.deadline"))
	f.Cancelled("lead.deadline")
	assert.Equal(t, before+1, testutil.ToFloat64(flowCancelled.WithLabelValues("lead.deadline")))
}

func TestObserveHandler(t *testing.T) {
	before := testutil.ToFloat64(handlerTotal.WithLabelValues("/start", "ok"))
	ObserveHandler("/start", "OK", time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(handlerTotal.WithLabelValues("/start", "ok")))
}

func TestObserveSend(t *testing.T) {
	before := testutil.ToFloat64(sendTotal.WithLabelValues("flow.reply", "none"))
	ObserveSend(sender.Result{Action: "flow.reply", Attempts: 1})
	assert.Equal(t, before+1, testutil.ToFloat64(sendTotal.WithLabelValues("flow.reply", "none")))

	before = testutil.ToFloat64(sendTotal.WithLabelValues("notify.admin", "http_4xx"))
	ObserveSend(sender.Result{Action: "notify.admin", Kind: "http_4xx"})
	assert.Equal(t, before+1, testutil.ToFloat64(sendTotal.WithLabelValues("notify.admin", "http_4xx")))
}

func TestMustRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		MustRegister()
		MustRegister()
	})
}

func TestRegisterDispatcher(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1})
	t.Cleanup(d.Close)
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterDispatcher(reg, d))
	require.NoError(t, RegisterDispatcher(reg, d))

	n, err := testutil.GatherAndCount(reg, "leadbot_sender_sent_total", "leadbot_sender_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
