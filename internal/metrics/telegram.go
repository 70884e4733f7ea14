package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/m3rciful/leadbot/core/telegram/sender"
)

func init() { register(handlerTotal, handlerSeconds, sendTotal, buildInfo) }

var (
	handlerTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbot_handler_total",
			Help: "Handled Telegram updates, by handler and status.",
		},
		[]string{"handler", "status"},
	)

	handlerSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadbot_handler_seconds",
			Help:    "Telegram handler latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	sendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbot_send_total",
			Help: "Finished outbound jobs, by action and error kind (none on success).",
		},
		[]string{"action", "kind"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leadbot_build_info",
			Help: "A constant metric with labels for version and commit hash.",
		},
		[]string{"version", "commit"},
	)
)

// ObserveHandler matches router.Observer.
func ObserveHandler(handler, status string, took time.Duration) {
	handlerTotal.WithLabelValues(norm(handler), norm(status)).Inc()
	handlerSeconds.WithLabelValues(norm(handler)).Observe(took.Seconds())
}

// ObserveSend matches sender.Options.OnResult.
func ObserveSend(r sender.Result) {
	sendTotal.WithLabelValues(norm(r.Action), norm(r.Kind)).Inc()
}

// SetBuildInfo publishes the running build.
func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}

// RegisterDispatcher exports the outbound dispatcher counters. Calling it
// again with another dispatcher keeps the first registration.
func RegisterDispatcher(reg prometheus.Registerer, d *sender.Dispatcher) error {
	cs := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "leadbot_sender_sent_total",
			Help: "Outbound Telegram calls that succeeded.",
		}, func() float64 { return float64(d.SentCount()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "leadbot_sender_errors_total",
			Help: "Outbound Telegram calls that failed after retries.",
		}, func() float64 { return float64(d.ErrorCount()) }),
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
