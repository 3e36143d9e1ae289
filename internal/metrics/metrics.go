package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AICalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "selserver", Name: "ai_calls_total", Help: "AI gateway calls by outcome",
	}, []string{"outcome"})
	AIDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "selserver", Name: "ai_call_seconds", Help: "AI gateway call latency",
		Buckets: prometheus.DefBuckets,
	})
	Submissions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "selserver", Name: "submissions_total", Help: "Student answers submitted",
	})
)

func init() {
	prometheus.MustRegister(AICalls, AIDuration, Submissions)
}

func Handler() http.Handler { return promhttp.Handler() }

// ObserveAICall records one gateway round trip.
func ObserveAICall(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	AICalls.WithLabelValues(outcome).Inc()
	AIDuration.Observe(d.Seconds())
}
