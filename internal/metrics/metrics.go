package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Interactive like flow.
var (
	LikeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "likebot_like_requests_total",
		Help: "Interactive like requests by outcome",
	}, []string{"outcome"})

	RateLimitHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "likebot_rate_limit_hits_total",
		Help: "Rate limit rejections by kind (quota or cooldown)",
	}, []string{"kind"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "likebot_upstream_duration_seconds",
		Help:    "Upstream like API call duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"caller"})
)

// Replay sweep.
var (
	ReplaySweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "likebot_replay_sweep_duration_seconds",
		Help:    "Duration of each auto-like replay sweep",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})

	ReplayEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "likebot_replay_entries_total",
		Help: "Replay worklist entries processed by result",
	}, []string{"result"})
)
