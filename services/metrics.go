package services

import "github.com/prometheus/client_golang/prometheus"

var (
	pointsAwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_awarded_total",
			Help: "Points awarded through the ledger, by activity kind",
		},
		[]string{"activity_kind"},
	)
	badgesAwardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Badges awarded to users",
		},
	)
	achievementsUnlockedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Achievements unlocked, by kind",
		},
		[]string{"kind"},
	)
	leaderboardRecomputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leaderboard_recompute_seconds",
			Help:    "Duration of leaderboard recomputation passes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scope", "period"},
	)
)

// InitMetrics registers the engine metrics. Call once from main.go.
func InitMetrics() {
	prometheus.MustRegister(pointsAwardedTotal)
	prometheus.MustRegister(badgesAwardedTotal)
	prometheus.MustRegister(achievementsUnlockedTotal)
	prometheus.MustRegister(leaderboardRecomputeDuration)
}
