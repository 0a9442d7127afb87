package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gamification"

// Recorder counts award outcomes in its own Prometheus registry.
type Recorder struct {
	registry      *prometheus.Registry
	points        *prometheus.CounterVec
	awards        *prometheus.CounterVec
	unlocks       *prometheus.CounterVec
	levelUps      *prometheus.CounterVec
	challenges    *prometheus.CounterVec
	rewardsClaims *prometheus.CounterVec
}

// NewRecorder registers the service counters plus the Go and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Points credited to users, by ledger source.",
		}, []string{"source"}),
		awards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "point_events_total",
			Help:      "Point ledger rows written, by ledger source.",
		}, []string{"source"}),
		unlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked, by achievement id.",
		}, []string{"achievement"}),
		levelUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Level ups, by the level reached.",
		}, []string{"level"}),
		challenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_completed_total",
			Help:      "Challenges completed, by period.",
		}, []string{"period"}),
		rewardsClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_claimed_total",
			Help:      "Challenge and milestone rewards claimed.",
		}, []string{"kind"}),
	}

	r.registry.MustRegister(
		r.points,
		r.awards,
		r.unlocks,
		r.levelUps,
		r.challenges,
		r.rewardsClaims,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) PointsAwarded(source string, points int) {
	r.points.WithLabelValues(source).Add(float64(points))
	r.awards.WithLabelValues(source).Inc()
}

func (r *Recorder) AchievementUnlocked(id string) {
	r.unlocks.WithLabelValues(id).Inc()
}

func (r *Recorder) LevelUp(level int) {
	r.levelUps.WithLabelValues(strconv.Itoa(level)).Inc()
}

func (r *Recorder) ChallengeCompleted(period string) {
	r.challenges.WithLabelValues(period).Inc()
}

func (r *Recorder) RewardClaimed(kind string) {
	r.rewardsClaims.WithLabelValues(kind).Inc()
}

// Registry exposes the underlying registry for additional collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
