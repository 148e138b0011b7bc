// Package metrics 将会话状态导出为 Prometheus 指标
package metrics

import (
	"net/http"

	"github.com/gonewx/rallyx/pkg/components"
	"github.com/gonewx/rallyx/pkg/game"
	"github.com/gonewx/rallyx/pkg/systems"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rallyx"

// Recorder 会话观察者，维护一份独立的 Prometheus 注册表
type Recorder struct {
	registry *prometheus.Registry

	difficulty prometheus.Gauge
	tension    prometheus.Gauge
	flow       prometheus.Gauge
	comboChain prometheus.Gauge
	score      prometheus.Gauge
	lives      prometheus.Gauge
	enemySpeed prometheus.Gauge

	feverActivations prometheus.Counter
	actions          *prometheus.CounterVec
	milestones       *prometheus.CounterVec
	randomEvents     *prometheus.CounterVec
	deaths           *prometheus.CounterVec
}

var _ game.Observer = (*Recorder)(nil)

// NewRecorder 创建记录器
// withRuntime 为 true 时同时注册 Go 运行时和进程指标
func NewRecorder(withRuntime bool) *Recorder {
	registry := prometheus.NewRegistry()
	if withRuntime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(registry)

	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	return &Recorder{
		registry:   registry,
		difficulty: gauge("difficulty_multiplier", "Current adaptive difficulty multiplier."),
		tension:    gauge("tension_level", "Player tension level (0-100)."),
		flow:       gauge("flow_state", "Player flow state (0-100)."),
		comboChain: gauge("combo_chain", "Current combo chain length."),
		score:      gauge("score", "Current session score."),
		lives:      gauge("lives", "Remaining lives."),
		enemySpeed: gauge("effective_enemy_speed", "Enemy speed after mode and AI modifiers."),
		feverActivations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fever_activations_total",
			Help:      "Number of times fever mode was entered.",
		}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "combo_actions_total",
			Help:      "Registered combo actions by type.",
		}, []string{"action"}),
		milestones: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "combo_milestones_total",
			Help:      "Combo milestones reached by name.",
		}, []string{"milestone"}),
		randomEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "random_events_total",
			Help:      "Chaos random events injected by id.",
		}, []string{"event"}),
		deaths: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deaths_total",
			Help:      "Player deaths by cause.",
		}, []string{"cause"}),
	}
}

// Registry 返回注册表
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler 返回 /metrics 处理器
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// OnTick 实现 game.Observer
func (r *Recorder) OnTick(snap game.Snapshot) {
	r.difficulty.Set(snap.Difficulty.CurrentDifficultyMultiplier)
	r.tension.Set(snap.Difficulty.TensionLevel)
	r.flow.Set(snap.Difficulty.FlowState)
	r.comboChain.Set(float64(snap.Combo.ChainCount))
	r.score.Set(float64(snap.Score))
	r.lives.Set(float64(snap.Lives))
	r.enemySpeed.Set(snap.Effective.EnemySpeed)
}

// OnCombo 实现 game.Observer
func (r *Recorder) OnCombo(result systems.ComboResult) {
	r.actions.WithLabelValues(string(result.Action)).Inc()
	r.comboChain.Set(float64(result.ChainCount))
	if result.FeverActivated {
		r.feverActivations.Inc()
	}
	if result.Milestone != nil {
		r.milestones.WithLabelValues(result.Milestone.Name).Inc()
	}
}

// OnRandomEvent 实现 game.Observer
func (r *Recorder) OnRandomEvent(id components.RandomEventID) {
	r.randomEvents.WithLabelValues(string(id)).Inc()
}

// OnDeath 实现 game.Observer
func (r *Recorder) OnDeath(cause components.DeathCause) {
	r.deaths.WithLabelValues(string(cause)).Inc()
}
