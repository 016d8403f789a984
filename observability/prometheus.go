// Package observability provides optional adapters that subscribe to a
// Pipeline's event stream and record metrics/traces without ever touching
// the dispatcher or Context directly. Metric naming follows a
// pidl_<subject>_executions_total / *_duration_seconds convention, split
// by task and by action.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pidl-project/pidl/pevent"
)

// PrometheusMetrics records task and action execution counts and
// durations by subscribing to a Pipeline's EventEmitter.
type PrometheusMetrics struct {
	taskExecutions   *prometheus.CounterVec
	taskDuration     *prometheus.HistogramVec
	actionExecutions *prometheus.CounterVec
	actionDuration   *prometheus.HistogramVec

	taskStarted map[string]time.Time
}

// NewPrometheusMetrics constructs the metric vectors and registers them
// with registry. A nil registry falls back to prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		taskExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pidl_task_executions_total",
			Help: "Number of task runs, by task name.",
		}, []string{"task"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "pidl_task_execution_duration_seconds",
			Help: "Task run duration in seconds, by task name.",
		}, []string{"task"}),
		actionExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pidl_action_executions_total",
			Help: "Number of action runs, by action string form.",
		}, []string{"action"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "pidl_action_execution_duration_seconds",
			Help: "Action run duration in seconds, by action string form.",
		}, []string{"action"}),
		taskStarted: make(map[string]time.Time),
	}

	registry.MustRegister(m.taskExecutions, m.taskDuration, m.actionExecutions, m.actionDuration)
	return m
}

// Attach subscribes this collector to every pipeline/task/action event it
// cares about.
func (m *PrometheusMetrics) Attach(emitter *pevent.Emitter) {
	emitter.On("task_start", m.onTaskStart)
	emitter.On("task_end", m.onTaskEnd)
	emitter.On("action_start", m.onActionStart)
	emitter.On("action_end", m.onActionEnd)
}

func (m *PrometheusMetrics) onTaskStart(event string, args ...interface{}) {
	name, _ := args[0].(string)
	m.taskStarted[name] = time.Now()
}

func (m *PrometheusMetrics) onTaskEnd(event string, args ...interface{}) {
	name, _ := args[0].(string)
	m.taskExecutions.WithLabelValues(name).Inc()

	var durationMs int
	if len(args) > 1 {
		durationMs, _ = args[1].(int)
	}
	m.taskDuration.WithLabelValues(name).Observe(float64(durationMs) / 1000.0)
	delete(m.taskStarted, name)
}

func (m *PrometheusMetrics) onActionStart(event string, args ...interface{}) {
	// action_start carries no duration; recorded fully at action_end.
}

func (m *PrometheusMetrics) onActionEnd(event string, args ...interface{}) {
	action, _ := args[0].(string)
	m.actionExecutions.WithLabelValues(action).Inc()

	var durationMs int
	if len(args) > 1 {
		durationMs, _ = args[1].(int)
	}
	m.actionDuration.WithLabelValues(action).Observe(float64(durationMs) / 1000.0)
}
