package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — метрики StageGate в собственном registry.
//
// Gate — короткоживущий процесс, поэтому метрики пишутся в textfile
// для node_exporter (WriteTextfile). Monitor отдаёт их по /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	stageResults   *prometheus.CounterVec
	scriptDuration *prometheus.HistogramVec
	faults         *prometheus.CounterVec
	chainStatus    *prometheus.GaugeVec
}

// NewMetrics создаёт registry и регистрирует метрики.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		stageResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagegate_stage_results_total",
			Help: "Gate invocations by stage and final state",
		}, []string{"stage", "state"}),
		scriptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stagegate_script_duration_seconds",
			Help:    "Duration of stage script execution by the simulation engine",
			Buckets: []float64{1, 10, 60, 300, 900, 3600, 4 * 3600, 12 * 3600, 48 * 3600},
		}, []string{"stage"}),
		faults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stagegate_faults_total",
			Help: "Fatal conditions raised during gate invocations by kind",
		}, []string{"kind"}),
		chainStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stagegate_chain_status",
			Help: "Observed stage status (0 missing, 1 pending, 2 succeeded, 3 failed)",
		}, []string{"workflow", "stage"}),
	}
}

// StageResult увеличивает счётчик финальных состояний.
func (m *Metrics) StageResult(stage, state string) {
	if m == nil {
		return
	}
	m.stageResults.WithLabelValues(stage, state).Inc()
}

// ScriptDuration фиксирует длительность выполнения скрипта.
func (m *Metrics) ScriptDuration(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.scriptDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Fault увеличивает счётчик fatal-условий.
func (m *Metrics) Fault(kind string) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(kind).Inc()
}

// ChainStatus выставляет наблюдаемый статус этапа.
func (m *Metrics) ChainStatus(workflow, stage string, value float64) {
	if m == nil {
		return
	}
	m.chainStatus.WithLabelValues(workflow, stage).Set(value)
}

// WriteTextfile записывает метрики в формате textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
