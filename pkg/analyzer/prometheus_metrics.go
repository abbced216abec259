package analyzer

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/migalabs/valscore/pkg/metrics"
	"github.com/migalabs/valscore/pkg/utils"
)

var (
	modName    = "analyzer"
	modDetails = "general metrics about the scoring run"

	registerOnce sync.Once

	PhaseSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: strings.ToLower(utils.CliName),
		Subsystem: modName,
		Name:      "phase_seconds",
		Help:      "Seconds spent on each phase of the run",
	}, []string{"phase"})
	BlocksScanned = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: strings.ToLower(utils.CliName),
		Subsystem: modName,
		Name:      "blocks_scanned",
		Help:      "The number of blocks whose proposer was resolved",
	})
	BlocksSkipped = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: strings.ToLower(utils.CliName),
		Subsystem: modName,
		Name:      "blocks_skipped",
		Help:      "The number of blocks dropped after failing requests",
	})
	EventsIndexed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: strings.ToLower(utils.CliName),
		Subsystem: modName,
		Name:      "events_indexed",
		Help:      "The number of reward events folded into the ledger",
	})
	FailedLogWindows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: strings.ToLower(utils.CliName),
		Subsystem: modName,
		Name:      "failed_log_windows",
		Help:      "The number of log windows dropped after failing requests",
	})
	DegradedSnapshots = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: strings.ToLower(utils.CliName),
		Subsystem: modName,
		Name:      "degraded_snapshots",
		Help:      "The number of stake/boost snapshots replaced by zero",
	})
)

func (s *ScoreAnalyzer) GetPrometheusMetrics() *metrics.MetricsModule {
	metricsMod := metrics.NewMetricsModule(
		modName,
		modDetails,
	)
	// compose all the metrics
	metricsMod.AddIndvMetric(s.getPhaseMetrics())
	metricsMod.AddIndvMetric(s.getProgressMetrics())

	return metricsMod
}

func (s *ScoreAnalyzer) getPhaseMetrics() *metrics.IndvMetrics {
	initFn := func() error {
		registerOnce.Do(registerCollectors)
		return nil
	}

	updateFn := func() (interface{}, error) {
		durations := make(map[string]float64)
		for _, phase := range s.monitor.Phases() {
			d := s.monitor.Phase(phase).Seconds()
			PhaseSeconds.WithLabelValues(phase).Set(d)
			durations[phase] = d
		}
		return durations, nil
	}

	indvMetr, err := metrics.NewIndvMetrics(
		"phase_seconds",
		initFn,
		updateFn,
	)
	if err != nil {
		log.Error(errors.Wrap(err, "unable to init phase_seconds"))
		return nil
	}
	return indvMetr
}

func (s *ScoreAnalyzer) getProgressMetrics() *metrics.IndvMetrics {
	initFn := func() error {
		registerOnce.Do(registerCollectors)
		return nil
	}

	updateFn := func() (interface{}, error) {
		stats := s.indexer.Stats()
		BlocksScanned.Set(float64(s.scanner.Scanned()))
		BlocksSkipped.Set(float64(s.scanner.Skipped()))
		EventsIndexed.Set(float64(stats.Events))
		FailedLogWindows.Set(float64(stats.FailedWindows))
		DegradedSnapshots.Set(float64(s.collector.Degraded()))
		return map[string]interface{}{
			"phase":   s.Phase(),
			"scanned": s.scanner.Scanned(),
			"events":  stats.Events,
		}, nil
	}

	indvMetr, err := metrics.NewIndvMetrics(
		"progress",
		initFn,
		updateFn,
	)
	if err != nil {
		log.Error(errors.Wrap(err, "unable to init progress"))
		return nil
	}
	return indvMetr
}

func registerCollectors() {
	prometheus.MustRegister(PhaseSeconds)
	prometheus.MustRegister(BlocksScanned)
	prometheus.MustRegister(BlocksSkipped)
	prometheus.MustRegister(EventsIndexed)
	prometheus.MustRegister(FailedLogWindows)
	prometheus.MustRegister(DegradedSnapshots)
}
