package metrics

import (
	"github.com/pkg/errors"
)

// IndvMetrics is a single metric with its registration and refresh functions.
type IndvMetrics struct {
	name     string
	initFn   func() error
	updateFn func() (interface{}, error)
}

func NewIndvMetrics(name string, initFn func() error, updateFn func() (interface{}, error)) (*IndvMetrics, error) {
	if initFn == nil || updateFn == nil {
		return nil, errors.Errorf("metric %s needs init and update functions", name)
	}
	return &IndvMetrics{
		name:     name,
		initFn:   initFn,
		updateFn: updateFn,
	}, nil
}

func (m *IndvMetrics) Name() string {
	return m.name
}

func (m *IndvMetrics) Init() error {
	return m.initFn()
}

func (m *IndvMetrics) Update() (interface{}, error) {
	return m.updateFn()
}

// MetricsModule groups the metrics of a package.
type MetricsModule struct {
	name        string
	details     string
	indvMetrics []*IndvMetrics
}

func NewMetricsModule(name, details string) *MetricsModule {
	return &MetricsModule{
		name:        name,
		details:     details,
		indvMetrics: make([]*IndvMetrics, 0),
	}
}

func (m *MetricsModule) Name() string {
	return m.name
}

func (m *MetricsModule) AddIndvMetric(indv *IndvMetrics) error {
	if indv == nil {
		return errors.Errorf("nil metric added to module %s", m.name)
	}
	m.indvMetrics = append(m.indvMetrics, indv)
	return nil
}

func (m *MetricsModule) Init() error {
	for _, indv := range m.indvMetrics {
		if err := indv.Init(); err != nil {
			return errors.Wrapf(err, "unable to init metric %s/%s", m.name, indv.Name())
		}
	}
	return nil
}

// Update refreshes every metric and returns their summaries keyed by name.
func (m *MetricsModule) Update() map[string]interface{} {
	summary := make(map[string]interface{}, len(m.indvMetrics))
	for _, indv := range m.indvMetrics {
		val, err := indv.Update()
		if err != nil {
			log.Warnf("unable to update metric %s/%s: %s", m.name, indv.Name(), err)
			continue
		}
		summary[indv.Name()] = val
	}
	return summary
}
