package metrics

import (
	"sort"
	"sync"
	"time"
)

// Monitor accumulates the time spent on each phase of a run.
type Monitor struct {
	m      sync.Mutex
	phases map[string]time.Duration
	order  []string
}

func NewMonitor() *Monitor {
	return &Monitor{
		phases: make(map[string]time.Duration),
	}
}

func (p *Monitor) AddPhase(name string, d time.Duration) {
	p.m.Lock()
	defer p.m.Unlock()
	if _, ok := p.phases[name]; !ok {
		p.order = append(p.order, name)
	}
	p.phases[name] += d
}

func (p *Monitor) Phase(name string) time.Duration {
	p.m.Lock()
	defer p.m.Unlock()
	return p.phases[name]
}

// Phases returns the phase names in the order they were first recorded.
func (p *Monitor) Phases() []string {
	p.m.Lock()
	defer p.m.Unlock()
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Slowest returns the phase with the highest accumulated time.
func (p *Monitor) Slowest() (string, time.Duration) {
	p.m.Lock()
	defer p.m.Unlock()
	names := make([]string, 0, len(p.phases))
	for n := range p.phases {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return p.phases[names[i]] > p.phases[names[j]] })
	if len(names) == 0 {
		return "", 0
	}
	return names[0], p.phases[names[0]]
}
