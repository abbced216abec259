package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	log = logrus.WithField(
		"module", "prometheus",
	)
	updateInterval = 5 * time.Second
)

// PrometheusMetrics exposes the registered modules on /metrics while the run lasts.
type PrometheusMetrics struct {
	ctx    context.Context
	cancel context.CancelFunc
	host   string
	port   int

	m       sync.Mutex
	modules []*MetricsModule
	server  *http.Server
	wg      sync.WaitGroup
}

func NewPrometheusMetrics(ctx context.Context, host string, port int) *PrometheusMetrics {
	mCtx, cancel := context.WithCancel(ctx)
	return &PrometheusMetrics{
		ctx:     mCtx,
		cancel:  cancel,
		host:    host,
		port:    port,
		modules: make([]*MetricsModule, 0),
	}
}

func (p *PrometheusMetrics) AddMetricsModule(mod *MetricsModule) {
	if mod == nil {
		return
	}
	p.m.Lock()
	defer p.m.Unlock()
	p.modules = append(p.modules, mod)
}

// Start registers every module and serves the exporter. A port of 0 disables the exporter.
func (p *PrometheusMetrics) Start() error {
	if p.port <= 0 {
		log.Debug("prometheus exporter disabled")
		return nil
	}
	p.m.Lock()
	for _, mod := range p.modules {
		if err := mod.Init(); err != nil {
			p.m.Unlock()
			return err
		}
	}
	p.m.Unlock()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	p.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", p.host, p.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		log.Infof("serving prometheus metrics at %s/metrics", p.server.Addr)
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("prometheus exporter stopped: %s", err)
		}
	}()
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(updateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.update()
			}
		}
	}()
	return nil
}

func (p *PrometheusMetrics) update() {
	p.m.Lock()
	defer p.m.Unlock()
	for _, mod := range p.modules {
		summary := mod.Update()
		log.WithField("metrics", mod.Name()).Tracef("%v", summary)
	}
}

func (p *PrometheusMetrics) Close() {
	p.cancel()
	if p.server != nil {
		p.update()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.server.Shutdown(shutdownCtx)
	}
	p.wg.Wait()
}
