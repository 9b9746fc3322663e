// Package profiler provides lightweight runtime diagnostics for the tracking
// loop: per-operation timing and periodic metric reports. It is an optional
// aid; the loop's results are identical with it disabled.
package profiler

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MetricsCollector supplies custom metrics for the periodic report.
type MetricsCollector interface {
	CollectMetrics() map[string]float64
}

// Options configures the profiler.
type Options struct {
	// ReportInterval is how often a report is logged. Default 2s.
	ReportInterval time.Duration
	// Log receives the reports. Default is the standard logger.
	Log *logrus.Logger
}

// opStats accumulates timing for one named operation.
type opStats struct {
	count int64
	total time.Duration
	max   time.Duration
}

// Profiler tracks operation timings and emits periodic reports.
type Profiler struct {
	mu         sync.Mutex
	ops        map[string]*opStats
	collectors []MetricsCollector

	interval time.Duration
	log      *logrus.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a stopped profiler; call Start to begin reporting.
func New(opts Options) *Profiler {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = 2 * time.Second
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Profiler{
		ops:      make(map[string]*opStats),
		interval: opts.ReportInterval,
		log:      opts.Log,
	}
}

// AddCollector registers a custom metrics source.
func (p *Profiler) AddCollector(c MetricsCollector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collectors = append(p.collectors, c)
}

// StartOperation begins timing an operation. The returned function records
// the elapsed duration when called.
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		p.mu.Lock()
		defer p.mu.Unlock()
		stats, ok := p.ops[name]
		if !ok {
			stats = &opStats{}
			p.ops[name] = stats
		}
		stats.count++
		stats.total += elapsed
		if elapsed > stats.max {
			stats.max = elapsed
		}
	}
}

// Start launches the reporting goroutine.
func (p *Profiler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.report()
			}
		}
	}()
}

// Stop ends reporting and waits for the goroutine to exit.
func (p *Profiler) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.wg.Wait()
}

// report logs one snapshot of operation timings, collector metrics, and the
// process-level numbers that matter for a long-running CV workload.
func (p *Profiler) report() {
	fields := logrus.Fields{}

	p.mu.Lock()
	for name, stats := range p.ops {
		if stats.count == 0 {
			continue
		}
		avg := stats.total / time.Duration(stats.count)
		fields[name+"_avg_ms"] = float64(avg.Microseconds()) / 1000
		fields[name+"_max_ms"] = float64(stats.max.Microseconds()) / 1000
		fields[name+"_per_s"] = float64(stats.count) / p.interval.Seconds()
		*stats = opStats{}
	}
	collectors := make([]MetricsCollector, len(p.collectors))
	copy(collectors, p.collectors)
	p.mu.Unlock()

	for _, c := range collectors {
		for k, v := range c.CollectMetrics() {
			fields[k] = v
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fields["heap_alloc_mb"] = float64(m.HeapAlloc) / 1024 / 1024
	fields["goroutines"] = runtime.NumGoroutine()

	p.log.WithFields(fields).Info("runtime report")
}
