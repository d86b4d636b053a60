package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	clientErrors    uint64
	errorRequests   uint64
	totalDurationMs uint64
	launches        uint64
	submissions     uint64
	advances        uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	switch {
	case status >= 500:
		atomic.AddUint64(&c.errorRequests, 1)
	case status >= 400:
		atomic.AddUint64(&c.clientErrors, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordLaunch() {
	atomic.AddUint64(&c.launches, 1)
}

// RecordSubmission counts a saved submission and whether it moved the document.
func (c *Collector) RecordSubmission(advanced bool) {
	atomic.AddUint64(&c.submissions, 1)
	if advanced {
		atomic.AddUint64(&c.advances, 1)
	}
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":     total,
		"clientErrorsTotal": atomic.LoadUint64(&c.clientErrors),
		"errorsTotal":       atomic.LoadUint64(&c.errorRequests),
		"avgDurationMs":     avg,
		"totalDurationMs":   totalMs,
		"launchesTotal":     atomic.LoadUint64(&c.launches),
		"submissionsTotal":  atomic.LoadUint64(&c.submissions),
		"advancesTotal":     atomic.LoadUint64(&c.advances),
	}
}
