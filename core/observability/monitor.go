package observability

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Bottleneck thresholds
const (
	SlowRouteThreshold = 100 * time.Millisecond
	ErrorRateThreshold = 0.05
)

// latency bucket upper bounds; the last bucket is open-ended
var bucketBounds = [...]time.Duration{
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	5 * time.Second,
	10 * time.Second,
}

// Monitor aggregates per-route request metrics with lock-free counters
type Monitor struct {
	enabled atomic.Bool
	routes  sync.Map // route -> *routeMetrics
	started time.Time
	total   atomic.Uint64
	errors  atomic.Uint64
}

type routeMetrics struct {
	count   atomic.Uint64
	errors  atomic.Uint64
	total   atomic.Uint64
	min     atomic.Uint64
	max     atomic.Uint64
	buckets [len(bucketBounds) + 1]atomic.Uint64
}

// RouteStats is a point-in-time copy of one route's metrics
type RouteStats struct {
	Route   string        `json:"route"`
	Count   uint64        `json:"count"`
	Errors  uint64        `json:"errors"`
	Avg     time.Duration `json:"avg_ns"`
	Min     time.Duration `json:"min_ns"`
	Max     time.Duration `json:"max_ns"`
	Buckets []uint64      `json:"latency_buckets"`
}

// Snapshot is a point-in-time copy of every route's metrics
type Snapshot struct {
	Uptime   time.Duration `json:"uptime_ns"`
	Requests uint64        `json:"requests"`
	Errors   uint64        `json:"errors"`
	Routes   []RouteStats  `json:"routes"`
}

// Bottleneck represents a performance issue
type Bottleneck struct {
	Type     string  `json:"type"`
	Location string  `json:"location"`
	Severity int     `json:"severity"`
	Impact   float64 `json:"impact"`
	Details  string  `json:"details"`
}

// NewMonitor creates an enabled monitor
func NewMonitor() *Monitor {
	m := &Monitor{started: time.Now()}
	m.enabled.Store(true)
	return m
}

// SetEnabled turns recording on or off
func (m *Monitor) SetEnabled(on bool) {
	m.enabled.Store(on)
}

// RecordRequest records one request against route
func (m *Monitor) RecordRequest(route string, duration time.Duration, isError bool) {
	if !m.enabled.Load() {
		return
	}

	val, ok := m.routes.Load(route)
	if !ok {
		fresh := &routeMetrics{}
		fresh.min.Store(math.MaxUint64)
		val, _ = m.routes.LoadOrStore(route, fresh)
	}
	rm := val.(*routeMetrics)

	d := uint64(duration)
	rm.count.Add(1)
	rm.total.Add(d)
	if isError {
		rm.errors.Add(1)
		m.errors.Add(1)
	}
	updateMin(&rm.min, d)
	updateMax(&rm.max, d)
	rm.buckets[bucketIndex(duration)].Add(1)

	m.total.Add(1)
}

func updateMin(v *atomic.Uint64, d uint64) {
	for {
		cur := v.Load()
		if d >= cur {
			return
		}
		if v.CompareAndSwap(cur, d) {
			return
		}
	}
}

func updateMax(v *atomic.Uint64, d uint64) {
	for {
		cur := v.Load()
		if d <= cur {
			return
		}
		if v.CompareAndSwap(cur, d) {
			return
		}
	}
}

func bucketIndex(d time.Duration) int {
	for i, bound := range bucketBounds {
		if d < bound {
			return i
		}
	}
	return len(bucketBounds)
}

// Snapshot returns the current metrics ordered by route
func (m *Monitor) Snapshot() Snapshot {
	s := Snapshot{
		Uptime:   time.Since(m.started),
		Requests: m.total.Load(),
		Errors:   m.errors.Load(),
		Routes:   make([]RouteStats, 0),
	}

	m.routes.Range(func(key, value any) bool {
		rm := value.(*routeMetrics)
		rs := RouteStats{
			Route:   key.(string),
			Count:   rm.count.Load(),
			Errors:  rm.errors.Load(),
			Min:     time.Duration(rm.min.Load()),
			Max:     time.Duration(rm.max.Load()),
			Buckets: make([]uint64, len(rm.buckets)),
		}
		if rs.Min < 0 {
			rs.Min = 0
		}
		if rs.Count > 0 {
			rs.Avg = time.Duration(rm.total.Load() / rs.Count)
		}
		for i := range rm.buckets {
			rs.Buckets[i] = rm.buckets[i].Load()
		}
		s.Routes = append(s.Routes, rs)
		return true
	})

	sort.Slice(s.Routes, func(i, j int) bool { return s.Routes[i].Route < s.Routes[j].Route })
	return s
}

// Bottlenecks inspects the current metrics for slow or failing routes
func (m *Monitor) Bottlenecks() []Bottleneck {
	out := make([]Bottleneck, 0)

	for _, rs := range m.Snapshot().Routes {
		if rs.Count == 0 {
			continue
		}

		if rs.Avg > SlowRouteThreshold {
			out = append(out, Bottleneck{
				Type:     "latency",
				Location: rs.Route,
				Severity: 8,
				Impact:   float64(rs.Avg) / float64(SlowRouteThreshold) * 100,
				Details:  fmt.Sprintf("High latency (%v avg)", rs.Avg),
			})
		}

		rate := float64(rs.Errors) / float64(rs.Count)
		if rs.Errors > 0 && rate > ErrorRateThreshold {
			out = append(out, Bottleneck{
				Type:     "errors",
				Location: rs.Route,
				Severity: 10,
				Impact:   rate * 100,
				Details:  fmt.Sprintf("%.1f%% error rate", rate*100),
			})
		}
	}

	return out
}
