package listmodel

import (
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
)

// QueryMetrics is a point-in-time view of a query's request statistics.
type QueryMetrics struct {
	Executions    int
	NetworkCalls  int
	Failures      int
	Coalesced     int
	StorageHits   int
	LastRoundTrip time.Duration
	// AverageRoundTrip is a moving average over the most recent network calls.
	AverageRoundTrip time.Duration
}

type queryMonitor struct {
	sync.Mutex
	roundTrip     *movingaverage.MovingAverage
	executions    int
	networkCalls  int
	failures      int
	coalesced     int
	storageHits   int
	lastRoundTrip time.Duration
}

func newQueryMonitor() *queryMonitor {
	return &queryMonitor{
		roundTrip: movingaverage.New(5),
	}
}

func (m *queryMonitor) Executed() {
	m.Lock()
	defer m.Unlock()
	m.executions++
}

func (m *queryMonitor) Coalesced() {
	m.Lock()
	defer m.Unlock()
	m.coalesced++
}

func (m *queryMonitor) StorageHit() {
	m.Lock()
	defer m.Unlock()
	m.storageHits++
}

func (m *queryMonitor) RoundTrip(dur time.Duration, err error) {
	m.Lock()
	defer m.Unlock()

	m.networkCalls++
	if err != nil {
		m.failures++
		return
	}
	m.lastRoundTrip = dur
	m.roundTrip.Add(float64(dur/time.Microsecond) / 1000.0)
}

func (m *queryMonitor) Snapshot() QueryMetrics {
	m.Lock()
	defer m.Unlock()

	avg := time.Duration(0)
	if m.networkCalls > m.failures {
		avg = time.Duration(m.roundTrip.Avg() * float64(time.Millisecond))
	}
	return QueryMetrics{
		Executions:       m.executions,
		NetworkCalls:     m.networkCalls,
		Failures:         m.failures,
		Coalesced:        m.coalesced,
		StorageHits:      m.storageHits,
		LastRoundTrip:    m.lastRoundTrip,
		AverageRoundTrip: avg,
	}
}
