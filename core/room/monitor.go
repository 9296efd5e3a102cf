package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/DailyDoseOfWezs/Schedulink/core"
)

var (
	refreshCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schedulink",
		Subsystem: "room",
		Name:      "monitor_refreshes_total",
		Help:      "Completed room board refreshes.",
	})
	refreshErrCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schedulink",
		Subsystem: "room",
		Name:      "monitor_refresh_errors_total",
		Help:      "Failed room board refreshes.",
	})
)

// Monitor polls the full Room list on a fixed interval and replaces its local
// snapshot wholesale; no delta computation, no conflict detection. This is the
// deliberate substitute for a push-based realtime channel. A hung fetch stalls
// only its own cycle, never the ticker: each tick fetches in its own goroutine
// and a late result is discarded if a newer one has already landed.
type Monitor struct {
	svc      ServiceInterface
	interval time.Duration
	logger   core.Logger

	mu    sync.RWMutex
	rooms []Room
	gen   uint64 // generation of the newest issued fetch
	seen  uint64 // generation of the newest applied result
}

func NewMonitor(svc ServiceInterface, conf *core.Config, logger core.Logger) *Monitor {
	return &Monitor{
		svc:      svc,
		interval: conf.Polling.RoomRefreshInterval,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. An immediate first refresh is issued so
// viewers do not wait a full interval for data.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

// Snapshot returns a copy of the last fetched room list.
func (m *Monitor) Snapshot() []Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rooms := make([]Room, len(m.rooms))
	copy(rooms, m.rooms)
	return rooms
}

// Grouped returns the snapshot grouped per building.
func (m *Monitor) Grouped() []BuildingGroup {
	return GroupByBuilding(m.Snapshot())
}

func (m *Monitor) refresh(ctx context.Context) {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	go func() {
		rooms, err := m.svc.Query(ctx)
		if err != nil {
			refreshErrCount.Inc()
			if m.logger != nil {
				m.logger.Debug(fmt.Sprintf("room monitor refresh: %v", err))
			}
			return
		}
		if ctx.Err() != nil {
			return // view torn down; discard
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if gen < m.seen {
			return // a newer result already landed
		}
		m.seen = gen
		m.rooms = rooms
		refreshCount.Inc()
	}()
}
