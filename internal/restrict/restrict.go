// Package restrict implements the Restriction Manager: the single
// authority tracking alive-host count and gating publication
// (max_scan_hosts) and emission (max_alive_hosts).
package restrict

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"alivescan/internal/queue"
)

// Limits are the two configured caps. Zero means "no cap" and is raised to
// effective infinity (math.MaxInt) by New.
type Limits struct {
	MaxScanHosts  int
	MaxAliveHosts int
}

// Manager is the Restriction Manager. observe is called from the sniffer
// goroutine only; aliveCapReached is read from the emitter goroutine
// without a lock, which is safe because it is a latching boolean and a
// delayed stop is an acceptable outcome (spec.md §4.4 concurrency note).
type Manager struct {
	q queue.Queue

	maxScanHosts  int
	maxAliveHosts int

	aliveCount      int
	scanCapReached  bool
	aliveCapReached atomic.Bool

	suppressed map[string]struct{}
}

// New builds a Manager. When both limits are set (positive) and
// maxAliveHosts is smaller than maxScanHosts, it is raised to match, per the
// Restrictions invariant in the data model. A limit of 0 means unlimited; a
// set maxAliveHosts with an unlimited maxScanHosts is kept as configured.
func New(q queue.Queue, lim Limits) *Manager {
	const unlimited = int(^uint(0) >> 1)

	if lim.MaxAliveHosts > 0 && lim.MaxScanHosts > 0 && lim.MaxAliveHosts < lim.MaxScanHosts {
		lim.MaxAliveHosts = lim.MaxScanHosts
	}

	maxScan := lim.MaxScanHosts
	if maxScan <= 0 {
		maxScan = unlimited
	}
	maxAlive := lim.MaxAliveHosts
	if maxAlive <= 0 {
		maxAlive = unlimited
	}

	return &Manager{
		q:             q,
		maxScanHosts:  maxScan,
		maxAliveHosts: maxAlive,
		suppressed:    make(map[string]struct{}),
	}
}

// AliveCapReached reports whether max_alive_hosts has been hit. Safe to
// call from any goroutine.
func (m *Manager) AliveCapReached() bool { return m.aliveCapReached.Load() }

// ScanCapReached reports whether max_scan_hosts has been hit. Only
// meaningful after the sniffer goroutine has joined; during the scan it is
// private to the sniffer goroutine.
func (m *Manager) ScanCapReached() bool { return m.scanCapReached }

// AliveCount returns how many times Observe has been called. Observe does
// not deduplicate; the sniffer only calls it for addresses it has not seen
// before. Only meaningful after join, for the same reason as ScanCapReached.
func (m *Manager) AliveCount() int { return m.aliveCount }

// Suppressed returns the set of alive-but-unpublished hosts, keyed by
// canonical IP string. The caller must not mutate the returned map.
func (m *Manager) Suppressed() map[string]struct{} { return m.suppressed }

// Observe implements the four-step effect sequence of spec.md §4.4. It must
// only ever be called from one goroutine: the sniffer goroutine during a
// probing scan, or the orchestrator on the consider-alive path, where no
// sniffer runs.
func (m *Manager) Observe(ctx context.Context, ip string) {
	m.aliveCount++

	if !m.scanCapReached {
		if err := m.q.PublishHost(ctx, ip); err != nil {
			log.Warn().Err(err).Str("ip", ip).Msg("alivescan: failed to publish host")
		}
	} else {
		m.suppressed[ip] = struct{}{}
	}

	if !m.scanCapReached && m.aliveCount == m.maxScanHosts {
		m.scanCapReached = true
		if err := m.q.PublishFinish(ctx); err != nil {
			log.Debug().Err(err).Msg("alivescan: failed to publish finish signal on scan cap")
		}
	}

	if m.aliveCount == m.maxAliveHosts {
		m.aliveCapReached.Store(true)
	}
}
