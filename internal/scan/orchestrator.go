// Package scan is the Scan Orchestrator: it initialises the socket
// factory, probe emitter, reply sniffer and restriction manager, enforces
// the startup barrier, drives the method sequence, waits for drain, tears
// the system down deterministically, and reports summary counts
// (spec.md §4.5).
package scan

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"alivescan/internal/config"
	"alivescan/internal/methods"
	"alivescan/internal/portlist"
	"alivescan/internal/probe"
	"alivescan/internal/queue"
	"alivescan/internal/restrict"
	"alivescan/internal/sniffer"
	"alivescan/internal/sockets"
	"alivescan/internal/target"
)

// State names the orchestrator's position in the state machine of
// spec.md §4.5.
type State string

const (
	StateInit            State = "INIT"
	StateSnifferStarting State = "SNIFFER_STARTING"
	StateProbing         State = "PROBING"
	StateDraining        State = "DRAINING"
	StateStopping        State = "STOPPING"
	StateDone            State = "DONE"
)

// Tunables matching spec.md's recommended defaults; exported so tests can
// shrink them.
var (
	SettleDelay    = 2 * time.Second
	WaitForReplies = 10 * time.Second
	BreakGrace     = 2 * time.Second
	ReadyTimeout   = 30 * time.Second
)

// Summary is what Run reports once a scan finishes.
type Summary struct {
	ScanID         string
	TargetCount    int
	TargetsChecked int
	AliveCount     int
	DeadCount      int
	AliveCapped    bool
}

// Options configures one scan run.
type Options struct {
	Targets   []target.Host
	Config    config.Source
	Queue     queue.Queue
	Interface *net.Interface
}

// InitError is returned by Run for any spec.md §7 "Setup failure": socket
// open failed, capture open failed. Run still publishes the finish signal
// before returning it.
type InitError struct {
	cause error
}

func (e *InitError) Error() string { return "alivescan: scan init failed: " + e.cause.Error() }
func (e *InitError) Unwrap() error { return e.cause }

// Run executes one complete scan following the INIT -> SNIFFER_STARTING ->
// PROBING -> DRAINING -> STOPPING -> DONE state machine. It always
// attempts to publish the finish signal before returning, on every exit
// path (spec.md §7's guaranteed postcondition).
func Run(ctx context.Context, opts Options) (Summary, error) {
	q := queue.WithOnceFinish(opts.Queue)
	scanID := uuid.NewString()
	logger := log.With().Str("scan_id", scanID).Logger()

	logger.Debug().Str("state", string(StateInit)).Msg("alivescan: scan starting")

	targets := target.New(opts.Targets)
	selector := methods.ParseSelector(config.GetString(opts.Config, config.KeyAliveTest, "icmp"))

	lim := restrict.Limits{
		MaxScanHosts:  config.GetInt(opts.Config, config.KeyMaxScanHosts, 0),
		MaxAliveHosts: config.GetInt(opts.Config, config.KeyMaxAliveHosts, 0),
	}
	mgr := restrict.New(q, lim)

	if selector.Has(methods.SelectConsiderAlive) {
		return runConsiderAlive(ctx, q, logger, scanID, targets, mgr)
	}

	socks, err := sockets.Open(selector, opts.Interface)
	if err != nil {
		_ = q.PublishFinish(ctx)
		return Summary{ScanID: scanID, TargetCount: targets.Len()}, &InitError{cause: err}
	}

	srcV4, srcV6, srcPort, err := probe.ResolveSource()
	if err != nil {
		socks.Close()
		_ = q.PublishFinish(ctx)
		return Summary{ScanID: scanID, TargetCount: targets.Len()}, &InitError{cause: err}
	}

	snif, err := sniffer.Open(ifaceName(opts.Interface), srcPort, targets, mgr)
	if err != nil {
		socks.Close()
		_ = q.PublishFinish(ctx)
		return Summary{ScanID: scanID, TargetCount: targets.Len()}, &InitError{cause: err}
	}

	ports := portlist.Resolve(config.GetString(opts.Config, config.KeyPortRange, ""))
	emitter := probe.New(socks, probe.Config{
		Interface:       opts.Interface,
		Ports:           ports,
		SourceV4:        srcV4,
		SourceV6:        srcV6,
		SourcePort:      srcPort,
		AliveCapReached: mgr.AliveCapReached,
	})

	logger.Info().Int("targets", targets.Len()).Msg("alivescan: scan initialised")

	// SNIFFER_STARTING
	logger.Debug().Str("state", string(StateSnifferStarting)).Msg("alivescan: waiting for sniffer to arm")

	sniffCtx, cancelSniff := context.WithCancel(ctx)
	defer cancelSniff()
	go snif.Run(sniffCtx)

	select {
	case <-snif.Ready():
	case <-time.After(ReadyTimeout):
		logger.Warn().Msg("alivescan: sniffer did not signal ready in time, proceeding anyway")
	}
	time.Sleep(SettleDelay)

	// PROBING
	logger.Debug().Str("state", string(StateProbing)).Msg("alivescan: sending probes")
	targetsChecked := probeAll(selector, targets, emitter, mgr)

	// DRAINING
	logger.Debug().Str("state", string(StateDraining)).Msg("alivescan: draining late replies")
	time.Sleep(WaitForReplies)

	// STOPPING
	logger.Debug().Str("state", string(StateStopping)).Msg("alivescan: stopping sniffer")
	if err := snif.Break(); err != nil {
		logger.Warn().Err(err).Msg("alivescan: error requesting sniffer break")
	}
	select {
	case <-snif.Done():
	case <-time.After(BreakGrace):
		logger.Warn().Msg("alivescan: sniffer did not exit within grace period, proceeding with teardown")
		cancelSniff()
	}
	snif.Close()
	if err := socks.Close(); err != nil {
		logger.Warn().Err(err).Msg("alivescan: error closing sockets")
	}

	// DONE
	summary := finish(ctx, q, logger, scanID, targets, mgr, targetsChecked)
	logger.Info().
		Int("alive", summary.AliveCount).
		Int("dead", summary.DeadCount).
		Msg("alivescan: scan finished")
	return summary, nil
}

func ifaceName(iface *net.Interface) string {
	if iface == nil {
		return ""
	}
	return iface.Name
}

// probeAll drives the PROBING state's fixed method order — TCP, then
// ICMP, then ARP — stopping early once the alive cap is reached
// (spec.md §4.5).
func probeAll(selector methods.Selector, targets *target.Set, emitter *probe.Emitter, mgr *restrict.Manager) int {
	checked := 0

	runPass := func(fn func(target.Host)) {
		targets.Each(func(h target.Host) {
			if mgr.AliveCapReached() {
				return
			}
			fn(h)
			checked++
		})
	}

	if selector.Has(methods.SelectTCPSyn) {
		runPass(func(h target.Host) { emitter.EmitTCP(h.Addr, probe.FlagSYN) })
	} else if selector.Has(methods.SelectTCPAck) {
		runPass(func(h target.Host) { emitter.EmitTCP(h.Addr, probe.FlagACK) })
	}
	if selector.Has(methods.SelectICMP) {
		runPass(func(h target.Host) { emitter.EmitICMP(h.Addr) })
	}
	if selector.Has(methods.SelectARP) {
		runPass(func(h target.Host) { emitter.EmitARP(h.Addr) })
	}

	return checked
}

// runConsiderAlive implements the CONSIDER_ALIVE method: every target is
// marked alive immediately with no packets sent, no sockets opened, and no
// capture loop started (spec.md §4.5).
func runConsiderAlive(ctx context.Context, q queue.Queue, logger zerolog.Logger, scanID string, targets *target.Set, mgr *restrict.Manager) (Summary, error) {
	logger.Debug().Str("state", string(StateProbing)).Msg("alivescan: consider_alive, publishing all targets")

	checked := 0
	targets.Each(func(h target.Host) {
		if mgr.AliveCapReached() {
			return
		}
		mgr.Observe(ctx, h.Key())
		checked++
	})

	summary := finish(ctx, q, logger, scanID, targets, mgr, checked)
	logger.Info().
		Int("alive", summary.AliveCount).
		Int("dead", summary.DeadCount).
		Msg("alivescan: scan finished")
	return summary, nil
}

// finish implements the DONE state's reporting contract: publish the
// suppressed-corrected dead count, an advisory ERRMSG if the alive cap was
// hit, and the guaranteed finish signal — then return a Summary
// (spec.md §4.5, §6).
func finish(ctx context.Context, q queue.Queue, logger zerolog.Logger, scanID string, targets *target.Set, mgr *restrict.Manager, checked int) Summary {
	alive := mgr.AliveCount()
	dead := targets.Len() - (alive - len(mgr.Suppressed()))
	if dead < 0 {
		dead = 0
	}

	if err := q.PublishStatus(ctx, queue.DeadHostStatus(dead)); err != nil {
		logger.Warn().Err(err).Msg("alivescan: failed to publish dead-host status")
	}
	if mgr.AliveCapReached() {
		notChecked := targets.Len() - checked
		if notChecked < 0 {
			notChecked = 0
		}
		advisory := fmt.Sprintf("There are still %d hosts whose alive status will not be checked.", notChecked)
		if err := q.PublishStatus(ctx, queue.ErrMsgStatus(advisory)); err != nil {
			logger.Warn().Err(err).Msg("alivescan: failed to publish truncation advisory")
		}
	}
	if err := q.PublishFinish(ctx); err != nil {
		logger.Warn().Err(err).Msg("alivescan: failed to publish finish signal")
	}

	return Summary{
		ScanID:         scanID,
		TargetCount:    targets.Len(),
		TargetsChecked: checked,
		AliveCount:     alive,
		DeadCount:      dead,
		AliveCapped:    mgr.AliveCapReached(),
	}
}
