// Package sniffer is the Reply Sniffer: a link-layer capture loop that
// classifies every matched frame and reports newly-seen target IPs to the
// Restriction Manager (spec.md §4.3).
package sniffer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcap"
	"github.com/rs/zerolog/log"

	"alivescan/internal/restrict"
	"alivescan/internal/target"
)

// SnapLen and PollTimeout are the fixed capture parameters of spec.md
// §4.3. The BPF filter's port is not a constant: Open builds it from the
// TCP source port the probe emitter sends from, which is therefore the
// port replies to our TCP probes land on.
const (
	SnapLen     = 1500
	PollTimeout = 100 * time.Millisecond
)

// Filter builds the BPF expression of spec.md §4.3 for the given source
// port used by the TCP probes.
func Filter(srcPort uint16) string {
	return fmt.Sprintf(
		"(ip6 or ip or arp) and "+
			"(ip6[40]=129 or icmp[icmptype]=icmp-echoreply or "+
			"dst port %d or arp[6:2]=2)", srcPort)
}

// Sniffer runs the single capture goroutine. Everything it touches after
// Run starts — the alive set, the Restriction Manager's counters — is
// private to that one goroutine; the orchestrator reads them once Done is
// closed, or once it stops waiting for Done after its grace period (spec.md §5).
type Sniffer struct {
	handle   *pcap.Handle
	targets  *target.Set
	restrict *restrict.Manager

	alive map[string]struct{}

	ready    chan struct{}
	readyFn  sync.Once
	done     chan struct{}
	doneOnce sync.Once
}

// Open opens a promiscuous-off capture handle on iface with the BPF filter
// built for srcPort. iface == "" captures on all interfaces, matching
// pcap_open_live's NULL-iface behaviour noted in the original design.
func Open(iface string, srcPort uint16, targets *target.Set, mgr *restrict.Manager) (*Sniffer, error) {
	handle, err := pcap.OpenLive(iface, SnapLen, false, PollTimeout)
	if err != nil {
		return nil, fmt.Errorf("alivescan: open capture handle: %w", err)
	}
	if err := handle.SetBPFFilter(Filter(srcPort)); err != nil {
		handle.Close()
		return nil, fmt.Errorf("alivescan: set BPF filter: %w", err)
	}

	return &Sniffer{
		handle:   handle,
		targets:  targets,
		restrict: mgr,
		alive:    make(map[string]struct{}),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Ready is signalled exactly once, as soon as Run has entered its capture
// loop — the startup barrier the orchestrator waits on before sending any
// probe (spec.md §5).
func (s *Sniffer) Ready() <-chan struct{} { return s.ready }

// Done is closed when Run returns, however it returns.
func (s *Sniffer) Done() <-chan struct{} { return s.done }

// Run is the capture loop. It is meant to be started in its own goroutine
// and is the only goroutine that mutates the alive set or the Restriction
// Manager's counters.
func (s *Sniffer) Run(ctx context.Context) {
	defer s.doneOnce.Do(func() { close(s.done) })

	linkType := s.handle.LinkType()
	src := gopacket.NewPacketSource(s.handle, linkType)
	src.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}
	packets := src.Packets()

	s.readyFn.Do(func() { close(s.ready) })

	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-packets:
			if !ok {
				return
			}
			if pkt == nil {
				continue
			}
			s.handlePacket(ctx, pkt)
		}
	}
}

// Break requests that Run stop, mirroring pcap_breakloop: closing the
// capture handle unblocks a pending read and makes the packets channel
// close. The orchestrator's scan.BreakGrace is how long it waits for Done
// before giving up and proceeding with teardown anyway (spec.md §5's
// cancellation fallback — Go has no thread-cancel primitive, so "falls back
// to cancellation" here means "stop waiting"). gopacket's Handle.Close
// reports no error, so Break always returns nil.
func (s *Sniffer) Break() error {
	s.handle.Close()
	return nil
}

// Close releases the capture handle. Safe to call after Break.
func (s *Sniffer) Close() {
	// handle.Close() is idempotent-safe to call twice in gopacket/pcap.
	s.handle.Close()
}

func (s *Sniffer) handlePacket(ctx context.Context, pkt gopacket.Packet) {
	if s.restrict.AliveCapReached() {
		return
	}

	ip, ok := classify(pkt)
	if !ok {
		log.Debug().Msg("alivescan: captured frame did not classify to a source address")
		return
	}

	if _, seen := s.alive[ip]; seen {
		return
	}
	s.alive[ip] = struct{}{}

	if s.targets.Contains(ip) {
		s.restrict.Observe(ctx, ip)
	}
}

// classify extracts a canonical source-address string from a captured
// frame: IPv4 source, IPv6 source, or ARP sender protocol address,
// matching spec.md §4.3's three-way dispatch. It relies on gopacket's own
// link-type-aware decoding (driven by handle.LinkType() in Run) rather
// than a hand-rolled byte offset, resolving the offset ambiguity flagged
// in spec.md §9 in favour of the portable approach.
func classify(pkt gopacket.Packet) (string, bool) {
	if layer := pkt.Layer(layers.LayerTypeIPv4); layer != nil {
		ip4 := layer.(*layers.IPv4)
		return ip4.SrcIP.String(), true
	}
	if layer := pkt.Layer(layers.LayerTypeIPv6); layer != nil {
		ip6 := layer.(*layers.IPv6)
		return ip6.SrcIP.String(), true
	}
	if layer := pkt.Layer(layers.LayerTypeARP); layer != nil {
		arp := layer.(*layers.ARP)
		return net.IP(arp.SourceProtAddress).String(), true
	}
	return "", false
}
