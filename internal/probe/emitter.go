// Package probe is the Probe Emitter: for each target and each enabled
// method it crafts and sends a packet through the appropriate socket,
// applying burst pacing (spec.md §4.2). The Emit methods do not check the
// alive cap themselves; the orchestrator's probing loop checks it before
// each target.
package probe

import (
	"net"
	"net/netip"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"alivescan/internal/sockets"
)

// Emitter owns one pacer per method (ICMP, TCP, ARP each have their own
// independent burst counter, mirroring the per-function static counters of
// the original design) and the resolved source addresses/ports used to
// build outgoing packets.
type Emitter struct {
	sockets *sockets.Set
	iface   *net.Interface
	ports   []uint16

	srcV4   net.IP
	srcV6   net.IP
	srcPort uint16

	icmpPacer *pacer
	tcpPacer  *pacer
	arpPacer  *pacer

	aliveCapReached func() bool
}

// Config carries everything the Emitter needs beyond the socket set.
type Config struct {
	Interface       *net.Interface
	Ports           []uint16
	SourceV4        net.IP
	SourceV6        net.IP
	SourcePort      uint16
	AliveCapReached func() bool
}

// New builds an Emitter bound to an already-open socket Set.
func New(socks *sockets.Set, cfg Config) *Emitter {
	return &Emitter{
		sockets:         socks,
		iface:           cfg.Interface,
		ports:           cfg.Ports,
		srcV4:           cfg.SourceV4,
		srcV6:           cfg.SourceV6,
		srcPort:         cfg.SourcePort,
		icmpPacer:       newPacer(),
		tcpPacer:        newPacer(),
		arpPacer:        newPacer(),
		aliveCapReached: cfg.AliveCapReached,
	}
}

// ResolveSource picks the source IPv4/IPv6 addresses and a source port to
// probe from, the way the teacher repo's getInterfaceIP/getLocalPort
// helpers do: dial out (without sending data) to learn which local address
// the kernel would route through, and bind an ephemeral TCP listener to
// learn a free local port to use as the probes' source port. This mirrors
// spec.md §4.1's note that the UDP sockets exist to "probe source-
// address/route selection" — the raw UDP fds stay open and reserved for
// the scan's lifetime, while this helper uses ordinary dial/listen to
// stay portable across platforms that differ in raw-socket UDP semantics.
func ResolveSource() (v4, v6 net.IP, srcPort uint16, err error) {
	v4 = resolveRoute("udp4", "8.8.8.8:53")
	v6 = resolveRoute("udp6", "[2001:4860:4860::8888]:53")
	if v4 == nil && v6 == nil {
		return nil, nil, 0, errors.New("alivescan: could not resolve any source address")
	}

	l, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "alivescan: reserve source port")
	}
	defer l.Close()
	srcPort = uint16(l.Addr().(*net.TCPAddr).Port)

	return v4, v6, srcPort, nil
}

func resolveRoute(network, probe string) net.IP {
	conn, err := net.DialTimeout(network, probe, 2*time.Second)
	if err != nil {
		return nil
	}
	defer conn.Close()
	if udpAddr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return udpAddr.IP
	}
	return nil
}

// EmitICMP sends an ICMP echo request (or ICMPv6 echo request) to dst,
// applying the ICMP method's pacing.
func (e *Emitter) EmitICMP(dst netip.Addr) {
	e.icmpPacer.tick()
	if err := e.ICMP(dst); err != nil {
		log.Debug().Err(err).Str("dst", dst.String()).Msg("alivescan: icmp probe send failed")
	}
}

// EmitTCP sends the configured TCP probe (SYN or ACK) across every
// configured port to dst, applying the TCP method's pacing.
func (e *Emitter) EmitTCP(dst netip.Addr, flag Flag) {
	e.tcpPacer.tick()
	if err := e.TCP(dst, flag); err != nil {
		log.Debug().Err(err).Str("dst", dst.String()).Msg("alivescan: tcp probe send failed")
	}
}

// EmitARP sends an ARP request or Neighbor Solicitation to dst, applying
// the ARP method's pacing.
func (e *Emitter) EmitARP(dst netip.Addr) {
	e.arpPacer.tick()
	if err := e.ARP(dst); err != nil {
		log.Debug().Err(err).Str("dst", dst.String()).Msg("alivescan: arp probe send failed")
	}
}

// AliveCapReached reports whether the Restriction Manager has latched the
// alive cap (spec.md §4.2 gating), or false when no check was configured.
// EmitICMP, EmitTCP and EmitARP do not call it.
func (e *Emitter) AliveCapReached() bool {
	if e.aliveCapReached == nil {
		return false
	}
	return e.aliveCapReached()
}
