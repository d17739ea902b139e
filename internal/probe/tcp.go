package probe

import (
	"fmt"
	"math/rand"
	"net"
	"net/netip"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"golang.org/x/sys/unix"
)

// Flag selects which TCP flag the TCP probe method uses, matching the
// scanner context's current "TCP flag" field in spec.md §3.
type Flag uint8

const (
	FlagSYN Flag = iota
	FlagACK
)

// TCP sends one probe packet to dst for every port in the emitter's port
// list, using the configured flag (spec.md §4.2 "TCP").
func (e *Emitter) TCP(dst netip.Addr, flag Flag) error {
	var lastErr error
	for _, port := range e.ports {
		if dst.Is4() || dst.Is4In6() {
			lastErr = e.tcpv4(dst, port, flag)
		} else {
			lastErr = e.tcpv6(dst, port, flag)
		}
	}
	return lastErr
}

func (e *Emitter) tcpHeader(srcPort, dstPort uint16, flag Flag) *layers.TCP {
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		Seq:     rand.Uint32(),
		Window:  1024,
	}
	switch flag {
	case FlagSYN:
		tcp.SYN = true
	case FlagACK:
		tcp.ACK = true
		tcp.Ack = rand.Uint32()
	}
	return tcp
}

func (e *Emitter) tcpv4(dst netip.Addr, port uint16, flag Flag) error {
	if e.sockets.TCPv4 < 0 {
		return fmt.Errorf("alivescan: no TCPv4 socket open")
	}

	ip := &layers.IPv4{
		SrcIP:    e.srcV4,
		DstIP:    net.IP(dst.AsSlice()),
		Protocol: layers.IPProtocolTCP,
		Version:  4,
		IHL:      5,
		TTL:      64,
		Id:       uint16(rand.Intn(0xffff)),
	}
	tcp := e.tcpHeader(e.srcPort, port, flag)
	tcp.SetNetworkLayerForChecksum(ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, tcp); err != nil {
		return err
	}

	addr := unix.SockaddrInet4{Addr: dst.As4()}
	return unix.Sendto(e.sockets.TCPv4, buf.Bytes(), 0, &addr)
}

func (e *Emitter) tcpv6(dst netip.Addr, port uint16, flag Flag) error {
	if e.sockets.TCPv6 < 0 {
		return fmt.Errorf("alivescan: no TCPv6 socket open")
	}

	ip6 := &layers.IPv6{
		Version:    6,
		SrcIP:      e.srcV6,
		DstIP:      net.IP(dst.AsSlice()),
		NextHeader: layers.IPProtocolTCP,
		HopLimit:   255,
	}
	tcp := e.tcpHeader(e.srcPort, port, flag)
	tcp.SetNetworkLayerForChecksum(ip6)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := tcp.SerializeTo(buf, opts); err != nil {
		return err
	}

	addr := unix.SockaddrInet6{Addr: dst.As16()}
	return unix.Sendto(e.sockets.TCPv6, buf.Bytes(), 0, &addr)
}
