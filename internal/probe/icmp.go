package probe

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"net"
	"net/netip"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"golang.org/x/sys/unix"
)

// ICMP sends an echo request to dst, choosing the IPv4 or IPv6 path by
// inspecting whether dst's 128-bit form is an IPv4-mapped address
// (spec.md §4.2 "ICMP").
func (e *Emitter) ICMP(dst netip.Addr) error {
	if dst.Is4() || dst.Is4In6() {
		return e.icmpv4(dst)
	}
	return e.icmpv6(dst, layers.ICMPv6TypeEchoRequest, nil)
}

func (e *Emitter) icmpv4(dst netip.Addr) error {
	if e.sockets.ICMPv4 < 0 {
		return fmt.Errorf("alivescan: no ICMPv4 socket open")
	}

	ip := &layers.IPv4{
		SrcIP:    e.srcV4,
		DstIP:    net.IP(dst.AsSlice()),
		Protocol: layers.IPProtocolICMPv4,
		Version:  4,
		IHL:      5,
		TTL:      64,
		Id:       uint16(rand.Intn(0xffff)),
	}
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
		Id:       uint16(rand.Intn(0xffff)),
		Seq:      uint16(rand.Intn(0xffff)),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	payload := gopacket.Payload([]byte("alivescan"))
	if err := gopacket.SerializeLayers(buf, opts, ip, icmp, payload); err != nil {
		return err
	}

	addr := unix.SockaddrInet4{Addr: dst.As4()}
	return unix.Sendto(e.sockets.ICMPv4, buf.Bytes(), 0, &addr)
}

func (e *Emitter) icmpv6(dst netip.Addr, icmpType layers.ICMPv6TypeCode, body []byte) error {
	if e.sockets.ICMPv6 < 0 && icmpType.Type() != layers.ICMPv6TypeNeighborSolicitation {
		return fmt.Errorf("alivescan: no ICMPv6 socket open")
	}
	fd := e.sockets.ICMPv6
	if icmpType.Type() == layers.ICMPv6TypeNeighborSolicitation {
		fd = e.sockets.ARPv6
	}
	if fd < 0 {
		return fmt.Errorf("alivescan: no raw ICMPv6 socket open")
	}

	payload := make([]byte, 4) // identifier + sequence, or reserved for NS
	if icmpType.Type() != layers.ICMPv6TypeNeighborSolicitation {
		binary.BigEndian.PutUint16(payload[0:2], uint16(rand.Intn(0xffff)))
		binary.BigEndian.PutUint16(payload[2:4], uint16(rand.Intn(0xffff)))
	}
	payload = append(payload, body...)

	ip6 := &layers.IPv6{
		Version:    6,
		SrcIP:      e.srcV6,
		DstIP:      net.IP(dst.AsSlice()),
		NextHeader: layers.IPProtocolICMPv6,
		HopLimit:   255,
	}
	icmp6 := &layers.ICMPv6{TypeCode: icmpType}
	icmp6.SetNetworkLayerForChecksum(ip6)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, icmp6, gopacket.Payload(payload)); err != nil {
		return err
	}

	addr := unix.SockaddrInet6{Addr: dst.As16()}
	return unix.Sendto(fd, buf.Bytes(), 0, &addr)
}

// NeighborSolicitation sends an ICMPv6 Neighbor Solicitation (type 135) as
// the IPv6 ARP-equivalent probe, over the ARPv6 socket (spec.md §4.2
// "IPv6 ARP-equivalent path uses a Neighbor Solicitation message").
func (e *Emitter) NeighborSolicitation(dst netip.Addr) error {
	targetAddr := dst.As16()
	return e.icmpv6(dst, layers.CreateICMPv6TypeCode(layers.ICMPv6TypeNeighborSolicitation, 0), targetAddr[:])
}
