package probe

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/mdlayher/ethernet"
	"github.com/mdlayher/packet"
)

// ARP sends an ARP request (IPv4) or a Neighbor Solicitation (IPv6) for
// dst, the two "ARP/ND solicitation" probes of spec.md §4.2.
func (e *Emitter) ARP(dst netip.Addr) error {
	if dst.Is4() || dst.Is4In6() {
		return e.arpv4(dst)
	}
	return e.NeighborSolicitation(dst)
}

// arpv4 constructs an ARP request frame at the link layer with the source
// MAC and resolved interface index, and sends it broadcast (spec.md §4.2
// "ARP"). This engine always broadcasts rather than unicasting to a
// previously-resolved MAC, since by definition we don't yet know the
// target's MAC during a liveness sweep.
func (e *Emitter) arpv4(dst netip.Addr) error {
	if e.sockets.ARPv4 == nil {
		return fmt.Errorf("alivescan: no ARPv4 socket open")
	}
	if e.iface == nil {
		return fmt.Errorf("alivescan: no interface selected for ARP")
	}

	broadcast := net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	dstIP := dst.As4()
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   e.iface.HardwareAddr,
		SourceProtAddress: e.srcV4.To4(),
		DstHwAddress:      net.HardwareAddr{0, 0, 0, 0, 0, 0},
		DstProtAddress:    dstIP[:],
	}

	arpBuf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := arp.SerializeTo(arpBuf, opts); err != nil {
		return err
	}

	// The Ethernet header itself is built with mdlayher/ethernet rather
	// than gopacket's layers.Ethernet: ARPv4 is a raw link-layer socket
	// (mdlayher/packet), the same stack mdlayher/ethernet's Frame type is
	// meant to pair with.
	frame := &ethernet.Frame{
		Destination: broadcast,
		Source:      e.iface.HardwareAddr,
		EtherType:   ethernet.EtherTypeARP,
		Payload:     arpBuf.Bytes(),
	}
	wire, err := frame.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = e.sockets.ARPv4.WriteTo(wire, &packet.Addr{HardwareAddr: broadcast})
	return err
}
