package sniffer

import (
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPacket(t *testing.T, base gopacket.LayerType, layerList ...gopacket.SerializableLayer) gopacket.Packet {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, layerList...))
	return gopacket.NewPacket(buf.Bytes(), base, gopacket.Default)
}

func TestClassifyIPv4(t *testing.T) {
	ip := &layers.IPv4{
		SrcIP: []byte{192, 0, 2, 5}, DstIP: []byte{192, 0, 2, 1},
		Version: 4, IHL: 5, Protocol: layers.IPProtocolICMPv4, TTL: 64,
	}
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0)}
	pkt := buildPacket(t, layers.LayerTypeIPv4, ip, icmp)

	src, ok := classify(pkt)
	require.True(t, ok)
	assert.Equal(t, "192.0.2.5", src)
}

func TestClassifyIPv6(t *testing.T) {
	ip6 := &layers.IPv6{
		SrcIP: []byte{0x20, 0x01, 0xd, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1},
		DstIP: []byte{0x20, 0x01, 0xd, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2},
		Version:    6,
		NextHeader: layers.IPProtocolICMPv6,
		HopLimit:   64,
	}
	icmp6 := &layers.ICMPv6{TypeCode: layers.CreateICMPv6TypeCode(layers.ICMPv6TypeEchoReply, 0)}
	icmp6.SetNetworkLayerForChecksum(ip6)
	pkt := buildPacket(t, layers.LayerTypeIPv6, ip6, icmp6)

	src, ok := classify(pkt)
	require.True(t, ok)
	assert.Equal(t, "2001:db8::1", src)
}

func TestClassifyARP(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC: []byte{1, 2, 3, 4, 5, 6}, DstMAC: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType: layers.LinkTypeEthernet, Protocol: layers.EthernetTypeIPv4,
		HwAddressSize: 6, ProtAddressSize: 4, Operation: layers.ARPReply,
		SourceHwAddress: []byte{1, 2, 3, 4, 5, 6}, SourceProtAddress: []byte{10, 0, 0, 9},
		DstHwAddress: []byte{0, 0, 0, 0, 0, 0}, DstProtAddress: []byte{10, 0, 0, 1},
	}
	pkt := buildPacket(t, layers.LayerTypeEthernet, eth, arp)

	src, ok := classify(pkt)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.9", src)
}

func TestClassifyUnrecognizedLayerFails(t *testing.T) {
	pkt := gopacket.NewPacket([]byte{0x00}, layers.LayerTypeIPv4, gopacket.Default)
	_, ok := classify(pkt)
	assert.False(t, ok)
}

func TestFilterIncludesSourcePort(t *testing.T) {
	f := Filter(54321)
	assert.Contains(t, f, "dst port 54321")
	assert.Contains(t, f, "icmp-echoreply")
}
