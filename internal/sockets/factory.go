// Package sockets is the Socket Factory: it opens the raw and link-layer
// sockets the probe emitter needs, one set per scan, and owns their
// lifetime until the orchestrator tears the scan down.
package sockets

import (
	"fmt"
	"net"

	"github.com/mdlayher/packet"
	"golang.org/x/sys/unix"

	"alivescan/internal/methods"
)

// Kind identifies a single socket in the set, for error reporting.
type Kind string

const (
	KindICMPv4 Kind = "icmpv4"
	KindICMPv6 Kind = "icmpv6"
	KindTCPv4  Kind = "tcpv4"
	KindTCPv6  Kind = "tcpv6"
	KindUDPv4  Kind = "udpv4"
	KindUDPv6  Kind = "udpv6"
	KindARPv4  Kind = "arpv4"
	KindARPv6  Kind = "arpv6"
)

// OpenError identifies the first socket kind that failed to open, per the
// Socket Factory contract in spec.md §4.1.
type OpenError struct {
	Kind Kind
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("alivescan: open %s socket: %v", e.Kind, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Set holds the file descriptors / handles opened for one scan. ARPv4 is a
// link-layer packet socket (one per interface); every other field is a raw
// IP-family socket fd, or -1 if that method's sockets were never opened.
type Set struct {
	ICMPv4 int
	ICMPv6 int
	TCPv4  int
	TCPv6  int
	UDPv4  int
	UDPv6  int
	ARPv6  int // raw ICMPv6 socket used for Neighbor Solicitation
	ARPv4  *packet.Conn

	opened []Kind
}

// Open opens the minimum socket set required for the enabled methods, per
// the table in spec.md §4.1. On any failure it closes everything already
// opened and returns an *OpenError identifying the first failing kind; no
// sockets remain open on that path.
func Open(sel methods.Selector, iface *net.Interface) (*Set, error) {
	s := &Set{ICMPv4: -1, ICMPv6: -1, TCPv4: -1, TCPv6: -1, UDPv4: -1, UDPv6: -1, ARPv6: -1}

	fail := func(kind Kind, err error) (*Set, error) {
		s.Close()
		return nil, &OpenError{Kind: kind, Err: err}
	}

	if sel.Has(methods.SelectICMP) {
		fd, err := openRaw(unix.AF_INET, unix.IPPROTO_ICMP)
		if err != nil {
			return fail(KindICMPv4, err)
		}
		s.ICMPv4 = fd
		s.opened = append(s.opened, KindICMPv4)

		fd6, err := openRaw(unix.AF_INET6, unix.IPPROTO_ICMPV6)
		if err != nil {
			return fail(KindICMPv6, err)
		}
		s.ICMPv6 = fd6
		s.opened = append(s.opened, KindICMPv6)
	}

	if sel.Has(methods.SelectTCPAck) || sel.Has(methods.SelectTCPSyn) {
		fd, err := openRaw(unix.AF_INET, unix.IPPROTO_TCP)
		if err != nil {
			return fail(KindTCPv4, err)
		}
		s.TCPv4 = fd
		s.opened = append(s.opened, KindTCPv4)

		fd6, err := openRaw(unix.AF_INET6, unix.IPPROTO_TCP)
		if err != nil {
			return fail(KindTCPv6, err)
		}
		s.TCPv6 = fd6
		s.opened = append(s.opened, KindTCPv6)

		ufd, err := openRaw(unix.AF_INET, unix.IPPROTO_UDP)
		if err != nil {
			return fail(KindUDPv4, err)
		}
		s.UDPv4 = ufd
		s.opened = append(s.opened, KindUDPv4)

		ufd6, err := openRaw(unix.AF_INET6, unix.IPPROTO_UDP)
		if err != nil {
			return fail(KindUDPv6, err)
		}
		s.UDPv6 = ufd6
		s.opened = append(s.opened, KindUDPv6)
	}

	if sel.Has(methods.SelectARP) {
		if iface == nil {
			return fail(KindARPv4, fmt.Errorf("no interface selected for ARP"))
		}
		const ethPARP = 0x0806
		conn, err := packet.Listen(iface, packet.Raw, ethPARP, nil)
		if err != nil {
			return fail(KindARPv4, err)
		}
		s.ARPv4 = conn
		s.opened = append(s.opened, KindARPv4)

		fd6, err := openRaw(unix.AF_INET6, unix.IPPROTO_ICMPV6)
		if err != nil {
			return fail(KindARPv6, err)
		}
		s.ARPv6 = fd6
		s.opened = append(s.opened, KindARPv6)
	}

	return s, nil
}

func openRaw(family, proto int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_RAW, proto)
	if err != nil {
		return -1, err
	}
	if family == unix.AF_INET {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
			unix.Close(fd)
			return -1, err
		}
	}
	return fd, nil
}

// Close closes every socket that was opened, continuing past individual
// failures so that a partial close never leaks the rest. It returns the
// first error encountered, if any (spec.md §7 "Cleanup failure").
func (s *Set) Close() error {
	var first error
	note := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	for _, kind := range s.opened {
		switch kind {
		case KindICMPv4:
			note(unix.Close(s.ICMPv4))
		case KindICMPv6:
			note(unix.Close(s.ICMPv6))
		case KindTCPv4:
			note(unix.Close(s.TCPv4))
		case KindTCPv6:
			note(unix.Close(s.TCPv6))
		case KindUDPv4:
			note(unix.Close(s.UDPv4))
		case KindUDPv6:
			note(unix.Close(s.UDPv6))
		case KindARPv6:
			note(unix.Close(s.ARPv6))
		case KindARPv4:
			if s.ARPv4 != nil {
				note(s.ARPv4.Close())
			}
		}
	}
	s.opened = nil
	return first
}
