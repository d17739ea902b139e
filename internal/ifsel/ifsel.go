// Package ifsel auto-selects the interface a scan runs on when the
// operator doesn't pin one with --iface, the way the teacher CLI's
// selectInterface helper did, extended with a default-gateway reachability
// check so the chosen interface is actually routable rather than just "up".
package ifsel

import (
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/jackpal/gateway"
	"github.com/mdlayher/arp"
)

// Select returns the named interface verbatim, or — when name is empty —
// the first running, non-loopback interface that can resolve the default
// gateway's MAC address over ARP. Falling back to the last running
// interface (loopback included) if no gateway is reachable mirrors the
// teacher's reverse-order fallback, which preferred loopback last.
func Select(name string) (*net.Interface, error) {
	if name != "" {
		return net.InterfaceByName(name)
	}

	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	gw, gwErr := gateway.DiscoverGateway()

	var fallback *net.Interface
	for i := len(interfaces) - 1; i >= 0; i-- {
		iface := interfaces[i]
		if iface.Flags&net.FlagRunning != net.FlagRunning {
			continue
		}
		if fallback == nil {
			fallback = &interfaces[i]
		}
		if gwErr != nil || iface.Flags&net.FlagLoopback == net.FlagLoopback {
			continue
		}
		if reachesGateway(&iface, gw) {
			return &interfaces[i], nil
		}
	}

	if fallback != nil {
		return fallback, nil
	}
	return nil, fmt.Errorf("alivescan: no running interface found")
}

// reachesGateway reports whether iface can resolve gw's MAC address over
// ARP within a short timeout, the same probe the teacher's
// getNextHopMAC/sendARP pair used to find the next-hop MAC for a SYN
// packet's Ethernet header.
func reachesGateway(iface *net.Interface, gw net.IP) bool {
	client, err := arp.Dial(iface)
	if err != nil {
		return false
	}
	defer client.Close()

	addr, ok := netip.AddrFromSlice(gw.To4())
	if !ok {
		return false
	}

	client.SetDeadline(time.Now().Add(500 * time.Millisecond))
	_, err = client.Resolve(addr)
	return err == nil
}
