// Package target holds the liveness-scan target set: the canonical mapping
// from IP string to target descriptor described by the data model.
package target

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"strings"
)

// Host is a single scan target. Addr is always stored in its 128-bit form;
// IPv4 hosts are IPv4-mapped IPv6 addresses, matching the target-list input
// contract. Handle is an opaque owner-supplied value the core never
// inspects or mutates.
type Host struct {
	Addr   netip.Addr
	Handle any
}

// Key returns the canonical string form used as the map key everywhere in
// the engine: dotted form for IPv4, lower-case colon form for IPv6.
func (h Host) Key() string {
	return Canonical(h.Addr)
}

// Canonical renders addr the way the alive/suppressed sets key on: IPv4
// addresses (including IPv4-mapped IPv6) render in dotted form, everything
// else renders in netip's normalised (lower-case) colon form.
func Canonical(addr netip.Addr) string {
	if addr.Is4() || addr.Is4In6() {
		return netip.AddrFrom4(addr.As4()).String()
	}
	return addr.String()
}

// Set is the immutable-after-construction target mapping: canonical IP
// string -> Host. Nothing in the core mutates a Set or the descriptors it
// holds once New returns.
type Set struct {
	byKey map[string]Host
	order []string
}

// New builds a Set from a list of hosts. Later duplicates of the same
// canonical key overwrite earlier ones, matching a hash-table insert.
func New(hosts []Host) *Set {
	s := &Set{byKey: make(map[string]Host, len(hosts))}
	for _, h := range hosts {
		key := h.Key()
		if _, exists := s.byKey[key]; !exists {
			s.order = append(s.order, key)
		}
		s.byKey[key] = h
	}
	return s
}

// Len returns the number of distinct targets.
func (s *Set) Len() int { return len(s.byKey) }

// Contains reports whether ip (canonical form) is a target.
func (s *Set) Contains(ip string) bool {
	_, ok := s.byKey[ip]
	return ok
}

// Each calls fn for every target in insertion order. fn must not mutate the
// Set; the core never needs to and relies on that invariant.
func (s *Set) Each(fn func(Host)) {
	for _, key := range s.order {
		fn(s.byKey[key])
	}
}

// Keys returns the canonical keys in insertion order.
func (s *Set) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// ParseList reads a newline-delimited host list, one IPv4 or IPv6 literal
// per line; blank lines and lines starting with '#' are ignored. This is a
// minimal stand-in for the full target-list parser, which the core treats
// as an external collaborator — it exists only so cmd/alivescan and the
// tests have something to feed the engine.
func ParseList(r io.Reader) ([]Host, error) {
	var hosts []Host
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, err := netip.ParseAddr(line)
		if err != nil {
			return nil, fmt.Errorf("target list line %d: %w", lineNo, err)
		}
		if addr.Is4() {
			addr = netip.AddrFrom16(addr.As16())
		}
		hosts = append(hosts, Host{Addr: addr, Handle: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hosts, nil
}
