// Package portlist resolves the TCP destination ports the probe emitter
// targets: the hardcoded default list, or the configured port_range
// fallback when the default is rejected by the validator (spec.md §9).
package portlist

import (
	"strconv"
	"strings"
)

// Default is the hardcoded port list chosen to maximise response
// probability from typical hosts (spec.md §3).
var Default = []uint16{80, 137, 587, 3128, 8081}

// Valid reports whether every port in ports is in the valid TCP port
// range. An empty list is invalid — scanning zero ports is never useful.
func Valid(ports []uint16) bool {
	if len(ports) == 0 {
		return false
	}
	for _, p := range ports {
		if p == 0 {
			return false
		}
	}
	return true
}

// Resolve returns Default unless it fails Valid, in which case it parses
// fallback (the port_range preference value, e.g. "1-1024,8080,8443") and
// returns that instead. A fallback that fails to parse yields Default
// regardless, since scanning something beats returning nothing.
func Resolve(fallback string) []uint16 {
	if Valid(Default) {
		return Default
	}
	parsed, err := Parse(fallback)
	if err != nil || len(parsed) == 0 {
		return Default
	}
	return parsed
}

// Parse parses a comma-separated list of single ports and/or "a-b" ranges
// into a flat port list. Duplicates are not removed, matching the
// original port_range_ranges/fill_ports_array behaviour.
func Parse(raw string) ([]uint16, error) {
	var ports []uint16
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(field, "-"); ok {
			start, err := strconv.ParseUint(lo, 10, 16)
			if err != nil {
				return nil, err
			}
			end, err := strconv.ParseUint(hi, 10, 16)
			if err != nil {
				return nil, err
			}
			if end < start {
				start, end = end, start
			}
			for p := start; p <= end; p++ {
				ports = append(ports, uint16(p))
			}
			continue
		}
		p, err := strconv.ParseUint(field, 10, 16)
		if err != nil {
			return nil, err
		}
		ports = append(ports, uint16(p))
	}
	return ports, nil
}
