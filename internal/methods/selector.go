package methods

import "strings"

// Selector is a bitset over the enabled methods, matching the alive-test
// selector of the data model.
type Selector uint8

const (
	SelectICMP Selector = 1 << iota
	SelectTCPAck
	SelectTCPSyn
	SelectARP
	SelectConsiderAlive
)

// Has reports whether m is set in s.
func (s Selector) Has(m Selector) bool { return s&m != 0 }

// ParseSelector turns a comma-separated preference value (as read from the
// alive-test configuration key) into a Selector. Unknown tokens are
// ignored; an empty or all-unknown value yields SelectICMP as a safe
// default.
func ParseSelector(raw string) Selector {
	var sel Selector
	for _, tok := range strings.Split(raw, ",") {
		switch strings.ToLower(strings.TrimSpace(tok)) {
		case "icmp":
			sel |= SelectICMP
		case "tcp_ack", "tcp-ack", "tcpack":
			sel |= SelectTCPAck
		case "tcp_syn", "tcp-syn", "tcpsyn":
			sel |= SelectTCPSyn
		case "arp":
			sel |= SelectARP
		case "consider_alive", "consider-alive", "consideralive":
			sel |= SelectConsiderAlive
		}
	}
	if sel == 0 {
		sel = SelectICMP
	}
	return sel
}
