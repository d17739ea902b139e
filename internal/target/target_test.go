package target

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalIPv4MappedMatchesPlainIPv4(t *testing.T) {
	plain := netip.MustParseAddr("192.0.2.10")
	mapped := netip.AddrFrom16(plain.As16())

	assert.Equal(t, Canonical(plain), Canonical(mapped))
	assert.Equal(t, "192.0.2.10", Canonical(mapped))
}

func TestCanonicalIPv6(t *testing.T) {
	addr := netip.MustParseAddr("2001:db8::1")
	assert.Equal(t, "2001:db8::1", Canonical(addr))
}

func TestSetDeduplicatesByCanonicalKey(t *testing.T) {
	a := netip.MustParseAddr("10.0.0.1")
	b := netip.AddrFrom16(a.As16())

	s := New([]Host{{Addr: a}, {Addr: b, Handle: "second"}})

	require.Equal(t, 1, s.Len())
	assert.True(t, s.Contains("10.0.0.1"))

	var seen []Host
	s.Each(func(h Host) { seen = append(seen, h) })
	require.Len(t, seen, 1)
	assert.Equal(t, "second", seen[0].Handle)
}

func TestParseListSkipsBlankAndCommentLines(t *testing.T) {
	r := strings.NewReader("10.0.0.1\n# comment\n\n2001:db8::2\n")

	hosts, err := ParseList(r)
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, "10.0.0.1", Canonical(hosts[0].Addr))
	assert.Equal(t, "2001:db8::2", Canonical(hosts[1].Addr))
}

func TestParseListRejectsBadLine(t *testing.T) {
	r := strings.NewReader("not-an-ip\n")
	_, err := ParseList(r)
	assert.Error(t, err)
}
