package sockets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenErrorFormatsKindAndCause(t *testing.T) {
	err := &OpenError{Kind: KindICMPv4, Err: errors.New("permission denied")}
	assert.Equal(t, "alivescan: open icmpv4 socket: permission denied", err.Error())
	assert.ErrorIs(t, err, err.Err)
}

func TestCloseOnEmptySetIsNilAndSafe(t *testing.T) {
	s := &Set{ICMPv4: -1, ICMPv6: -1, TCPv4: -1, TCPv6: -1, UDPv4: -1, UDPv6: -1, ARPv6: -1}
	assert.NoError(t, s.Close())
}
