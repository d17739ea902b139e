package methods

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSelectorCombinesKnownTokens(t *testing.T) {
	sel := ParseSelector("icmp, arp , tcp_syn")

	assert.True(t, sel.Has(SelectICMP))
	assert.True(t, sel.Has(SelectARP))
	assert.True(t, sel.Has(SelectTCPSyn))
	assert.False(t, sel.Has(SelectTCPAck))
	assert.False(t, sel.Has(SelectConsiderAlive))
}

func TestParseSelectorDefaultsToICMP(t *testing.T) {
	assert.Equal(t, SelectICMP, ParseSelector(""))
	assert.Equal(t, SelectICMP, ParseSelector("bogus,also-bogus"))
}

func TestParseSelectorConsiderAlive(t *testing.T) {
	sel := ParseSelector("consider_alive")
	assert.True(t, sel.Has(SelectConsiderAlive))
	assert.False(t, sel.Has(SelectICMP))
}
