package portlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveReturnsDefaultWhenValid(t *testing.T) {
	assert.Equal(t, Default, Resolve("1-10"))
}

func TestParseHandlesCommasAndRanges(t *testing.T) {
	ports, err := Parse("80,443,1000-1002")
	require.NoError(t, err)
	assert.Equal(t, []uint16{80, 443, 1000, 1001, 1002}, ports)
}

func TestParseNormalizesReversedRange(t *testing.T) {
	ports, err := Parse("20-18")
	require.NoError(t, err)
	assert.Equal(t, []uint16{18, 19, 20}, ports)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not-a-port")
	assert.Error(t, err)
}

func TestValidRejectsEmptyList(t *testing.T) {
	assert.False(t, Valid(nil))
	assert.True(t, Valid([]uint16{80}))
}
