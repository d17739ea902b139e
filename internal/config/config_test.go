package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSourceGetInt(t *testing.T) {
	src := MapSource{"max_scan_hosts": "42"}
	assert.Equal(t, 42, GetInt(src, "max_scan_hosts", 0))
	assert.Equal(t, 7, GetInt(src, "missing", 7))
}

func TestGetIntFallsBackOnUnparsable(t *testing.T) {
	src := MapSource{"max_scan_hosts": "nope"}
	assert.Equal(t, 9, GetInt(src, "max_scan_hosts", 9))
}

func TestLoadYAML(t *testing.T) {
	doc := "db_address: nats://localhost:4222\nport_range: \"1-1024\"\n"
	src, err := LoadYAML(strings.NewReader(doc))
	require.NoError(t, err)

	v, ok := src.Get("db_address")
	require.True(t, ok)
	assert.Equal(t, "nats://localhost:4222", v)

	assert.Equal(t, "1-1024", GetString(src, "port_range", ""))
	assert.Equal(t, "fallback", GetString(src, "missing", "fallback"))
}
