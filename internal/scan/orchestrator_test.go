package scan

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alivescan/internal/config"
	"alivescan/internal/queue"
	"alivescan/internal/target"
)

func hostsFrom(addrs ...string) []target.Host {
	var hosts []target.Host
	for _, a := range addrs {
		hosts = append(hosts, target.Host{Addr: netip.MustParseAddr(a)})
	}
	return hosts
}

func TestRunConsiderAlivePublishesEveryTargetAndFinishesOnce(t *testing.T) {
	q := queue.NewMem()
	opts := Options{
		Targets: hostsFrom("10.0.0.1", "10.0.0.2", "10.0.0.3"),
		Config:  config.MapSource{config.KeyAliveTest: "consider_alive"},
		Queue:   q,
	}

	summary, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TargetCount)
	assert.Equal(t, 3, summary.AliveCount)
	assert.Equal(t, 0, summary.DeadCount)
	assert.False(t, summary.AliveCapped)
	assert.ElementsMatch(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, q.Hosts())
	assert.Equal(t, 1, q.FinishCount())
	assert.Contains(t, q.Status(), "DEADHOST||| ||| ||| |||0")
}

func TestRunConsiderAliveRespectsAliveCap(t *testing.T) {
	q := queue.NewMem()
	opts := Options{
		Targets: hostsFrom("10.0.0.1", "10.0.0.2", "10.0.0.3"),
		Config: config.MapSource{
			config.KeyAliveTest:     "consider_alive",
			config.KeyMaxAliveHosts: "2",
		},
		Queue: q,
	}

	summary, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.AliveCount)
	assert.True(t, summary.AliveCapped)
	assert.Contains(t, q.Status(), "ERRMSG||| ||| ||| |||There are still 1 hosts whose alive status will not be checked.")
	assert.Equal(t, 1, q.FinishCount())
}

func TestRunConsiderAliveHonorsScanCapFinishSignal(t *testing.T) {
	q := queue.NewMem()
	opts := Options{
		Targets: hostsFrom("10.0.0.1", "10.0.0.2", "10.0.0.3"),
		Config: config.MapSource{
			config.KeyAliveTest:    "consider_alive",
			config.KeyMaxScanHosts: "1",
		},
		Queue: q,
	}

	summary, err := Run(context.Background(), opts)
	require.NoError(t, err)

	// Exactly one finish signal despite the Restriction Manager firing it
	// on the scan-cap path and the orchestrator's DONE state firing it
	// again afterwards.
	assert.Equal(t, 1, q.FinishCount())
	assert.Equal(t, []string{"10.0.0.1"}, q.Hosts())
	assert.Equal(t, 3, summary.AliveCount)
	// Two hosts were observed alive but suppressed after the scan cap
	// latched; AliveCount above still includes them, but the published
	// dead count treats them as dead, matching the published-alive
	// bookkeeping.
	assert.Equal(t, 2, summary.DeadCount)
	assert.Contains(t, q.Status(), "DEADHOST||| ||| ||| |||2")
}
