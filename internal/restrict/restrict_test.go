package restrict

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alivescan/internal/queue"
)

func TestObservePublishesUntilScanCapThenSuppresses(t *testing.T) {
	q := queue.NewMem()
	mgr := New(q, Limits{MaxScanHosts: 2, MaxAliveHosts: 5})
	ctx := context.Background()

	mgr.Observe(ctx, "10.0.0.1")
	mgr.Observe(ctx, "10.0.0.2")
	mgr.Observe(ctx, "10.0.0.3")

	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, q.Hosts())
	assert.Equal(t, 1, q.FinishCount(), "finish signal fires exactly once, at the scan cap")
	assert.True(t, mgr.ScanCapReached())
	_, suppressed := mgr.Suppressed()["10.0.0.3"]
	assert.True(t, suppressed)
	assert.Equal(t, 3, mgr.AliveCount())
}

func TestObserveLatchesAliveCap(t *testing.T) {
	q := queue.NewMem()
	mgr := New(q, Limits{MaxAliveHosts: 2})
	ctx := context.Background()

	assert.False(t, mgr.AliveCapReached())
	mgr.Observe(ctx, "10.0.0.1")
	assert.False(t, mgr.AliveCapReached())
	mgr.Observe(ctx, "10.0.0.2")
	assert.True(t, mgr.AliveCapReached())
}

func TestNewRaisesAliveCapToMatchScanCap(t *testing.T) {
	mgr := New(queue.NewMem(), Limits{MaxScanHosts: 10, MaxAliveHosts: 1})
	require.Equal(t, 10, mgr.maxAliveHosts)
}

func TestUnlimitedByDefault(t *testing.T) {
	q := queue.NewMem()
	mgr := New(q, Limits{})
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		mgr.Observe(ctx, "10.0.0.1")
	}

	assert.False(t, mgr.AliveCapReached())
	assert.False(t, mgr.ScanCapReached())
	assert.Equal(t, 0, q.FinishCount())
}
