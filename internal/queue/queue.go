// Package queue defines the downstream publication contract (the
// persistent list primitive described in spec.md §6) and provides two
// implementations: an in-process one for tests and embedders, and a NATS
// JetStream-backed one for real deployments.
package queue

import (
	"context"
	"fmt"
)

// Queue is the downstream interface the Restriction Manager and
// Orchestrator publish through. Implementations must make PublishFinish
// safe to call more than once — the orchestrator's cleanup guard may call
// it even after the Restriction Manager already did on the scan-cap path.
type Queue interface {
	// PublishHost publishes a single alive host's canonical address string.
	PublishHost(ctx context.Context, ip string) error
	// PublishFinish publishes the terminal finish-signal sentinel.
	PublishFinish(ctx context.Context) error
	// PublishStatus publishes a formatted status string on the auxiliary
	// channel (DEADHOST/ERRMSG messages, per spec.md §6).
	PublishStatus(ctx context.Context, msg string) error
	// Close releases any resources the queue holds.
	Close() error
}

// DeadHostStatus formats the auxiliary "dead host count" status message.
func DeadHostStatus(count int) string {
	return fmt.Sprintf("DEADHOST||| ||| ||| |||%d", count)
}

// ErrMsgStatus formats the auxiliary advisory error status message.
func ErrMsgStatus(text string) string {
	return fmt.Sprintf("ERRMSG||| ||| ||| |||%s", text)
}
