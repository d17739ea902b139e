package queue

import (
	"context"
	"sync"
)

// onceFinish wraps a Queue so PublishFinish only ever reaches the
// underlying queue once, no matter how many call sites attempt it (the
// Restriction Manager on the scan-cap path, the Orchestrator's DONE state,
// and every error-exit path all call PublishFinish defensively). This is
// what makes the "exactly one finish signal" postcondition (spec.md §8
// property 5) hold regardless of which path triggers it.
type onceFinish struct {
	Queue
	once sync.Once
}

// WithOnceFinish wraps q so repeated PublishFinish calls are collapsed into
// one delivery to the underlying queue.
func WithOnceFinish(q Queue) Queue {
	return &onceFinish{Queue: q}
}

func (o *onceFinish) PublishFinish(ctx context.Context) error {
	var err error
	o.once.Do(func() { err = o.Queue.PublishFinish(ctx) })
	return err
}
