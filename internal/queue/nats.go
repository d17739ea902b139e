package queue

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/pkg/errors"
)

// finishSentinel is the terminal finish-signal value published on the host
// subject, matching the "sentinel finish-signal value" message shape of
// spec.md §6.
const finishSentinel = "\x00FINISH\x00"

// NATSQueue publishes scan results through NATS JetStream, the messaging
// stack carverauto-serviceradar uses for its own queue/KV plumbing
// (pkg/config/kvnats/client.go). db_address is the NATS connection URL;
// maindbid namespaces the subjects so concurrent scans on one NATS
// deployment don't collide.
type NATSQueue struct {
	nc          *nats.Conn
	js          jetstream.JetStream
	hostSubject string
	statSubject string
}

// DialNATS connects to dbAddress (a NATS URL) and prepares the subjects for
// the given maindbid. It is the queue.Queue equivalent of the original
// kb_direct_conn(db_address, ov_maindbid) setup call.
func DialNATS(ctx context.Context, dbAddress string, maindbid int) (*NATSQueue, error) {
	nc, err := nats.Connect(dbAddress)
	if err != nil {
		return nil, errors.Wrap(err, "alivescan: connect to downstream queue")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, errors.Wrap(err, "alivescan: create jetstream context")
	}

	streamName := fmt.Sprintf("ALIVESCAN_%d", maindbid)
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{streamName + ".>"},
	})
	if err != nil {
		nc.Close()
		return nil, errors.Wrap(err, "alivescan: create downstream stream")
	}

	return &NATSQueue{
		nc:          nc,
		js:          js,
		hostSubject: streamName + ".hosts",
		statSubject: streamName + ".status",
	}, nil
}

func (q *NATSQueue) PublishHost(ctx context.Context, ip string) error {
	_, err := q.js.Publish(ctx, q.hostSubject, []byte(ip))
	return err
}

func (q *NATSQueue) PublishFinish(ctx context.Context) error {
	_, err := q.js.Publish(ctx, q.hostSubject, []byte(finishSentinel))
	return err
}

func (q *NATSQueue) PublishStatus(ctx context.Context, msg string) error {
	_, err := q.js.Publish(ctx, q.statSubject, []byte(msg))
	return err
}

func (q *NATSQueue) Close() error {
	q.nc.Close()
	return nil
}
