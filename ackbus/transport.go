// Package ackbus carries a PDM's HPS acks off this node and onto the
// wire toward the Active that owns the corresponding vbucket (§4.1,
// §10.3). The PDM itself never knows which transport is in play: it
// calls vbucket.Handle.SendSeqnoAck, and the Handle implementation wired
// up at startup forwards that call onto a Transport.
package ackbus

import (
	"context"

	"github.com/maxpert/marmot-pdm/vbucket"
)

// Transport sends one HPS ack for vbid toward the Active. Implementations
// must be safe for concurrent use: acks for different vbuckets fire
// concurrently. SendAck runs synchronously on the goroutine that called
// NotifySnapshotEndReceived or NotifyLocalPersistence, after the PDM has
// released its State lock, so that caller waits for the send to return.
type Transport interface {
	SendAck(ctx context.Context, vbid vbucket.ID, seqno int64) error
	Close() error
}

// InProcessTransport calls a local function directly, skipping the wire
// entirely. Grounded on the original implementation's synchronous
// vb.sendSeqnoAck call; used for single-process testing and for an
// Active and Replica colocated in the same process.
type InProcessTransport struct {
	deliver func(vbid vbucket.ID, seqno int64) error
}

// NewInProcessTransport wraps deliver as a Transport.
func NewInProcessTransport(deliver func(vbid vbucket.ID, seqno int64) error) *InProcessTransport {
	return &InProcessTransport{deliver: deliver}
}

func (t *InProcessTransport) SendAck(_ context.Context, vbid vbucket.ID, seqno int64) error {
	return t.deliver(vbid, seqno)
}

func (t *InProcessTransport) Close() error { return nil }
