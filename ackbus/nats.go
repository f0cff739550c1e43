package ackbus

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/maxpert/marmot-pdm/telemetry"
	"github.com/maxpert/marmot-pdm/vbucket"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSTransport fire-and-forgets HPS acks onto a subject. Grounded on the
// teacher's publisher/sink/nats.go connect/reconnect idiom, minus the
// JetStream stream bookkeeping: an ack has no retention requirement once
// delivered, so plain core NATS publish is enough here.
type NATSTransport struct {
	nc      *nats.Conn
	subject string
}

// NewNATSTransport connects to url and returns a ready Transport that
// publishes acks to subject.
func NewNATSTransport(url, subject string, connectRetrySeconds int) (*NATSTransport, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Duration(connectRetrySeconds)*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("ackbus: nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("ackbus: nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("ackbus: nats connect %s: %w", url, err)
	}

	return &NATSTransport{nc: nc, subject: subject}, nil
}

// encodeAckPayload packs vbid and seqno into 16 bytes, big-endian.
func encodeAckPayload(vbid vbucket.ID, seqno int64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(vbid))
	binary.BigEndian.PutUint64(buf[8:16], uint64(seqno))
	return buf
}

// DecodeAckPayload is the inverse of encodeAckPayload, exported for
// subscribers on the other side of the bus.
func DecodeAckPayload(payload []byte) (vbucket.ID, int64, error) {
	if len(payload) != 16 {
		return 0, 0, fmt.Errorf("ackbus: malformed ack payload (%d bytes)", len(payload))
	}
	vbid := vbucket.ID(binary.BigEndian.Uint64(payload[0:8]))
	seqno := int64(binary.BigEndian.Uint64(payload[8:16]))
	return vbid, seqno, nil
}

func (t *NATSTransport) SendAck(_ context.Context, vbid vbucket.ID, seqno int64) error {
	start := time.Now()
	err := t.nc.Publish(t.subject, encodeAckPayload(vbid, seqno))
	telemetry.AckSendSeconds.With("nats").Observe(time.Since(start).Seconds())

	if err != nil {
		telemetry.AcksSentTotal.With("nats", "error").Inc()
		return err
	}
	telemetry.AcksSentTotal.With("nats", "ok").Inc()
	return nil
}

func (t *NATSTransport) Close() error {
	t.nc.Close()
	return nil
}
