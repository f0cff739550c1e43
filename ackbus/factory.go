package ackbus

import (
	"fmt"

	"github.com/maxpert/marmot-pdm/cfg"
	"github.com/maxpert/marmot-pdm/vbucket"
)

// New builds the Transport selected by c.Transport. deliver is only used
// by the in-process transport, to reach a locally-hosted peer without a
// round trip through the network stack. Grounded on the teacher's
// publisher/registry.go factory-map idiom, simplified to a switch since
// the ack bus has a fixed, small set of transports rather than a plugin
// registry.
func New(c cfg.AckBusConfiguration, deliver func(vbid vbucket.ID, seqno int64) error) (Transport, error) {
	switch c.Transport {
	case cfg.AckTransportInProcess:
		return NewInProcessTransport(deliver), nil
	case cfg.AckTransportGRPC:
		return NewGRPCTransport(c.GRPC.AdvertiseAddress)
	case cfg.AckTransportNATS:
		return NewNATSTransport(c.NATS.URL, c.NATS.AckSubject, c.NATS.ConnectRetry)
	default:
		return nil, fmt.Errorf("ackbus: unknown transport %q", c.Transport)
	}
}
