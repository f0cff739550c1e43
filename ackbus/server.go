package ackbus

import (
	"github.com/maxpert/marmot-pdm/vbucket"
	"github.com/rs/zerolog/log"
)

// LoggingAckServer is the default AckServer: it has no Active-side
// bookkeeping to apply acks to (that lives outside this repo's scope,
// §1 Non-goals), so it just records the ack at DEBUG level. Useful as
// the loopback target when a node's ack transport points at itself,
// and as the default wired into clusterclient.Server.
type LoggingAckServer struct{}

func (LoggingAckServer) HandleAck(vbid vbucket.ID, seqno int64) error {
	log.Debug().Uint64("vbucket", uint64(vbid)).Int64("seqno", seqno).Msg("ackbus: received ack")
	return nil
}
