package main

import (
	"context"
	"sync/atomic"

	"github.com/maxpert/marmot-pdm/ackbus"
	"github.com/maxpert/marmot-pdm/vbucket"
	"github.com/rs/zerolog/log"
)

// nodeVBucket is the concrete vbucket.Handle this daemon hosts: it has no
// real storage or DCP stream behind it, just a persistence-seqno counter
// an operator (or, in a full deployment, the storage engine) advances,
// and an ackbus.Transport to forward HPS acks onto.
type nodeVBucket struct {
	id               vbucket.ID
	persistenceSeqno atomic.Int64
	transport        ackbus.Transport
}

func newNodeVBucket(id vbucket.ID, transport ackbus.Transport) *nodeVBucket {
	return &nodeVBucket{id: id, transport: transport}
}

func (v *nodeVBucket) ID() vbucket.ID { return v.id }

func (v *nodeVBucket) State() string { return "replica" }

func (v *nodeVBucket) PersistenceSeqno() int64 { return v.persistenceSeqno.Load() }

// AdvancePersistence is called by whatever feeds this vbucket's local
// storage progress; it has no counterpart in the original spec's PDM
// contract, which only reads PersistenceSeqno.
func (v *nodeVBucket) AdvancePersistence(seqno int64) { v.persistenceSeqno.Store(seqno) }

func (v *nodeVBucket) SendSeqnoAck(seqno int64) {
	if err := v.transport.SendAck(context.Background(), v.id, seqno); err != nil {
		log.Warn().Err(err).Uint64("vbucket", uint64(v.id)).Int64("seqno", seqno).
			Msg("pdmd: failed to send HPS ack")
	}
}
