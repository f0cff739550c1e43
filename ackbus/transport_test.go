package ackbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxpert/marmot-pdm/vbucket"
)

func TestInProcessTransport_DeliversSynchronously(t *testing.T) {
	t.Parallel()

	var gotVBID vbucket.ID
	var gotSeqno int64

	tr := NewInProcessTransport(func(vbid vbucket.ID, seqno int64) error {
		gotVBID = vbid
		gotSeqno = seqno
		return nil
	})

	err := tr.SendAck(context.Background(), 7, 42)
	require.NoError(t, err)
	require.Equal(t, vbucket.ID(7), gotVBID)
	require.Equal(t, int64(42), gotSeqno)
	require.NoError(t, tr.Close())
}

func TestInProcessTransport_PropagatesDeliverError(t *testing.T) {
	t.Parallel()

	boom := errors.New("peer rejected ack")
	tr := NewInProcessTransport(func(vbid vbucket.ID, seqno int64) error {
		return boom
	})

	err := tr.SendAck(context.Background(), 1, 1)
	require.ErrorIs(t, err, boom)
}

func TestLoggingAckServer_HandleAck_NeverErrors(t *testing.T) {
	t.Parallel()

	var srv LoggingAckServer
	require.NoError(t, srv.HandleAck(3, 99))
}
